package category

type ExpenseCategory struct {
	CategoryID   int64  `gorm:"column:category_id;primaryKey" db:"category_id"`
	CategoryName string `gorm:"column:category_name;uniqueIndex;not null" db:"category_name"`
	IsActive     bool   `gorm:"column:is_active;not null" db:"is_active"`
}

func (ExpenseCategory) TableName() string { return "expense_categories" }
