package expense

import "time"

// Expense is the expenses table, used by the seeder.
type Expense struct {
	ExpenseID   int64      `gorm:"column:expense_id;primaryKey"`
	UserID      int64      `gorm:"column:user_id;not null"`
	CategoryID  int64      `gorm:"column:category_id;not null"`
	StatusID    int64      `gorm:"column:status_id;not null"`
	AmountMinor int64      `gorm:"column:amount_minor;not null"`
	Currency    string     `gorm:"column:currency;size:3;not null"`
	ExpenseDate time.Time  `gorm:"column:expense_date;type:date;not null"`
	Description *string    `gorm:"column:description"`
	ReceiptFile *string    `gorm:"column:receipt_file"`
	SubmittedAt *time.Time `gorm:"column:submitted_at"`
	ReviewedBy  *int64     `gorm:"column:reviewed_by"`
	ReviewedAt  *time.Time `gorm:"column:reviewed_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (Expense) TableName() string { return "expenses" }

// ExpenseRow is one row of the expense read procedures (owner, category, status and reviewer joined in).
type ExpenseRow struct {
	ExpenseID      int64      `db:"expense_id"`
	UserID         int64      `db:"user_id"`
	UserName       string     `db:"user_name"`
	Email          string     `db:"email"`
	CategoryID     int64      `db:"category_id"`
	CategoryName   string     `db:"category_name"`
	StatusID       int64      `db:"status_id"`
	StatusName     string     `db:"status_name"`
	AmountMinor    int64      `db:"amount_minor"`
	Currency       string     `db:"currency"`
	ExpenseDate    time.Time  `db:"expense_date"`
	Description    *string    `db:"description"`
	ReceiptFile    *string    `db:"receipt_file"`
	SubmittedAt    *time.Time `db:"submitted_at"`
	ReviewedBy     *int64     `db:"reviewed_by"`
	ReviewedByName *string    `db:"reviewed_by_name"`
	ReviewedAt     *time.Time `db:"reviewed_at"`
	CreatedAt      time.Time  `db:"created_at"`
}

type ExpenseStatus struct {
	StatusID   int64  `gorm:"column:status_id;primaryKey;autoIncrement:false" db:"status_id"`
	StatusName string `gorm:"column:status_name;uniqueIndex;not null" db:"status_name"`
}

func (ExpenseStatus) TableName() string { return "expense_statuses" }
