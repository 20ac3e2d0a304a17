package user

import "time"

type Role struct {
	RoleID   int64  `gorm:"column:role_id;primaryKey"`
	RoleName string `gorm:"column:role_name;uniqueIndex;not null"`
}

func (Role) TableName() string { return "roles" }

type User struct {
	UserID    int64     `gorm:"column:user_id;primaryKey"`
	UserName  string    `gorm:"column:user_name;not null"`
	Email     string    `gorm:"column:email;uniqueIndex;not null"`
	RoleID    int64     `gorm:"column:role_id;not null"`
	ManagerID *int64    `gorm:"column:manager_id"`
	IsActive  bool      `gorm:"column:is_active;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (User) TableName() string { return "users" }

// UserRow is one row of sp_get_users.
type UserRow struct {
	UserID      int64     `db:"user_id"`
	UserName    string    `db:"user_name"`
	Email       string    `db:"email"`
	RoleID      int64     `db:"role_id"`
	RoleName    string    `db:"role_name"`
	ManagerID   *int64    `db:"manager_id"`
	ManagerName *string   `db:"manager_name"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
}
