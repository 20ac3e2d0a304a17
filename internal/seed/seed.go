package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	categoryDatamodel "github.com/frahmantamala/expense-assistant/internal/core/datamodel/category"
	expenseDatamodel "github.com/frahmantamala/expense-assistant/internal/core/datamodel/expense"
	userDatamodel "github.com/frahmantamala/expense-assistant/internal/core/datamodel/user"
	"github.com/frahmantamala/expense-assistant/internal/expense"
)

// Summary counts the rows a run inserted.
type Summary struct {
	Roles      int
	Users      int
	Categories int
	Statuses   int
}

var (
	roleNames     = []string{"Employee", expense.RoleManager}
	categoryNames = []string{"Travel", "Meals", "Supplies", "Accommodation", "Other"}
)

type seedUser struct {
	name, email, role, manager string
}

// managers come first so reports can point at them
var seedUsers = []seedUser{
	{name: "Bob Manager", email: "bob.manager@example.co.uk", role: expense.RoleManager},
	{name: "Alice Example", email: "alice@example.co.uk", role: "Employee", manager: "bob.manager@example.co.uk"},
}

// ReferenceData inserts the roles, users, categories and statuses the app expects. Existing rows are kept,
// so running it twice is a no-op. With clear, expenses and the seeded tables are emptied first.
func ReferenceData(ctx context.Context, db *gorm.DB, clear bool, logger *slog.Logger) (Summary, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var summary Summary

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if clear {
			if err := clearData(tx); err != nil {
				return err
			}
			logger.Info("cleared existing data")
		}

		for _, s := range expense.AllStatuses {
			row := &expenseDatamodel.ExpenseStatus{StatusID: s.ID(), StatusName: string(s)}
			created, err := ensure(tx, &expenseDatamodel.ExpenseStatus{}, "status_id = ?", s.ID(), row)
			if err != nil {
				return fmt.Errorf("seed status %s: %w", s, err)
			}
			if created {
				summary.Statuses++
			}
		}

		roleIDs := make(map[string]int64, len(roleNames))
		for _, name := range roleNames {
			role := &userDatamodel.Role{RoleName: name}
			created, err := ensure(tx, &userDatamodel.Role{}, "role_name = ?", name, role)
			if err != nil {
				return fmt.Errorf("seed role %s: %w", name, err)
			}
			if created {
				summary.Roles++
			}
			roleIDs[name] = role.RoleID
		}

		userIDs := make(map[string]int64, len(seedUsers))
		for _, u := range seedUsers {
			row := &userDatamodel.User{UserName: u.name, Email: u.email, RoleID: roleIDs[u.role], IsActive: true, CreatedAt: time.Now()}
			if managerID, ok := userIDs[u.manager]; ok {
				row.ManagerID = &managerID
			}
			created, err := ensure(tx, &userDatamodel.User{}, "email = ?", u.email, row)
			if err != nil {
				return fmt.Errorf("seed user %s: %w", u.email, err)
			}
			if created {
				summary.Users++
				logger.Info("seeded user", "email", u.email, "role", u.role)
			}
			userIDs[u.email] = row.UserID
		}

		for _, name := range categoryNames {
			row := &categoryDatamodel.ExpenseCategory{CategoryName: name, IsActive: true}
			created, err := ensure(tx, &categoryDatamodel.ExpenseCategory{}, "category_name = ?", name, row)
			if err != nil {
				return fmt.Errorf("seed category %s: %w", name, err)
			}
			if created {
				summary.Categories++
			}
		}
		return nil
	})
	if err != nil {
		return Summary{}, err
	}

	logger.Info("reference data seeded",
		"roles", summary.Roles,
		"users", summary.Users,
		"categories", summary.Categories,
		"statuses", summary.Statuses)
	return summary, nil
}

// ensure creates row unless a record matching the condition exists, in which case row receives the stored values.
func ensure(tx *gorm.DB, probe interface{}, query string, arg interface{}, row interface{}) (bool, error) {
	err := tx.Where(query, arg).Take(probe).Error
	switch {
	case err == nil:
		return false, tx.Where(query, arg).Take(row).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		return true, tx.Create(row).Error
	default:
		return false, err
	}
}

// clearData empties children before parents; tables that do not exist yet are skipped.
func clearData(tx *gorm.DB) error {
	models := []interface{}{
		&expenseDatamodel.Expense{},
		&userDatamodel.User{},
		&categoryDatamodel.ExpenseCategory{},
		&userDatamodel.Role{},
	}
	for _, model := range models {
		if !tx.Migrator().HasTable(model) {
			continue
		}
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	return nil
}
