package postgres

import (
	"time"

	"github.com/frahmantamala/expense-assistant/internal/expense"
)

// Fixture data served for reads while the store is unhealthy.

const (
	fixtureOwnerID    int64 = 1
	fixtureOwnerName        = "Alice Example"
	fixtureOwnerEmail       = "alice@example.co.uk"
	fixtureManagerID  int64 = 2
	fixtureManager          = "Bob Manager"
)

func FixtureExpenses(now time.Time) []*expense.Expense {
	daysAgo := func(n int) *time.Time {
		t := now.AddDate(0, 0, -n)
		return &t
	}
	str := func(s string) *string { return &s }
	reviewer := fixtureManagerID

	base := func(id, categoryID int64, category string, status expense.Status, amount int64, date time.Time, desc string) *expense.Expense {
		return &expense.Expense{
			ID:           id,
			UserID:       fixtureOwnerID,
			UserName:     fixtureOwnerName,
			Email:        fixtureOwnerEmail,
			CategoryID:   categoryID,
			CategoryName: category,
			StatusID:     status.ID(),
			StatusName:   string(status),
			AmountMinor:  amount,
			Currency:     "GBP",
			ExpenseDate:  date,
			Description:  str(desc),
		}
	}

	taxi := base(1, 1, "Travel", expense.StatusSubmitted, 2540, time.Date(2025, 10, 20, 0, 0, 0, 0, time.UTC), "Taxi from airport to client site")
	taxi.ReceiptFile = str("/receipts/alice/taxi_oct20.jpg")
	taxi.SubmittedAt = daysAgo(5)
	taxi.CreatedAt = *daysAgo(5)

	lunch := base(2, 2, "Meals", expense.StatusApproved, 1425, time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC), "Client lunch meeting")
	lunch.ReceiptFile = str("/receipts/alice/lunch_sep15.jpg")
	lunch.SubmittedAt = daysAgo(30)
	lunch.ReviewedBy = &reviewer
	lunch.ReviewedByName = str(fixtureManager)
	lunch.ReviewedAt = daysAgo(29)
	lunch.CreatedAt = *daysAgo(31)

	stationery := base(3, 3, "Supplies", expense.StatusDraft, 799, time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC), "Office stationery")
	stationery.CreatedAt = *daysAgo(2)

	hotel := base(4, 4, "Accommodation", expense.StatusApproved, 12300, time.Date(2025, 8, 10, 0, 0, 0, 0, time.UTC), "Hotel during client visit")
	hotel.ReceiptFile = str("/receipts/alice/hotel_aug10.jpg")
	hotel.SubmittedAt = daysAgo(60)
	hotel.ReviewedBy = &reviewer
	hotel.ReviewedByName = str(fixtureManager)
	hotel.ReviewedAt = daysAgo(59)
	hotel.CreatedAt = *daysAgo(61)

	return []*expense.Expense{taxi, lunch, stationery, hotel}
}

func FixtureCategories() []*expense.Category {
	names := []string{"Travel", "Meals", "Supplies", "Accommodation", "Other"}
	out := make([]*expense.Category, 0, len(names))
	for i, name := range names {
		out = append(out, &expense.Category{ID: int64(i + 1), Name: name, IsActive: true})
	}
	return out
}

func FixtureStatuses() []*expense.ExpenseStatus {
	out := make([]*expense.ExpenseStatus, 0, len(expense.AllStatuses))
	for _, s := range expense.AllStatuses {
		out = append(out, &expense.ExpenseStatus{ID: s.ID(), Name: string(s)})
	}
	return out
}

func FixtureUsers(now time.Time) []*expense.User {
	managerID := fixtureManagerID
	managerName := fixtureManager
	return []*expense.User{
		{
			ID:          fixtureOwnerID,
			Name:        fixtureOwnerName,
			Email:       fixtureOwnerEmail,
			RoleID:      1,
			RoleName:    "Employee",
			ManagerID:   &managerID,
			ManagerName: &managerName,
			IsActive:    true,
			CreatedAt:   now.AddDate(0, 0, -100),
		},
		{
			ID:        fixtureManagerID,
			Name:      fixtureManager,
			Email:     "bob.manager@example.co.uk",
			RoleID:    2,
			RoleName:  expense.RoleManager,
			IsActive:  true,
			CreatedAt: now.AddDate(0, 0, -200),
		},
	}
}
