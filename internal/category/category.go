package category

import "github.com/frahmantamala/expense-assistant/internal/expense"

type Category = expense.Category

// Active keeps only the categories that can be picked for new expenses.
func Active(categories []*Category) []*Category {
	out := make([]*Category, 0, len(categories))
	for _, c := range categories {
		if c.IsActive {
			out = append(out, c)
		}
	}
	return out
}
