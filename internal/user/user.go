package user

import (
	"sort"

	"github.com/frahmantamala/expense-assistant/internal/expense"
)

type User = expense.User

// Reviewers returns the active managers, ordered by name, for approval pickers.
func Reviewers(users []*User) []*User {
	out := make([]*User, 0)
	for _, u := range users {
		if u.IsActive && u.IsManager() {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
