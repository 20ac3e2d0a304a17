package postgres

import (
	"fmt"
	"strings"
)

const (
	procGetExpenses         = "sp_get_expenses"
	procGetExpenseByID      = "sp_get_expense_by_id"
	procGetExpensesByStatus = "sp_get_expenses_by_status"
	procGetExpensesByUserID = "sp_get_expenses_by_user_id"
	procGetPendingExpenses  = "sp_get_pending_expenses"
	procFilterExpenses      = "sp_filter_expenses"
	procCreateExpense       = "sp_create_expense"
	procUpdateExpense       = "sp_update_expense"
	procDeleteExpense       = "sp_delete_expense"
	procSubmitExpense       = "sp_submit_expense"
	procApproveExpense      = "sp_approve_expense"
	procRejectExpense       = "sp_reject_expense"
	procGetCategories       = "sp_get_categories"
	procGetStatuses         = "sp_get_statuses"
	procGetUsers            = "sp_get_users"
)

// rowsCall builds the statement for a set-returning procedure: SELECT * FROM name($1, ...).
func rowsCall(proc string, argc int) string {
	return fmt.Sprintf("SELECT * FROM %s(%s)", proc, placeholders(argc))
}

// scalarCall builds the statement for a procedure returning one value: SELECT name($1, ...).
func scalarCall(proc string, argc int) string {
	return fmt.Sprintf("SELECT %s(%s)", proc, placeholders(argc))
}

func placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", i+1)
	}
	return strings.Join(parts, ", ")
}
