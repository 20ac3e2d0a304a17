package web_test

import (
	"bytes"
	"strconv"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/expense-assistant/internal/web"
)

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

var _ = Describe("TemplateRenderer", func() {
	var renderer *web.TemplateRenderer

	BeforeEach(func() {
		var err error
		renderer, err = web.NewTemplateRenderer("")
		Expect(err).NotTo(HaveOccurred())
	})

	It("wraps pages in the layout", func() {
		var buf bytes.Buffer
		err := renderer.Render(&buf, web.PageNotFound, web.NotFoundView{
			Page:    web.Page{Title: "Not Found"},
			Message: "Expense not found",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(buf.String()).To(ContainSubstring("<title>Not Found - Expense Management</title>"))
		Expect(buf.String()).To(ContainSubstring("Expense not found"))
	})

	It("renders empty views", func() {
		views := map[string]interface{}{
			web.PageIndex:       web.IndexView{Page: web.Page{Title: "Expenses"}},
			web.PageExpenseForm: web.ExpenseFormView{Page: web.Page{Title: "Add Expense"}},
			web.PageApprovals:   web.ApprovalsView{Page: web.Page{Title: "Approve Expenses"}},
			web.PageChat:        web.ChatView{Page: web.Page{Title: "Chat Assistant"}},
		}
		for page, view := range views {
			var buf bytes.Buffer
			Expect(renderer.Render(&buf, page, view)).To(Succeed(), page)
		}
	})

	It("fails for an unknown page", func() {
		var buf bytes.Buffer
		Expect(renderer.Render(&buf, "missing.html", nil)).To(MatchError(ContainSubstring("unknown page")))
		Expect(buf.Len()).To(BeZero())
	})
})
