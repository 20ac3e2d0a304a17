package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/frahmantamala/expense-assistant/internal/expense"
)

//go:embed templates/*.html
var embeddedTemplates embed.FS

const (
	PageIndex       = "index.html"
	PageExpenseForm = "expense_form.html"
	PageApprovals   = "approvals.html"
	PageChat        = "chat.html"
	PageNotFound    = "not_found.html"
)

var pageNames = []string{PageIndex, PageExpenseForm, PageApprovals, PageChat, PageNotFound}

type Renderer interface {
	Render(w io.Writer, name string, data interface{}) error
}

// TemplateRenderer renders each page inside layout.html.
type TemplateRenderer struct {
	pages map[string]*template.Template
}

var templateFuncs = template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format(expense.DateLayout)
	},
	"datetime": func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Format("2006-01-02 15:04")
	},
}

// NewTemplateRenderer parses the embedded pages, or the ones under dir when it is set.
func NewTemplateRenderer(dir string) (*TemplateRenderer, error) {
	var source fs.FS
	if dir != "" {
		source = os.DirFS(dir)
	} else {
		sub, err := fs.Sub(embeddedTemplates, "templates")
		if err != nil {
			return nil, err
		}
		source = sub
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New("layout.html").Funcs(templateFuncs).ParseFS(source, "layout.html", name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = t
	}
	return &TemplateRenderer{pages: pages}, nil
}

func (r *TemplateRenderer) Render(w io.Writer, name string, data interface{}) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}
