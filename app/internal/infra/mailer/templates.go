package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/shopspring/decimal"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Templates renders notification emails. Each name defines "<name>.subject"
// and "<name>.body".
type Templates struct {
	set *template.Template
}

func NewTemplates(galleryName string) (*Templates, error) {
	if galleryName == "" {
		galleryName = "The Gallery"
	}
	set, err := template.New("mail").Funcs(template.FuncMap{
		"gallery": func() string { return galleryName },
		"money":   func(d decimal.Decimal) string { return d.StringFixed(2) },
		"date":    func(t time.Time) string { return t.UTC().Format("02 Jan 2006 15:04 MST") },
	}).Option("missingkey=error").ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("mailer: parse templates: %w", err)
	}
	return &Templates{set: set}, nil
}

func (t *Templates) Render(name string, data any) (string, string, error) {
	subject, err := t.execute(name+".subject", data)
	if err != nil {
		return "", "", err
	}
	body, err := t.execute(name+".body", data)
	if err != nil {
		return "", "", err
	}
	return strings.Join(strings.Fields(subject), " "), strings.TrimSpace(body) + "\n", nil
}

func (t *Templates) execute(name string, data any) (string, error) {
	if t.set.Lookup(name) == nil {
		return "", fmt.Errorf("mailer: unknown template %q", name)
	}
	var buf bytes.Buffer
	if err := t.set.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("mailer: render %s: %w", name, err)
	}
	return buf.String(), nil
}
