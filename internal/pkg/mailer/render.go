package mailer

import (
	"bytes"
	"embed"
	"html"
	"html/template"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

//go:embed templates/*.html
var templateFS embed.FS

// Template names.
const (
	TemplateWelcome           = "welcome.html"
	TemplatePasswordReset     = "password_reset.html"
	TemplatePasswordChanged   = "password_changed.html"
	TemplateInvoice           = "invoice.html"
	TemplateAdminNotification = "admin_notification.html"
	TemplateMessage           = "message.html"
)

var blankLines = regexp.MustCompile(`\n[ \t]*(\n[ \t]*)+`)

// Renderer turns templates into HTML and a plain-text alternative.
type Renderer struct {
	tmpl   *template.Template
	policy *bluemonday.Policy
}

func NewRenderer() (*Renderer, error) {
	t, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{tmpl: t, policy: bluemonday.StrictPolicy()}, nil
}

func (r *Renderer) Render(name string, data interface{}) (string, string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", "", err
	}
	htmlBody := buf.String()
	return htmlBody, r.PlainText(htmlBody), nil
}

// PlainText strips markup and collapses runs of blank lines.
func (r *Renderer) PlainText(htmlBody string) string {
	text := html.UnescapeString(r.policy.Sanitize(htmlBody))
	text = blankLines.ReplaceAllString(text, "\n\n")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
