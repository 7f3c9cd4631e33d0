package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

var subjects = map[Kind]string{
	KindInvitation:        "You have been invited to Expressmart",
	KindAdminResetRequest: "Password reset requested",
	KindResetApproved:     "Your password reset was approved",
}

var templateNames = map[Kind]string{
	KindInvitation:        "invitation.html",
	KindAdminResetRequest: "admin_reset_request.html",
	KindResetApproved:     "reset_approved.html",
}

// Render produces the subject line and HTML body for a notification kind.
func Render(kind Kind, data map[string]any) (subject, body string, err error) {
	name, ok := templateNames[kind]
	if !ok {
		return "", "", fmt.Errorf("notify: unknown kind %q", kind)
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", "", fmt.Errorf("notify: render %s: %w", name, err)
	}
	return subjects[kind], buf.String(), nil
}
