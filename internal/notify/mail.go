package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strings"

	"github.com/savora-food/api/internal/enum"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Mailer sends one HTML e-mail.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPMailer sends mail through an SMTP relay with PLAIN auth when a user is set.
type SMTPMailer struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var auth smtp.Auth
	if m.User != "" {
		auth = smtp.PlainAuth("", m.User, m.Password, m.Host)
	}
	msg := buildMessage(m.From, to, subject, htmlBody)
	return smtp.SendMail(net.JoinHostPort(m.Host, m.Port), auth, m.From, []string{to}, msg)
}

func buildMessage(from, to, subject, htmlBody string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", strings.ReplaceAll(subject, "\n", " "))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(htmlBody)
	return b.Bytes()
}

// RenderAdminStatusEmail builds the subject and HTML body for ev.
func RenderAdminStatusEmail(ev AdminStatusChanged) (string, string, error) {
	var name, subject string
	switch ev.Status {
	case enum.AdminStatusApproved:
		name, subject = "admin_approved.html", "Your restaurant account has been approved"
	case enum.AdminStatusRejected:
		name, subject = "admin_rejected.html", "Your restaurant account application"
	default:
		name, subject = "admin_pending.html", "Your restaurant account is under review"
	}
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, ev); err != nil {
		return "", "", fmt.Errorf("render %s: %w", name, err)
	}
	return subject, buf.String(), nil
}
