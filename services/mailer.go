package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"os"

	"urbanreport-be/models"

	"github.com/sirupsen/logrus"
)

// statusColors maps each status to the accent color used in the email body.
// Unmapped statuses fall back to a neutral color.
var statusColors = map[models.IssueStatus]string{
	models.Reported:   "#3498db",
	models.Verified:   "#9b59b6",
	models.InProgress: "#f39c12",
	models.Resolved:   "#27ae60",
	models.Rejected:   "#e74c3c",
}

const defaultStatusColor = "#333"

var statusEmailTmpl = template.Must(template.New("statusEmail").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: auto; border: 1px solid #eee; border-radius: 8px; overflow: hidden;">
  <div style="background: #1a73e8; padding: 20px; text-align: center;">
    <h1 style="color: white; margin: 0;">Urban Issue Reporter</h1>
  </div>
  <div style="padding: 30px;">
    <p>Dear <strong>{{.Name}}</strong>,</p>
    <p>Your complaint <strong>#{{.IssueID}}</strong> &mdash; "<em>{{.IssueTitle}}</em>" has been updated.</p>
    <div style="background: #f8f9fa; border-left: 4px solid {{.Color}}; padding: 15px; margin: 20px 0; border-radius: 4px;">
      <h3 style="margin: 0; color: {{.Color}};">Status: {{.Status}}</h3>
      {{if .Message}}<p style="margin: 10px 0 0;">{{.Message}}</p>{{end}}
    </div>
    <p>You can track your complaint at: <a href="{{.AppURL}}/issues/{{.IssueID}}">View Issue</a></p>
    <hr>
    <p style="color: #888; font-size: 12px;">This is an automated email. Please do not reply.</p>
  </div>
</div>`))

// MailService sends transactional email over SMTP. When any of the SMTP
// environment variables is missing the service stays disabled and every
// send is a logged no-op.
type MailService struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	AppURL   string
	Enabled  bool
	log      *logrus.Logger
}

func NewMailService(log *logrus.Logger) *MailService {
	host := os.Getenv("SMTP_HOST")
	port := os.Getenv("SMTP_PORT")
	user := os.Getenv("SMTP_USER")
	pass := os.Getenv("SMTP_PASS")
	from := os.Getenv("SMTP_FROM")
	appURL := os.Getenv("APP_URL")
	if appURL == "" {
		appURL = "http://localhost:8080"
	}

	enabled := host != "" && port != "" && user != "" && pass != "" && from != ""
	if !enabled {
		log.Warn("MailService disabled: missing SMTP environment variables")
	}

	return &MailService{
		Host:     host,
		Port:     port,
		Username: user,
		Password: pass,
		From:     from,
		AppURL:   appURL,
		Enabled:  enabled,
		log:      log,
	}
}

// SendStatusEmail renders the status-update template and sends it to the
// reporter. Callers treat this as best-effort.
func (s *MailService) SendStatusEmail(to, name, issueID, issueTitle string, status models.IssueStatus, message string) error {
	color, ok := statusColors[status]
	if !ok {
		color = defaultStatusColor
	}

	var body bytes.Buffer
	err := statusEmailTmpl.Execute(&body, map[string]interface{}{
		"Name":       name,
		"IssueID":    issueID,
		"IssueTitle": issueTitle,
		"Status":     status,
		"Message":    message,
		"Color":      color,
		"AppURL":     s.AppURL,
	})
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("Issue #%s Status Updated: %s", issueID, status)
	return s.Send(to, subject, body.String())
}

// Send delivers a single HTML email.
func (s *MailService) Send(to, subject, htmlBody string) error {
	if !s.Enabled {
		s.log.WithField("to", to).Debug("mail disabled, dropping email")
		return nil
	}

	auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)
	addr := fmt.Sprintf("%s:%s", s.Host, s.Port)

	msg := []byte(fmt.Sprintf("To: %s\r\n"+
		"From: Urban Issue Reporter <%s>\r\n"+
		"Subject: %s\r\n"+
		"MIME-version: 1.0;\r\nContent-Type: text/html; charset=\"UTF-8\";\r\n\r\n%s",
		to, s.From, subject, htmlBody))

	if err := smtp.SendMail(addr, auth, s.From, []string{to}, msg); err != nil {
		return err
	}
	s.log.WithField("to", to).Info("email sent")
	return nil
}
