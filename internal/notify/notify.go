// Package notify produces the side effects of domain events: an in-app
// notification row written inside the caller's transaction, and an email sent
// after commit. Email is best-effort; delivery errors are logged and counted,
// never returned.
package notify

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"mime"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/diewo77/procurement/internal/metrics"
	"github.com/diewo77/procurement/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// Template names.
const (
	TemplateQuote    = "quote.html"
	TemplateEstimate = "estimate.html"
	TemplateGeneric  = "generic.html"
	TemplateContact  = "contact.html"
)

// Event is an in-app notification to store for one user.
type Event struct {
	UserID  uint
	Type    string
	Title   string
	Message string
	Link    string
	Data    map[string]any
}

// Mail is an email waiting for the transaction that produced it to commit.
type Mail struct {
	To       string
	Subject  string
	Template string
	Data     map[string]any
}

// Notifier writes notification rows and sends templated emails.
type Notifier struct {
	mailer  Mailer
	from    string
	baseURL string
	tpl     *template.Template
}

func New(mailer Mailer, from, baseURL string) (*Notifier, error) {
	tpl, err := template.New("").Funcs(template.FuncMap{
		"money": func(v float64) string { return fmt.Sprintf("$%.2f", v) },
		"pct":   func(v float64) string { return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", v*100), "0"), ".") + "%" },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	return &Notifier{mailer: mailer, from: from, baseURL: strings.TrimRight(baseURL, "/"), tpl: tpl}, nil
}

// Create stores e using tx so the row commits or rolls back with the change
// that caused it.
func (n *Notifier) Create(tx *gorm.DB, e Event) error {
	if e.UserID == 0 {
		return nil
	}
	row := models.Notification{
		UserID:  e.UserID,
		Type:    e.Type,
		Title:   e.Title,
		Message: e.Message,
		Link:    e.Link,
	}
	if len(e.Data) > 0 {
		raw, err := json.Marshal(e.Data)
		if err != nil {
			return fmt.Errorf("encode notification data: %w", err)
		}
		row.Data = datatypes.JSON(raw)
	}
	if err := tx.Create(&row).Error; err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// Deliver renders and sends each mail. Failures are logged and counted.
func (n *Notifier) Deliver(ctx context.Context, mails ...Mail) {
	for _, m := range mails {
		if m.To == "" {
			continue
		}
		raw, err := n.Render(m)
		if err == nil {
			err = n.mailer.Send(ctx, []string{m.To}, m.Subject, raw)
		}
		if err != nil {
			metrics.EmailsFailed.Inc()
			log.WithError(err).WithFields(log.Fields{"to": m.To, "subject": m.Subject, "template": m.Template}).Warn("email delivery failed")
			continue
		}
		metrics.EmailsSent.Inc()
	}
}

// Render builds the MIME message for m.
func (n *Notifier) Render(m Mail) ([]byte, error) {
	data := map[string]any{"BaseURL": n.baseURL, "Subject": m.Subject}
	for k, v := range m.Data {
		data[k] = v
	}
	name := m.Template
	if name == "" {
		name = TemplateGeneric
	}
	var body bytes.Buffer
	if err := n.tpl.ExecuteTemplate(&body, name, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", n.from)
	fmt.Fprintf(&msg, "To: %s\r\n", m.To)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", m.Subject))
	fmt.Fprintf(&msg, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n\r\n")
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}

// Link joins path onto the public base URL.
func (n *Notifier) Link(path string) string { return n.baseURL + path }
