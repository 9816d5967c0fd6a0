// Package notification renders clinic alerts from templates and hands them to
// a delivery channel (structured log or Kafka topic).
package notification

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Kind identifies what an alert is about.
type Kind string

const (
	KindStartingSoon  Kind = "starting_soon"
	KindDueSoon       Kind = "due_soon"
	KindStatusChanged Kind = "status_changed"
)

// Audience is who an alert is addressed to.
type Audience string

const (
	AudienceOwner Audience = "owner"
	AudienceStaff Audience = "staff"
)

// Notification is a single rendered alert.
type Notification struct {
	ID            string            `json:"id"`
	Kind          Kind              `json:"kind"`
	Audience      Audience          `json:"audience"`
	Recipient     string            `json:"recipient"`
	AppointmentID string            `json:"appointment_id"`
	Subject       string            `json:"subject"`
	Body          string            `json:"body"`
	TemplateID    string            `json:"template_id,omitempty"`
	Data          map[string]string `json:"data,omitempty"`
	Status        string            `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
	SentAt        *time.Time        `json:"sent_at,omitempty"`
	Error         string            `json:"error,omitempty"`
}

// Sender delivers a rendered notification.
type Sender interface {
	Send(ctx context.Context, n *Notification) error
}

// -- Templates --

// Template defines a reusable alert.
type Template struct {
	ID       string   `json:"id"`
	Kind     Kind     `json:"kind"`
	Audience Audience `json:"audience"`
	Subject  string   `json:"subject"`
	Body     string   `json:"body"`
}

const (
	TemplateStartingSoon  = "appointment-starting-soon"
	TemplateDueSoon       = "appointment-due-soon"
	TemplateStatusChanged = "appointment-status-changed"
)

// TemplateEngine manages alert templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateEngine creates a TemplateEngine with the clinic templates registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{templates: make(map[string]*Template)}
	for _, t := range []Template{
		{
			ID:       TemplateStartingSoon,
			Kind:     KindStartingSoon,
			Audience: AudienceOwner,
			Subject:  "{{pet_name}}'s appointment starts soon",
			Body:     "{{pet_name}} is expected at the clinic on {{date}} at {{time}} for {{reason}}.",
		},
		{
			ID:       TemplateDueSoon,
			Kind:     KindDueSoon,
			Audience: AudienceStaff,
			Subject:  "Upcoming: {{pet_name}} at {{time}}",
			Body:     "{{pet_name}} ({{reason}}) is booked for {{date}} at {{time}}.",
		},
		{
			ID:       TemplateStatusChanged,
			Kind:     KindStatusChanged,
			Audience: AudienceOwner,
			Subject:  "Appointment {{status}}",
			Body:     "Your appointment for {{pet_name}} on {{date}} at {{time}} is now {{status}}.{{detail}}",
		},
	} {
		e.RegisterTemplate(t)
	}
	return e
}

// RegisterTemplate adds or replaces a template in the engine.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render looks up a template by ID and performs {{key}} replacement. Keys
// present in the template but absent from data are left as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (*Template, string, string, error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return nil, "", "", fmt.Errorf("template %q not found", templateID)
	}

	subject, body := t.Subject, t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return t, subject, body, nil
}

// -- Dispatcher --

// Dispatcher renders alerts, sends them and keeps a bounded in-memory history.
type Dispatcher struct {
	sender    Sender
	templates *TemplateEngine
	keep      int

	mu      sync.RWMutex
	history []*Notification
}

// NewDispatcher constructs a Dispatcher remembering the last keep alerts.
func NewDispatcher(sender Sender, tpl *TemplateEngine, keep int) *Dispatcher {
	if keep <= 0 {
		keep = 500
	}
	return &Dispatcher{sender: sender, templates: tpl, keep: keep}
}

// Dispatch renders templateID with data and sends it to recipient. The
// returned notification carries the delivery outcome even when err is set.
func (d *Dispatcher) Dispatch(ctx context.Context, templateID, recipient, appointmentID string, data map[string]string) (*Notification, error) {
	t, subject, body, err := d.templates.Render(templateID, data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	n := &Notification{
		ID:            uuid.New().String(),
		Kind:          t.Kind,
		Audience:      t.Audience,
		Recipient:     recipient,
		AppointmentID: appointmentID,
		Subject:       subject,
		Body:          body,
		TemplateID:    templateID,
		Data:          data,
		Status:        "pending",
		CreatedAt:     time.Now().UTC(),
	}

	sendErr := d.sender.Send(ctx, n)
	if sendErr != nil {
		n.Status = "failed"
		n.Error = sendErr.Error()
	} else {
		n.Status = "sent"
		sentAt := time.Now().UTC()
		n.SentAt = &sentAt
	}
	d.remember(n)
	return n, sendErr
}

func (d *Dispatcher) remember(n *Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.history = append(d.history, n)
	if over := len(d.history) - d.keep; over > 0 {
		d.history = append([]*Notification(nil), d.history[over:]...)
	}
}

// ListByRecipient returns the newest alerts for recipient first, up to limit.
func (d *Dispatcher) ListByRecipient(recipient string, limit int) []*Notification {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []*Notification
	for i := len(d.history) - 1; i >= 0 && len(out) < limit; i-- {
		if d.history[i].Recipient == recipient {
			out = append(out, d.history[i])
		}
	}
	return out
}

// Stats returns counts of remembered alerts grouped by status.
func (d *Dispatcher) Stats() map[string]int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	stats := make(map[string]int)
	for _, n := range d.history {
		stats[n.Status]++
	}
	return stats
}

// -- HTTP --

type Handler struct {
	dispatcher *Dispatcher
}

func NewHandler(d *Dispatcher) *Handler {
	return &Handler{dispatcher: d}
}

func (h *Handler) RegisterRoutes(g *echo.Group, m ...echo.MiddlewareFunc) {
	g.GET("/notifications", h.List, m...)
	g.GET("/notifications/stats", h.Stats, m...)
}

// List handles GET /notifications?recipient=...
func (h *Handler) List(c echo.Context) error {
	recipient := c.QueryParam("recipient")
	if recipient == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "recipient query parameter is required")
	}
	list := h.dispatcher.ListByRecipient(recipient, 100)
	if list == nil {
		list = []*Notification{}
	}
	return c.JSON(http.StatusOK, list)
}

// Stats handles GET /notifications/stats.
func (h *Handler) Stats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.dispatcher.Stats())
}
