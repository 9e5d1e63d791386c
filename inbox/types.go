package inbox

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidEmail = errors.New("invalid email record")

// ActionItem is a task extracted from an email body.
type ActionItem struct {
	Task     string  `json:"task"`
	Deadline *string `json:"deadline"`
}

// Email is one message of the inbox snapshot. Only Category, ActionItems and
// Processed are changed after load.
type Email struct {
	ID          string       `json:"id"`
	Sender      string       `json:"sender"`
	Subject     string       `json:"subject"`
	Body        string       `json:"body"`
	Timestamp   string       `json:"timestamp"`
	Category    *string      `json:"category"`
	ActionItems []ActionItem `json:"action_items"`
	Processed   bool         `json:"processed"`
}

// NewEmail builds an unprocessed record and validates it.
func NewEmail(id, sender, subject, body, timestamp string) (Email, error) {
	e := Email{ID: id, Sender: sender, Subject: subject, Body: body, Timestamp: timestamp}
	if err := e.Validate(); err != nil {
		return Email{}, err
	}
	return e, nil
}

// Validate checks the fields that must hold for every stored record.
func (e Email) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidEmail)
	}
	if _, err := ParseTimestamp(e.Timestamp); err != nil {
		return fmt.Errorf("%w: id %s: %v", ErrInvalidEmail, e.ID, err)
	}
	return nil
}

// CategoryName returns the category or "" when none has been assigned.
func (e Email) CategoryName() string {
	if e.Category == nil {
		return ""
	}
	return *e.Category
}

func (e Email) clone() Email {
	c := e
	if e.Category != nil {
		cat := *e.Category
		c.Category = &cat
	}
	if e.ActionItems != nil {
		c.ActionItems = make([]ActionItem, len(e.ActionItems))
		for i, it := range e.ActionItems {
			c.ActionItems[i] = it
			if it.Deadline != nil {
				d := *it.Deadline
				c.ActionItems[i].Deadline = &d
			}
		}
	}
	return c
}

// ISO-8601 shapes seen in inbox snapshots, with and without a UTC offset.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999Z07:00",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp. Values without an offset are
// read as local time.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("not an ISO-8601 timestamp: %q", s)
}

// FormatTimestamp renders an ISO-8601 timestamp for display, e.g.
// "Oct 25, 2023 09:00 AM". Unparsable input is returned unchanged.
func FormatTimestamp(s string) string {
	t, err := ParseTimestamp(s)
	if err != nil {
		return s
	}
	return t.Format("Jan 02, 2006 03:04 PM")
}
