package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bassamadnan/mailagent/inbox"
)

// processEmailCmd runs the pipeline on one email and reports the stored
// outcome.
func processEmailCmd(ctx context.Context, p EmailProcessor, index int, email inbox.Email) tea.Cmd {
	return func() tea.Msg {
		res := ProcessResult{ID: email.ID, Subject: email.Subject}
		res.OK = p.ProcessEmail(ctx, email.ID)
		if updated, ok := p.Email(email.ID); ok {
			res.Category = updated.CategoryName()
			res.ActionItems = len(updated.ActionItems)
		}
		return emailProcessedMsg{Index: index, Result: res}
	}
}

// statusTickCmd creates a ticker for the spinner.
func statusTickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return StatusTickMsg{Time: t}
	})
}
