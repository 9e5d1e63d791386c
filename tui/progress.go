package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bassamadnan/mailagent/inbox"
)

// EmailProcessor is what the progress view needs from the pipeline.
type EmailProcessor interface {
	ProcessEmail(ctx context.Context, id string) bool
	Email(id string) (inbox.Email, bool)
	ModelAvailable() bool
}

// ProcessResult is the outcome of processing one email.
type ProcessResult struct {
	ID          string
	Subject     string
	Category    string
	ActionItems int
	OK          bool
}

// ProgressModel processes a batch of emails one after another and shows the
// outcome of each as it completes.
type ProgressModel struct {
	ctx     context.Context
	proc    EmailProcessor
	pending []inbox.Email
	results []ProcessResult

	frame       int
	width       int
	done        bool
	interrupted bool
	unavailable bool
}

func NewProgressModel(ctx context.Context, proc EmailProcessor, pending []inbox.Email) ProgressModel {
	return ProgressModel{
		ctx:     ctx,
		proc:    proc,
		pending: pending,
		done:    len(pending) == 0,
	}
}

func (m ProgressModel) Init() tea.Cmd {
	if m.done {
		return tea.Quit
	}
	return tea.Batch(
		processEmailCmd(m.ctx, m.proc, 0, m.pending[0]),
		statusTickCmd(100*time.Millisecond),
	)
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.interrupted = true
			return m, tea.Quit
		}

	case StatusTickMsg:
		if m.done {
			return m, nil
		}
		m.frame = (m.frame + 1) % len(spinnerFrames)
		return m, statusTickCmd(100 * time.Millisecond)

	case emailProcessedMsg:
		if msg.Index != len(m.results) {
			return m, nil
		}
		m.results = append(m.results, msg.Result)
		next := len(m.results)
		if next < len(m.pending) && !m.proc.ModelAvailable() {
			m.unavailable = true
		}
		if next >= len(m.pending) || m.ctx.Err() != nil || m.unavailable {
			m.done = true
			return m, tea.Quit
		}
		return m, processEmailCmd(m.ctx, m.proc, next, m.pending[next])
	}
	return m, nil
}

func (m ProgressModel) View() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Processing inbox"))
	b.WriteString("\n\n")

	width := m.width - 30
	if width < 20 {
		width = 40
	}
	for _, r := range m.results {
		mark := OKMarkStyle.Render("✓")
		if !r.OK {
			mark = FailMarkStyle.Render("✗")
		}
		category := r.Category
		if category == "" {
			category = "Uncategorized"
		}
		fmt.Fprintf(&b, "%s %s %s\n", mark,
			SubjectStyle.Render(truncate(r.Subject, width)),
			SecondaryStyle.Render(fmt.Sprintf("→ %s, %d action items", truncate(category, 30), r.ActionItems)))
	}
	if !m.done && !m.interrupted && len(m.results) < len(m.pending) {
		current := m.pending[len(m.results)]
		fmt.Fprintf(&b, "%s %s\n", SpinnerStyle.Render(spinnerFrames[m.frame]),
			SecondaryStyle.Render(truncate(current.Subject, width)))
	}

	status := StatusBarNormalStyle.Render(fmt.Sprintf("%d/%d processed · q to stop", len(m.results), len(m.pending)))
	switch {
	case m.interrupted:
		status = StatusBarErrorStyle.Render(fmt.Sprintf("Stopped after %d of %d", len(m.results), len(m.pending)))
	case m.unavailable:
		status = StatusBarErrorStyle.Render(fmt.Sprintf("Model unavailable, stopped after %d of %d", len(m.results), len(m.pending)))
	case m.done:
		status = StatusBarSuccessStyle.Render(fmt.Sprintf("Processed %d emails", m.Processed()))
	}
	b.WriteString(BodyStyle.Render(status))
	b.WriteString("\n")
	return b.String()
}

// Processed returns how many emails were processed successfully.
func (m ProgressModel) Processed() int {
	n := 0
	for _, r := range m.results {
		if r.OK {
			n++
		}
	}
	return n
}

func (m ProgressModel) Results() []ProcessResult {
	return m.results
}

// Interrupted reports whether the user stopped the run early.
func (m ProgressModel) Interrupted() bool {
	return m.interrupted
}

// Unavailable reports whether the run stopped because the model was not
// taking calls.
func (m ProgressModel) Unavailable() bool {
	return m.unavailable
}
