package tui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/rivo/tview"

	"github.com/bassamadnan/mailagent/drafts"
	"github.com/bassamadnan/mailagent/inbox"
	"github.com/bassamadnan/mailagent/pipeline"
)

// truncate shortens s to at most maxWidth terminal cells, adding "..." if
// truncated.
func truncate(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth < 3 {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, "...")
}

// shortSender drops the address part of `Name <addr>` senders.
func shortSender(from string) string {
	if idx := strings.Index(from, "<"); idx > 0 {
		return strings.TrimSpace(from[:idx])
	}
	if from == "" {
		return "(Unknown Sender)"
	}
	return from
}

func categoryLabel(e inbox.Email) string {
	if name := e.CategoryName(); name != "" {
		return name
	}
	return pipeline.CategoryUncategorized
}

// nextCategory returns the filter after current in pipeline.Categories,
// wrapping around.
func nextCategory(current string) string {
	for i, c := range pipeline.Categories {
		if c == current {
			return pipeline.Categories[(i+1)%len(pipeline.Categories)]
		}
	}
	return pipeline.Categories[0]
}

// emailListItem returns the main and secondary text of an inbox list row.
// Unprocessed emails carry a red marker.
func emailListItem(e inbox.Email) (string, string) {
	subject := e.Subject
	if subject == "" {
		subject = "(No Subject)"
	}
	marker := "  "
	if !e.Processed {
		marker = "[red]●[-] "
	}
	main := fmt.Sprintf("%s%s", marker, tview.Escape(truncate(subject, 40)))
	secondary := fmt.Sprintf("[::d]%s · %s · %s",
		tview.Escape(truncate(shortSender(e.Sender), 20)),
		inbox.FormatTimestamp(e.Timestamp),
		tview.Escape(truncate(categoryLabel(e), 20)))
	return main, secondary
}

// emailDetail renders an email for the preview pane. summary is shown when
// non-empty.
func emailDetail(e inbox.Email, summary string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[::b]From:[::-] %s\n", tview.Escape(e.Sender))
	fmt.Fprintf(&b, "[::b]Date:[::-] %s\n", inbox.FormatTimestamp(e.Timestamp))
	fmt.Fprintf(&b, "[::b]Category:[::-] %s\n", tview.Escape(categoryLabel(e)))
	fmt.Fprintf(&b, "[::b]Subject:[::-] %s\n\n", tview.Escape(e.Subject))
	b.WriteString(strings.Repeat("─", 60) + "\n\n")
	b.WriteString(tview.Escape(strings.ReplaceAll(e.Body, "\r\n", "\n")))
	b.WriteString("\n")

	if len(e.ActionItems) > 0 {
		b.WriteString("\n[yellow::b]Action Items[-::-]\n")
		for _, item := range e.ActionItems {
			deadline := "None"
			if item.Deadline != nil && *item.Deadline != "" {
				deadline = *item.Deadline
			}
			fmt.Fprintf(&b, "  • %s [::d](deadline: %s)[::-]\n", tview.Escape(item.Task), tview.Escape(deadline))
		}
	}
	if summary != "" {
		fmt.Fprintf(&b, "\n[green::b]Summary[-::-]\n%s\n", tview.Escape(summary))
	}
	return b.String()
}

func draftListItem(d drafts.Draft) (string, string) {
	subject := d.Subject
	if subject == "" {
		subject = "(No Subject)"
	}
	secondary := "[::d]" + inbox.FormatTimestamp(d.CreatedAt)
	if d.EmailID != nil {
		secondary += " · reply"
	}
	return tview.Escape(truncate(subject, 40)), secondary
}
