package tui

import (
	"strings"
	"testing"

	"github.com/bassamadnan/mailagent/drafts"
	"github.com/bassamadnan/mailagent/inbox"
	"github.com/bassamadnan/mailagent/pipeline"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"hello", 10, "hello"},
		{"hello world", 8, "hello..."},
		{"hello", 2, "he"},
		{"hello", 0, ""},
		{"日本語のメール", 7, "日本..."},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestShortSender(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Jane Doe <jane@example.com>", "Jane Doe"},
		{"jane@example.com", "jane@example.com"},
		{"<jane@example.com>", "<jane@example.com>"},
		{"", "(Unknown Sender)"},
	}
	for _, tt := range tests {
		if got := shortSender(tt.in); got != tt.want {
			t.Errorf("shortSender(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNextCategory(t *testing.T) {
	if got := nextCategory(pipeline.CategoryAll); got != pipeline.Categories[1] {
		t.Errorf("nextCategory(All) = %q", got)
	}
	last := pipeline.Categories[len(pipeline.Categories)-1]
	if got := nextCategory(last); got != pipeline.CategoryAll {
		t.Errorf("nextCategory(%q) = %q, want wrap to All", last, got)
	}
	if got := nextCategory("bogus"); got != pipeline.CategoryAll {
		t.Errorf("nextCategory(bogus) = %q", got)
	}
}

func TestEmailListItem(t *testing.T) {
	cat := "Important"
	e := inbox.Email{
		ID: "e1", Sender: "Boss <boss@corp.com>", Subject: "[URGENT] Sync",
		Timestamp: "2023-10-25T14:30:00", Category: &cat,
	}
	main, secondary := emailListItem(e)
	if !strings.Contains(main, "[red]●") {
		t.Errorf("unprocessed email has no marker: %q", main)
	}
	if !strings.Contains(main, "[URGENT[]") {
		t.Errorf("subject brackets not escaped: %q", main)
	}
	if !strings.Contains(secondary, "Boss") || !strings.Contains(secondary, "Oct 25, 2023 02:30 PM") || !strings.Contains(secondary, "Important") {
		t.Errorf("secondary = %q", secondary)
	}

	e.Processed = true
	e.Category = nil
	main, secondary = emailListItem(e)
	if strings.Contains(main, "●") {
		t.Errorf("processed email still marked: %q", main)
	}
	if !strings.Contains(secondary, "Uncategorized") {
		t.Errorf("secondary = %q, want Uncategorized", secondary)
	}
}

func TestEmailDetail(t *testing.T) {
	deadline := "Friday"
	e := inbox.Email{
		Sender: "a@b.c", Subject: "Plan", Body: "line1\r\nline2", Timestamp: "2023-10-25T09:00:00",
		ActionItems: []inbox.ActionItem{{Task: "Send deck", Deadline: &deadline}, {Task: "Book room"}},
	}
	got := emailDetail(e, "Short summary")
	for _, want := range []string{"line1\nline2", "Send deck", "deadline: Friday", "deadline: None", "Summary", "Short summary", "Category:[::-] Uncategorized"} {
		if !strings.Contains(got, want) {
			t.Errorf("detail missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(emailDetail(e, ""), "Summary") {
		t.Error("empty summary rendered")
	}
}

func TestDraftListItem(t *testing.T) {
	id := "e1"
	main, secondary := draftListItem(drafts.Draft{Subject: "Re: Sync", CreatedAt: "2023-10-25T09:00:00.000000", EmailID: &id})
	if main != "Re: Sync" {
		t.Errorf("main = %q", main)
	}
	if !strings.Contains(secondary, "Oct 25, 2023 09:00 AM") || !strings.Contains(secondary, "reply") {
		t.Errorf("secondary = %q", secondary)
	}
	main, _ = draftListItem(drafts.Draft{})
	if main != "(No Subject)" {
		t.Errorf("empty subject main = %q", main)
	}
}
