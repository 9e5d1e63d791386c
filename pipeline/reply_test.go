package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestFillReplyTemplate(t *testing.T) {
	vars := map[string]string{"user_instructions": "Be brief. Tone: Casual", "sender": "a@b.c", "subject": "Hi", "body": "Hello"}
	tests := []struct {
		name     string
		template string
		want     string
		wantErr  bool
	}{
		{"all placeholders", "{sender}|{subject}|{body}|{user_instructions}", "a@b.c|Hi|Hello|Be brief. Tone: Casual", false},
		{"escaped braces", "{{json}} {sender}{subject}{body}{user_instructions} }}", "{json} a@b.cHiHelloBe brief. Tone: Casual }", false},
		{"conversion suffix ignored", "{sender!r}{sender}{subject}{body}{user_instructions}", "a@b.ca@b.cHiHelloBe brief. Tone: Casual", false},
		{"missing required placeholder", "{sender} {subject} {body}", "", true},
		{"escaped placeholder does not count", "{{sender}} {subject}{body}{user_instructions}", "", true},
		{"unknown placeholder", "{sender}{subject}{body}{user_instructions}{signature}", "", true},
		{"unclosed brace", "{sender}{subject}{body}{user_instructions} {oops", "", true},
		{"stray closing brace", "{sender}{subject}{body}{user_instructions} }", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FillReplyTemplate(tt.template, vars)
			if tt.wantErr {
				if !errors.Is(err, ErrFormatting) {
					t.Fatalf("error = %v, want ErrFormatting", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("FillReplyTemplate: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDraftReply(t *testing.T) {
	b := &scriptedBackend{replies: []string{"Thanks, see you at 3."}}
	f := newFixture(t, promptsJSON, b)

	d, err := f.proc.DraftReply(context.Background(), "e1", "Confirm attendance", "Professional")
	if err != nil {
		t.Fatalf("DraftReply: %v", err)
	}
	if d.Subject != "Re: Sync" || d.Body != "Thanks, see you at 3." || d.EmailID == nil || *d.EmailID != "e1" {
		t.Errorf("draft = %+v", d)
	}
	if !strings.Contains(b.prompts[0], "Instructions: Confirm attendance. Tone: Professional") ||
		!strings.Contains(b.prompts[0], "Reply to boss@corp.com about Sync.") {
		t.Errorf("prompt = %q", b.prompts[0])
	}
	if len(f.drafts.All()) != 1 {
		t.Errorf("stored drafts = %d, want 1", len(f.drafts.All()))
	}
}

func TestDraftReply_BrokenTemplatePropagates(t *testing.T) {
	broken := `{"auto_reply": {"name": "Reply", "description": "", "template": "Reply to {sender}: {body}"}}`
	b := &scriptedBackend{}
	f := newFixture(t, broken, b)

	_, err := f.proc.DraftReply(context.Background(), "e1", "x", "Casual")
	if !errors.Is(err, ErrFormatting) {
		t.Fatalf("DraftReply error = %v, want ErrFormatting", err)
	}
	if len(b.prompts) != 0 || len(f.drafts.All()) != 0 {
		t.Error("broken template still reached the model or the draft store")
	}
}

func TestDraftReply_MissingTemplateAndEmail(t *testing.T) {
	f := newFixture(t, `{}`, &scriptedBackend{})
	if _, err := f.proc.DraftReply(context.Background(), "e1", "x", "Casual"); !errors.Is(err, ErrTemplateMissing) {
		t.Errorf("error = %v, want ErrTemplateMissing", err)
	}
	if _, err := f.proc.DraftReply(context.Background(), "zzz", "x", "Casual"); !errors.Is(err, ErrEmailNotFound) {
		t.Errorf("error = %v, want ErrEmailNotFound", err)
	}
}

func TestNewDraft(t *testing.T) {
	b := &scriptedBackend{replies: []string{"Dear team, ..."}}
	f := newFixture(t, promptsJSON, b)

	d, err := f.proc.NewDraft(context.Background(), "Kickoff", "Thank them for the meeting")
	if err != nil {
		t.Fatalf("NewDraft: %v", err)
	}
	if d.Subject != "Kickoff" || d.Body != "Dear team, ..." || d.EmailID != nil {
		t.Errorf("draft = %+v", d)
	}
	if !strings.Contains(b.prompts[0], "Subject: Kickoff\n\nContent: Thank them for the meeting") {
		t.Errorf("prompt = %q", b.prompts[0])
	}

	if _, err := f.proc.NewDraft(context.Background(), "", "x"); !errors.Is(err, ErrMissingInput) {
		t.Errorf("NewDraft without subject error = %v", err)
	}
}
