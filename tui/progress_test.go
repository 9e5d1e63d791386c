package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bassamadnan/mailagent/inbox"
)

type fakeProcessor struct {
	emails    map[string]inbox.Email
	processed []string
	// Model becomes unavailable after this many emails; zero means never.
	failAfter int
}

func (f *fakeProcessor) ModelAvailable() bool {
	return f.failAfter == 0 || len(f.processed) < f.failAfter
}

func (f *fakeProcessor) ProcessEmail(_ context.Context, id string) bool {
	e, ok := f.emails[id]
	if !ok {
		return false
	}
	f.processed = append(f.processed, id)
	cat := "To-Do"
	e.Category = &cat
	e.ActionItems = []inbox.ActionItem{{Task: "reply"}}
	e.Processed = true
	f.emails[id] = e
	return true
}

func (f *fakeProcessor) Email(id string) (inbox.Email, bool) {
	e, ok := f.emails[id]
	return e, ok
}

func newFakeProcessor(ids ...string) (*fakeProcessor, []inbox.Email) {
	f := &fakeProcessor{emails: make(map[string]inbox.Email)}
	var pending []inbox.Email
	for _, id := range ids {
		e := inbox.Email{ID: id, Subject: "Subject " + id}
		f.emails[id] = e
		pending = append(pending, e)
	}
	return f, pending
}

func TestProcessEmailCmd(t *testing.T) {
	f, pending := newFakeProcessor("a")
	msg := processEmailCmd(context.Background(), f, 0, pending[0])()
	got, ok := msg.(emailProcessedMsg)
	if !ok {
		t.Fatalf("msg = %T, want emailProcessedMsg", msg)
	}
	want := ProcessResult{ID: "a", Subject: "Subject a", Category: "To-Do", ActionItems: 1, OK: true}
	if got.Index != 0 || got.Result != want {
		t.Errorf("msg = %+v, want %+v", got, want)
	}
}

func TestProcessEmailCmd_UnknownEmail(t *testing.T) {
	f, _ := newFakeProcessor()
	msg := processEmailCmd(context.Background(), f, 3, inbox.Email{ID: "gone"})().(emailProcessedMsg)
	if msg.Result.OK || msg.Index != 3 {
		t.Errorf("msg = %+v", msg)
	}
}

func TestProgressModel_RunsSequentially(t *testing.T) {
	f, pending := newFakeProcessor("a", "b")
	m := NewProgressModel(context.Background(), f, pending)
	if m.Init() == nil {
		t.Fatal("Init returned nil command")
	}

	var model tea.Model = m
	for i := range pending {
		msg := processEmailCmd(context.Background(), f, i, pending[i])()
		var cmd tea.Cmd
		model, cmd = model.Update(msg)
		if cmd == nil {
			t.Fatalf("Update after email %d returned nil command", i)
		}
	}

	pm := model.(ProgressModel)
	if pm.Processed() != 2 || len(pm.Results()) != 2 {
		t.Errorf("Processed = %d, results = %d, want 2", pm.Processed(), len(pm.Results()))
	}
	if !pm.done {
		t.Error("model not done after last email")
	}
	if strings.Join(f.processed, ",") != "a,b" {
		t.Errorf("processed order = %v", f.processed)
	}
	if view := pm.View(); !strings.Contains(view, "Processed 2 emails") || !strings.Contains(view, "Subject b") {
		t.Errorf("View = %q", view)
	}
}

func TestProgressModel_IgnoresStaleResult(t *testing.T) {
	f, pending := newFakeProcessor("a", "b")
	m := NewProgressModel(context.Background(), f, pending)
	model, cmd := m.Update(emailProcessedMsg{Index: 1, Result: ProcessResult{ID: "b", OK: true}})
	if cmd != nil || len(model.(ProgressModel).Results()) != 0 {
		t.Error("out-of-order result was accepted")
	}
}

func TestProgressModel_Quit(t *testing.T) {
	f, pending := newFakeProcessor("a")
	m := NewProgressModel(context.Background(), f, pending)
	model, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("q returned nil command")
	}
	pm := model.(ProgressModel)
	if !pm.Interrupted() {
		t.Error("model not interrupted after q")
	}
	if !strings.Contains(pm.View(), "Stopped after 0 of 1") {
		t.Errorf("View = %q", pm.View())
	}
}

func TestProgressModel_CancelledContextStops(t *testing.T) {
	f, pending := newFakeProcessor("a", "b")
	ctx, cancel := context.WithCancel(context.Background())
	m := NewProgressModel(ctx, f, pending)
	cancel()
	model, _ := m.Update(processEmailCmd(ctx, f, 0, pending[0])())
	pm := model.(ProgressModel)
	if !pm.done || len(pm.Results()) != 1 {
		t.Errorf("done = %v, results = %d", pm.done, len(pm.Results()))
	}
}

func TestProgressModel_StopsWhenModelUnavailable(t *testing.T) {
	f, pending := newFakeProcessor("a", "b", "c")
	f.failAfter = 1
	m := NewProgressModel(context.Background(), f, pending)

	model, cmd := m.Update(processEmailCmd(context.Background(), f, 0, pending[0])())
	pm := model.(ProgressModel)
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if !pm.Unavailable() || !pm.done || len(pm.Results()) != 1 {
		t.Errorf("unavailable = %v, done = %v, results = %d", pm.Unavailable(), pm.done, len(pm.Results()))
	}
	if len(f.processed) != 1 {
		t.Errorf("processed = %v, want only a", f.processed)
	}
	if !strings.Contains(pm.View(), "Model unavailable, stopped after 1 of 3") {
		t.Errorf("View = %q", pm.View())
	}
}

func TestProgressModel_Empty(t *testing.T) {
	m := NewProgressModel(context.Background(), &fakeProcessor{}, nil)
	if m.Init() == nil {
		t.Error("Init for empty batch should quit")
	}
	if !strings.Contains(m.View(), "Processed 0 emails") {
		t.Errorf("View = %q", m.View())
	}
}
