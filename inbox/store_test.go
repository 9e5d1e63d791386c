package inbox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

const inboxFixture = `[
  {"id": "1", "sender": "boss@corp.com", "subject": "Meeting", "body": "Meeting at 3pm tomorrow",
   "timestamp": "2023-10-25T09:00:00", "category": null, "action_items": null, "processed": false},
  {"id": "2", "sender": "news@letter.io", "subject": "Weekly digest", "body": "Top stories",
   "timestamp": "2023-10-24T08:00:00", "category": "Newsletter",
   "action_items": [{"task": "Read", "deadline": null}], "processed": true}
]`

func writeInbox(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inbox.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestStore_Load(t *testing.T) {
	s := NewStore(writeInbox(t, inboxFixture), zerolog.Nop())

	all := s.All()
	if len(all) != 2 {
		t.Fatalf("len(All) = %d, want 2", len(all))
	}
	if all[0].ID != "1" || all[1].ID != "2" {
		t.Errorf("order = %s,%s, want 1,2", all[0].ID, all[1].ID)
	}
	if all[0].Category != nil {
		t.Errorf("email 1 category = %v, want nil", *all[0].Category)
	}
	if all[1].CategoryName() != "Newsletter" || len(all[1].ActionItems) != 1 || all[1].ActionItems[0].Deadline != nil {
		t.Errorf("email 2 = %+v", all[1])
	}
}

func TestStore_MissingAndMalformed(t *testing.T) {
	missing := NewStore(filepath.Join(t.TempDir(), "none.json"), zerolog.Nop())
	if n := len(missing.All()); n != 0 {
		t.Errorf("missing file: len(All) = %d", n)
	}
	malformed := NewStore(writeInbox(t, `{"not": "an array"}`), zerolog.Nop())
	if n := len(malformed.All()); n != 0 {
		t.Errorf("malformed file: len(All) = %d", n)
	}
}

func TestStore_InvalidRecordKeptOnSave(t *testing.T) {
	path := writeInbox(t, `[
  {"id": "", "sender": "a", "subject": "bad", "body": "b", "timestamp": "2023-10-25T09:00:00", "processed": false},
  {"id": "ok", "sender": "a", "subject": "s", "body": "b", "timestamp": "2023-10-25T09:00:00", "processed": false},
  {"id": 5, "subject": "undecodable"},
  {"id": "late", "sender": "a", "subject": "s", "body": "b", "timestamp": "not a time", "processed": false},
  {"id": "ok2", "sender": "a", "subject": "s", "body": "b", "timestamp": "2023-10-26T09:00:00", "processed": true}
]`)
	s := NewStore(path, zerolog.Nop())
	all := s.All()
	if len(all) != 2 || all[0].ID != "ok" || all[1].ID != "ok2" {
		t.Fatalf("All = %+v, want records ok and ok2", all)
	}
	if _, ok := s.Get(""); ok {
		t.Error("record with empty id was loaded")
	}

	fresh, _ := NewEmail("new", "x@y.z", "Hello", "hi", "2023-10-27T10:00:00")
	if _, err := s.Add(fresh); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading saved file: %v", err)
	}
	saved := string(data)
	order := []string{`"bad"`, `"ok"`, `"undecodable"`, `"late"`, `"ok2"`, `"new"`}
	last := -1
	for _, marker := range order {
		i := strings.Index(saved, marker)
		if i < 0 {
			t.Fatalf("%s missing from saved file:\n%s", marker, saved)
		}
		if i < last {
			t.Errorf("%s out of order in saved file:\n%s", marker, saved)
		}
		last = i
	}

	if n := len(NewStore(path, zerolog.Nop()).All()); n != 3 {
		t.Errorf("reloaded len(All) = %d, want 3", n)
	}
}

func TestStore_MutateSaveReload(t *testing.T) {
	path := writeInbox(t, inboxFixture)
	s := NewStore(path, zerolog.Nop())

	deadline := "tomorrow 3pm"
	ok := s.Mutate("1", func(e *Email) {
		cat := "Important"
		e.Category = &cat
		e.ActionItems = []ActionItem{{Task: "Prepare slides", Deadline: &deadline}}
		e.Processed = true
	})
	if !ok {
		t.Fatal("Mutate returned false")
	}
	if s.Mutate("missing", func(*Email) {}) {
		t.Error("Mutate of unknown id returned true")
	}
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, ok := NewStore(path, zerolog.Nop()).Get("1")
	if !ok {
		t.Fatal("email 1 missing after reload")
	}
	if got.CategoryName() != "Important" || !got.Processed {
		t.Errorf("reloaded = %+v", got)
	}
	if len(got.ActionItems) != 1 || got.ActionItems[0].Task != "Prepare slides" || *got.ActionItems[0].Deadline != deadline {
		t.Errorf("action items = %+v", got.ActionItems)
	}
}

func TestStore_GetReturnsCopy(t *testing.T) {
	s := NewStore(writeInbox(t, inboxFixture), zerolog.Nop())
	e, _ := s.Get("2")
	*e.Category = "Spam"
	e.ActionItems[0].Task = "changed"

	again, _ := s.Get("2")
	if again.CategoryName() != "Newsletter" || again.ActionItems[0].Task != "Read" {
		t.Errorf("store mutated through copy: %+v", again)
	}
}

func TestStore_Add(t *testing.T) {
	s := NewStore(writeInbox(t, inboxFixture), zerolog.Nop())
	fresh, err := NewEmail("3", "x@y.z", "Hello", "hi", "2023-10-26T10:00:00")
	if err != nil {
		t.Fatalf("NewEmail: %v", err)
	}
	dup, _ := NewEmail("1", "x@y.z", "Dup", "hi", "2023-10-26T10:00:00")

	n, err := s.Add(fresh, dup)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if n != 1 {
		t.Errorf("added = %d, want 1", n)
	}
	if len(s.All()) != 3 {
		t.Errorf("len(All) = %d, want 3", len(s.All()))
	}

	if _, err := s.Add(Email{ID: "4", Timestamp: "garbage"}); err == nil {
		t.Error("Add accepted an invalid record")
	}
}
