package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/bassamadnan/mailagent/drafts"
	"github.com/bassamadnan/mailagent/inbox"
	"github.com/bassamadnan/mailagent/prompts"
)

const testInbox = `[
  {"id": "e1", "sender": "boss@corp.com", "subject": "Sync", "body": "Meeting at 3pm tomorrow",
   "timestamp": "2023-10-25T09:00:00", "category": null, "action_items": null, "processed": false},
  {"id": "e2", "sender": "billing@vendor.com", "subject": "Payment due", "body": "Invoice #123 attached.",
   "timestamp": "2023-10-25T10:00:00", "category": "Important", "action_items": null, "processed": true}
]`

const testPrompts = `{
  "categorization": {"name": "Categorization", "description": "Sorts mail", "template": "Categorize."},
  "action_extraction": {"name": "Action Items", "description": "", "template": "Extract from {email_body}"}
}`

// setupWorkspace writes a settings file and data files into a temp dir and
// returns the --config argument pointing at it.
func setupWorkspace(t *testing.T) (string, string) {
	t.Helper()
	for _, key := range []string{"GEMINI_API_KEY", "OPENAI_API_KEY", "MAILAGENT_PROVIDER", "MAILAGENT_DATA_DIR", "MAILAGENT_LOG_LEVEL"} {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	settings := "data_dir = " + quote(dir) + "\n\n[log]\nfile = " + quote(filepath.Join(dir, "test.log")) +
		"\nlevel = \"debug\"\n\n[import]\nignore_senders = [\"noreply@\"]\n"
	files := map[string]string{
		"mock_inbox.json": testInbox,
		"prompts.json":    testPrompts,
		"mailagent.toml":  settings,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
	return "--config=" + filepath.Join(dir, "mailagent.toml"), dir
}

func quote(s string) string {
	return `'` + s + `'`
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestListAndSearch(t *testing.T) {
	cfgArg, _ := setupWorkspace(t)

	out, err := runCommand(t, cfgArg, "list", "--category=All")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "*e1") || !strings.Contains(out, "Payment due") {
		t.Errorf("list output = %q", out)
	}

	out, err = runCommand(t, cfgArg, "list", "--category=Important")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if strings.Contains(out, "Sync") || !strings.Contains(out, "Payment due") {
		t.Errorf("filtered list output = %q", out)
	}

	out, err = runCommand(t, cfgArg, "search", "INVOICE")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !strings.Contains(out, "e2") || strings.Contains(out, "e1") {
		t.Errorf("search output = %q", out)
	}

	out, _ = runCommand(t, cfgArg, "search", "zzz")
	if !strings.Contains(out, "No matching emails.") {
		t.Errorf("empty search output = %q", out)
	}
}

func TestShow(t *testing.T) {
	cfgArg, _ := setupWorkspace(t)
	out, err := runCommand(t, cfgArg, "show", "e2")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	for _, want := range []string{"billing@vendor.com", "Oct 25, 2023 10:00 AM", "Category:  Important"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q: %q", want, out)
		}
	}
	if _, err := runCommand(t, cfgArg, "show", "nope"); err == nil {
		t.Error("show of unknown email succeeded")
	}
}

func TestProcessPlain_NotConfigured(t *testing.T) {
	cfgArg, dir := setupWorkspace(t)
	out, err := runCommand(t, cfgArg, "process", "--plain")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !strings.Contains(out, "LLM not configured") || !strings.Contains(out, "Processed 1 emails.") {
		t.Errorf("process output = %q", out)
	}

	store := inbox.NewStore(filepath.Join(dir, "mock_inbox.json"), zerolog.Nop())
	e, _ := store.Get("e1")
	if !e.Processed {
		t.Error("e1 not processed on disk")
	}
	if e.CategoryName() != "Error: LLM not configured. Please check your API key." {
		t.Errorf("category = %q", e.CategoryName())
	}

	out, _ = runCommand(t, cfgArg, "process", "--plain")
	if !strings.Contains(out, "Nothing to process.") {
		t.Errorf("second run output = %q", out)
	}
	if _, err := runCommand(t, cfgArg, "process", "--plain", "missing"); err == nil {
		t.Error("process of unknown id succeeded")
	}
}

func TestPromptsCommands(t *testing.T) {
	cfgArg, dir := setupWorkspace(t)

	out, err := runCommand(t, cfgArg, "prompts", "list")
	if err != nil {
		t.Fatalf("prompts list: %v", err)
	}
	if !strings.Contains(out, "action_extraction") || !strings.Contains(out, "Sorts mail") {
		t.Errorf("prompts list output = %q", out)
	}
	if strings.Index(out, "action_extraction") > strings.Index(out, "categorization") {
		t.Errorf("keys not sorted: %q", out)
	}

	out, err = runCommand(t, cfgArg, "prompts", "show", "categorization")
	if err != nil || strings.TrimSpace(out) != "Categorize." {
		t.Errorf("prompts show = %q, %v", out, err)
	}

	if _, err := runCommand(t, cfgArg, "prompts", "set", "categorization", "Sort into Work or Home."); err != nil {
		t.Fatalf("prompts set: %v", err)
	}
	tpl, _ := prompts.NewStore(filepath.Join(dir, "prompts.json"), zerolog.Nop()).Get("categorization")
	if tpl.Template != "Sort into Work or Home." || tpl.Name != "Categorization" {
		t.Errorf("stored template = %+v", tpl)
	}

	if _, err := runCommand(t, cfgArg, "prompts", "set", "nonexistent", "x"); err == nil {
		t.Error("setting an unknown prompt succeeded")
	}
}

func TestDraftsCommands(t *testing.T) {
	cfgArg, dir := setupWorkspace(t)
	path := filepath.Join(dir, "drafts.json")
	d, err := drafts.NewStore(path, zerolog.Nop()).Create("Hello", "Body text", "", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	out, err := runCommand(t, cfgArg, "drafts", "list", "--verbose=false")
	if err != nil || !strings.Contains(out, d.ID) || !strings.Contains(out, "Hello") {
		t.Errorf("drafts list = %q, %v", out, err)
	}

	if _, err := runCommand(t, cfgArg, "drafts", "edit", d.ID, "--subject=Updated"); err != nil {
		t.Fatalf("drafts edit: %v", err)
	}
	got, _ := drafts.NewStore(path, zerolog.Nop()).Get(d.ID)
	if got.Subject != "Updated" || got.Body != "Body text" {
		t.Errorf("edited draft = %+v", got)
	}

	if _, err := runCommand(t, cfgArg, "drafts", "reply", "e1", "--tone=Angry"); err == nil {
		t.Error("reply with unknown tone succeeded")
	}

	if _, err := runCommand(t, cfgArg, "drafts", "delete", d.ID); err != nil {
		t.Fatalf("drafts delete: %v", err)
	}
	if _, err := runCommand(t, cfgArg, "drafts", "delete", d.ID); err == nil {
		t.Error("deleting a missing draft succeeded")
	}
	if n := len(drafts.NewStore(path, zerolog.Nop()).All()); n != 0 {
		t.Errorf("drafts left = %d", n)
	}
}

func TestImport(t *testing.T) {
	cfgArg, dir := setupWorkspace(t)
	msgDir := filepath.Join(dir, "mail")
	if err := os.Mkdir(msgDir, 0755); err != nil {
		t.Fatal(err)
	}
	messages := map[string]string{
		"a.eml": "From: Alice <alice@example.com>\r\nSubject: Lunch\r\nMessage-ID: <lunch@example.com>\r\n" +
			"Date: Wed, 25 Oct 2023 12:00:00 +0000\r\nContent-Type: text/plain\r\n\r\nLunch on Friday?\r\n",
		"b.eml": "From: noreply@shop.com\r\nSubject: Sale\r\nMessage-ID: <sale@shop.com>\r\n" +
			"Date: Wed, 25 Oct 2023 13:00:00 +0000\r\nContent-Type: text/plain\r\n\r\nBuy now\r\n",
	}
	for name, content := range messages {
		if err := os.WriteFile(filepath.Join(msgDir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	out, err := runCommand(t, cfgArg, "import", msgDir)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, "Imported 1 of 2 messages (1 filtered, 0 already present)") {
		t.Errorf("import output = %q", out)
	}
	store := inbox.NewStore(filepath.Join(dir, "mock_inbox.json"), zerolog.Nop())
	e, ok := store.Get("lunch@example.com")
	if !ok || e.Subject != "Lunch" || e.Processed {
		t.Errorf("imported email = %+v, %v", e, ok)
	}
	if len(store.All()) != 3 {
		t.Errorf("inbox size = %d, want 3", len(store.All()))
	}

	out, _ = runCommand(t, cfgArg, "import", filepath.Join(msgDir, "a.eml"))
	if !strings.Contains(out, "Imported 0 of 1 messages (0 filtered, 1 already present)") {
		t.Errorf("re-import output = %q", out)
	}
}
