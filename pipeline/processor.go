package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/text/cases"

	"github.com/bassamadnan/mailagent/drafts"
	"github.com/bassamadnan/mailagent/inbox"
	"github.com/bassamadnan/mailagent/prompts"
)

var (
	ErrEmailNotFound   = errors.New("email not found")
	ErrTemplateMissing = errors.New("prompt template missing")
)

// Category filter values understood by FilterByCategory besides the
// categories the model assigns.
const (
	CategoryAll           = "All"
	CategoryUncategorized = "Uncategorized"
)

// Categories offered by the UI filter, in display order.
var Categories = []string{
	CategoryAll, "Important", "To-Do", "Newsletter", "Spam", "Project", "Personal", CategoryUncategorized,
}

// Model is the subset of the LLM gateway the pipeline uses.
type Model interface {
	GenerateText(ctx context.Context, instruction, input string) string
	GenerateStructured(ctx context.Context, instruction, input string) map[string]any
	// Available is false while calls are being short-circuited.
	Available() bool
}

// PromptSource looks templates up by key.
type PromptSource interface {
	Get(key string) (prompts.Template, bool)
}

// DraftWriter stores generated drafts.
type DraftWriter interface {
	Create(subject, body, emailID string, metadata map[string]any) (drafts.Draft, error)
}

// Processor runs the per-email categorization and action-item extraction and
// the other prompt-to-text operations over the inbox. Processing is
// sequential; mu keeps concurrent UI triggers from interleaving.
type Processor struct {
	inbox   *inbox.Store
	prompts PromptSource
	model   Model
	drafts  DraftWriter
	log     zerolog.Logger
	mu      sync.Mutex
}

func NewProcessor(store *inbox.Store, ps PromptSource, model Model, dw DraftWriter, log zerolog.Logger) *Processor {
	return &Processor{
		inbox:   store,
		prompts: ps,
		model:   model,
		drafts:  dw,
		log:     log.With().Str("component", "pipeline").Logger(),
	}
}

// ModelAvailable reports whether model calls currently reach the backend.
func (p *Processor) ModelAvailable() bool {
	return p.model.Available()
}

// Emails returns every inbox record in file order.
func (p *Processor) Emails() []inbox.Email {
	return p.inbox.All()
}

// Email returns one record by id.
func (p *Processor) Email(id string) (inbox.Email, bool) {
	return p.inbox.Get(id)
}

// Pending returns the records not yet processed, in file order.
func (p *Processor) Pending() []inbox.Email {
	var out []inbox.Email
	for _, e := range p.inbox.All() {
		if !e.Processed {
			out = append(out, e)
		}
	}
	return out
}

// ProcessEmail categorizes the email and extracts its action items, marks it
// processed and persists the inbox. Model failures do not stop processing:
// the email is marked processed once both steps were attempted. It returns
// false when no email has the id or when the model stopped taking calls
// before both steps reached it; the email is then left untouched.
func (p *Processor) ProcessEmail(ctx context.Context, id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.processEmail(ctx, id)
}

func (p *Processor) processEmail(ctx context.Context, id string) bool {
	email, ok := p.inbox.Get(id)
	if !ok {
		p.log.Warn().Str("email_id", id).Msg("process requested for unknown email")
		return false
	}
	log := p.log.With().Str("email_id", id).Logger()
	if !p.model.Available() {
		log.Warn().Str("event", "llm_unavailable").Msg("model unavailable, email left unprocessed")
		return false
	}

	var category *string
	if tpl, ok := p.prompts.Get(prompts.KeyCategorization); ok {
		cat := strings.TrimSpace(p.model.GenerateText(ctx, tpl.Template, "Email Body:\n"+email.Body))
		category = &cat
	} else {
		log.Debug().Str("key", prompts.KeyCategorization).Msg("template missing, skipping categorization")
	}

	if !p.model.Available() {
		log.Warn().Str("event", "llm_unavailable").Msg("model unavailable after categorization, email left unprocessed")
		return false
	}

	var items []inbox.ActionItem
	haveItems := false
	if tpl, ok := p.prompts.Get(prompts.KeyActionExtraction); ok {
		instruction := strings.ReplaceAll(tpl.Template, "{email_body}", email.Body)
		result := p.model.GenerateStructured(ctx, instruction, "")
		if tasks, found := result["tasks"]; found {
			parsed, err := toActionItems(tasks)
			if err != nil {
				log.Warn().Str("event", "llm_malformed_output").Err(err).Msg("tasks field has unexpected shape")
			} else {
				items, haveItems = parsed, true
			}
		}
	} else {
		log.Debug().Str("key", prompts.KeyActionExtraction).Msg("template missing, skipping action extraction")
	}

	p.inbox.Mutate(id, func(e *inbox.Email) {
		if category != nil {
			e.Category = category
		}
		if haveItems {
			e.ActionItems = items
		}
		e.Processed = true
	})
	if err := p.inbox.Save(); err != nil {
		log.Error().Err(err).Msg("persisting inbox after processing")
	}
	log.Info().Str("category", deref(category)).Int("action_items", len(items)).Msg("email processed")
	return true
}

// ProcessInbox processes every unprocessed email in order and returns how
// many were processed. It stops early when ctx is cancelled or the model
// stops taking calls; the remaining emails stay unprocessed for the next run.
func (p *Processor) ProcessInbox(ctx context.Context) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	count := 0
	for _, e := range p.inbox.All() {
		if e.Processed {
			continue
		}
		if ctx.Err() != nil {
			p.log.Warn().Err(ctx.Err()).Int("processed", count).Msg("inbox processing interrupted")
			break
		}
		if !p.model.Available() {
			p.log.Warn().Str("event", "llm_unavailable").Int("processed", count).Msg("inbox processing stopped, model unavailable")
			break
		}
		if p.processEmail(ctx, e.ID) {
			count++
		}
	}
	return count
}

// Search returns the emails whose sender, subject or body contains query,
// compared case-insensitively, in inbox order.
func (p *Processor) Search(query string) []inbox.Email {
	fold := cases.Fold()
	q := fold.String(query)
	var out []inbox.Email
	for _, e := range p.inbox.All() {
		if strings.Contains(fold.String(e.Subject), q) ||
			strings.Contains(fold.String(e.Sender), q) ||
			strings.Contains(fold.String(e.Body), q) {
			out = append(out, e)
		}
	}
	return out
}

// FilterByCategory returns all emails for CategoryAll, the emails without a
// category for CategoryUncategorized and exact matches otherwise.
func (p *Processor) FilterByCategory(category string) []inbox.Email {
	all := p.inbox.All()
	if category == "" || category == CategoryAll {
		return all
	}
	var out []inbox.Email
	for _, e := range all {
		name := e.CategoryName()
		if (category == CategoryUncategorized && name == "") || name == category {
			out = append(out, e)
		}
	}
	return out
}

// Summarize runs the summarization template over one email.
func (p *Processor) Summarize(ctx context.Context, id string) (string, error) {
	email, ok := p.inbox.Get(id)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrEmailNotFound, id)
	}
	tpl, ok := p.prompts.Get(prompts.KeySummarization)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrTemplateMissing, prompts.KeySummarization)
	}
	return p.model.GenerateText(ctx, tpl.Template, "Email Body:\n"+email.Body), nil
}

// Ask answers a free-form question using a digest of the whole inbox.
func (p *Processor) Ask(ctx context.Context, question string) string {
	var sb strings.Builder
	sb.WriteString("You are a helpful email assistant. Answer the user's question based on their inbox.\n\n")
	sb.WriteString("Here is the current inbox:\n\n")
	for _, e := range p.inbox.All() {
		category := e.CategoryName()
		if category == "" {
			category = CategoryUncategorized
		}
		fmt.Fprintf(&sb, "- From: %s\n", e.Sender)
		fmt.Fprintf(&sb, "  Subject: %s\n", e.Subject)
		fmt.Fprintf(&sb, "  Category: %s\n", category)
		if len(e.ActionItems) > 0 {
			fmt.Fprintf(&sb, "  Action Items: %d tasks\n", len(e.ActionItems))
		}
		fmt.Fprintf(&sb, "  Preview: %s...\n\n", preview(e.Body, 100))
	}
	fmt.Fprintf(&sb, "User Question: %s\n\n", question)
	sb.WriteString("Provide a helpful, concise answer based on the inbox data above.")
	return p.model.GenerateText(ctx, sb.String(), "")
}

func toActionItems(v any) ([]inbox.ActionItem, error) {
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("tasks is %T, want a list", v)
	}
	items := make([]inbox.ActionItem, 0, len(list))
	for i, raw := range list {
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("tasks[%d] is %T, want an object", i, raw)
		}
		item := inbox.ActionItem{Task: stringify(m["task"])}
		if d, ok := m["deadline"]; ok && d != nil {
			s := stringify(d)
			item.Deadline = &s
		}
		items = append(items, item)
	}
	return items, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
