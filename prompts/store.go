package prompts

import (
	"errors"
	"io/fs"
	"os"
	"sort"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// Well-known template keys. The set is open: any key present in the backing
// file can be looked up and edited.
const (
	KeyCategorization   = "categorization"
	KeyActionExtraction = "action_extraction"
	KeyAutoReply        = "auto_reply"
	KeySummarization    = "summarization"
)

// Template is a named, user-editable prompt. Key is its identity and is not
// stored inside the value in the backing file.
type Template struct {
	Key         string `json:"-"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Template    string `json:"template"`
}

// Store holds prompt templates keyed by Key, backed by a JSON object file that
// is rewritten in full on every update.
type Store struct {
	filePath  string
	templates map[string]Template
	log       zerolog.Logger
	mu        sync.RWMutex
}

// NewStore creates a store and loads filePath. A missing or malformed file
// leaves the store empty.
func NewStore(filePath string, log zerolog.Logger) *Store {
	s := &Store{
		filePath:  filePath,
		templates: map[string]Template{},
		log:       log.With().Str("store", "prompts").Logger(),
	}
	s.Load()
	return s
}

// Load re-reads the backing file and returns the resulting snapshot.
func (s *Store) Load() map[string]Template {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.templates = map[string]Template{}
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.log.Warn().Str("event", "store_file_missing").Str("path", s.filePath).Msg("prompt file not found")
		} else {
			s.log.Error().Str("event", "store_file_malformed").Err(err).Str("path", s.filePath).Msg("reading prompt file")
		}
		return s.snapshot()
	}

	var raw map[string]Template
	if err := json.Unmarshal(data, &raw); err != nil {
		s.log.Error().Str("event", "store_file_malformed").Err(err).Str("path", s.filePath).Msg("decoding prompt file")
		return s.snapshot()
	}
	for key, t := range raw {
		t.Key = key
		s.templates[key] = t
	}
	s.log.Debug().Int("count", len(s.templates)).Msg("prompts loaded")
	return s.snapshot()
}

// save writes every template back to disk. Callers hold the write lock.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.templates, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.filePath, data, 0644)
}

// Get looks up a template by key.
func (s *Store) Get(key string) (Template, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[key]
	return t, ok
}

// Update replaces the template text of an existing key and persists the
// store. It reports false for an unknown key or a failed write; in the latter
// case the in-memory value is restored.
func (s *Store) Update(key, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.templates[key]
	if !ok {
		return false
	}
	prev := t.Template
	t.Template = text
	s.templates[key] = t
	if err := s.save(); err != nil {
		t.Template = prev
		s.templates[key] = t
		s.log.Error().Str("event", "store_write_failed").Err(err).Str("key", key).Msg("saving prompts")
		return false
	}
	return true
}

// All returns a copy of the in-memory templates.
func (s *Store) All() map[string]Template {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

// Keys returns the template keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.templates))
	for k := range s.templates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Store) snapshot() map[string]Template {
	out := make(map[string]Template, len(s.templates))
	for k, v := range s.templates {
		out[k] = v
	}
	return out
}
