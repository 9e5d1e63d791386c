package drafts

import (
	"errors"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var ErrNotFound = errors.New("draft not found")

// Draft is generated or hand-edited email text, optionally replying to an
// inbox email.
type Draft struct {
	ID        string         `json:"id"`
	EmailID   *string        `json:"email_id"`
	Subject   string         `json:"subject"`
	Body      string         `json:"body"`
	CreatedAt string         `json:"created_at"`
	Metadata  map[string]any `json:"metadata"`
}

// Store persists drafts as a JSON array, rewritten on every change.
type Store struct {
	filePath string
	drafts   []Draft
	log      zerolog.Logger
	now      func() time.Time
	mu       sync.RWMutex
}

func NewStore(filePath string, log zerolog.Logger) *Store {
	s := &Store{
		filePath: filePath,
		log:      log.With().Str("store", "drafts").Logger(),
		now:      time.Now,
	}
	s.load()
	return s
}

func (s *Store) load() {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.log.Debug().Str("event", "store_file_missing").Str("path", s.filePath).Msg("no drafts yet")
		} else {
			s.log.Error().Str("event", "store_file_malformed").Err(err).Str("path", s.filePath).Msg("reading drafts file")
		}
		return
	}
	var drafts []Draft
	if err := json.Unmarshal(data, &drafts); err != nil {
		s.log.Error().Str("event", "store_file_malformed").Err(err).Str("path", s.filePath).Msg("decoding drafts file")
		return
	}
	s.drafts = drafts
}

func (s *Store) save() error {
	out := s.drafts
	if out == nil {
		out = []Draft{}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.filePath, data, 0644); err != nil {
		s.log.Error().Str("event", "store_write_failed").Err(err).Str("path", s.filePath).Msg("saving drafts")
		return err
	}
	return nil
}

// Create stores a new draft. emailID may be empty for a fresh draft.
func (s *Store) Create(subject, body, emailID string, metadata map[string]any) (Draft, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	d := Draft{
		ID:        uuid.NewString(),
		Subject:   subject,
		Body:      body,
		CreatedAt: s.now().Format("2006-01-02T15:04:05.000000"),
		Metadata:  metadata,
	}
	if emailID != "" {
		d.EmailID = &emailID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts = append(s.drafts, d)
	if err := s.save(); err != nil {
		s.drafts = s.drafts[:len(s.drafts)-1]
		return Draft{}, err
	}
	return d, nil
}

// Update replaces subject and body of an existing draft.
func (s *Store) Update(id, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.drafts {
		if s.drafts[i].ID == id {
			s.drafts[i].Subject = subject
			s.drafts[i].Body = body
			return s.save()
		}
	}
	return ErrNotFound
}

// Delete removes a draft. Deleting an unknown id is not an error.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.drafts[:0:0]
	for _, d := range s.drafts {
		if d.ID != id {
			kept = append(kept, d)
		}
	}
	s.drafts = kept
	return s.save()
}

func (s *Store) Get(id string) (Draft, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.drafts {
		if d.ID == id {
			return d, true
		}
	}
	return Draft{}, false
}

// All returns the drafts in creation order.
func (s *Store) All() []Draft {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Draft, len(s.drafts))
	copy(out, s.drafts)
	return out
}
