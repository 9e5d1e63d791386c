package inbox

import (
	"errors"
	"io/fs"
	"os"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// Store keeps the inbox snapshot in memory and writes the whole file back on
// every Save. It assumes a single process owns the file.
type Store struct {
	filePath string
	emails   []*Email
	// Records that failed validation on load; written back untouched at
	// their original position.
	rejected []rejectedRecord
	log      zerolog.Logger
	mu       sync.RWMutex
}

type rejectedRecord struct {
	index int
	raw   json.RawMessage
}

// NewStore creates a store and loads filePath. A missing or malformed file
// yields an empty inbox.
func NewStore(filePath string, log zerolog.Logger) *Store {
	s := &Store{
		filePath: filePath,
		log:      log.With().Str("store", "inbox").Logger(),
	}
	s.Load()
	return s
}

// Load replaces the in-memory inbox with the file contents and returns them.
func (s *Store) Load() []Email {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.emails = nil
	s.rejected = nil
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.log.Warn().Str("event", "store_file_missing").Str("path", s.filePath).Msg("inbox file not found")
		} else {
			s.log.Error().Str("event", "store_file_malformed").Err(err).Str("path", s.filePath).Msg("reading inbox file")
		}
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		s.log.Error().Str("event", "store_file_malformed").Err(err).Str("path", s.filePath).Msg("decoding inbox file")
		return nil
	}
	for i, r := range raw {
		var e Email
		err := json.Unmarshal(r, &e)
		if err == nil {
			err = e.Validate()
		} else {
			err = errors.Join(ErrInvalidEmail, err)
		}
		if err != nil {
			s.log.Warn().Err(err).Int("index", i).Msg("skipping invalid inbox record")
			s.rejected = append(s.rejected, rejectedRecord{index: i, raw: r})
			continue
		}
		s.emails = append(s.emails, &e)
	}
	s.log.Debug().Int("count", len(s.emails)).Msg("inbox loaded")
	return s.copyAll()
}

// Save rewrites the backing file with every record. Rejected records keep
// their position in the file; records added since the load follow the rest.
func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]any, 0, len(s.emails)+len(s.rejected))
	rejected := s.rejected
	for _, e := range s.emails {
		for len(rejected) > 0 && rejected[0].index <= len(out) {
			out = append(out, rejected[0].raw)
			rejected = rejected[1:]
		}
		out = append(out, e)
	}
	for _, r := range rejected {
		out = append(out, r.raw)
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.filePath, data, 0644); err != nil {
		s.log.Error().Str("event", "store_write_failed").Err(err).Str("path", s.filePath).Msg("saving inbox")
		return err
	}
	return nil
}

// Get returns a copy of the record with the given id.
func (s *Store) Get(id string) (Email, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e := s.find(id); e != nil {
		return e.clone(), true
	}
	return Email{}, false
}

// Mutate applies fn to the stored record in place. It reports false when no
// record has the id.
func (s *Store) Mutate(id string, fn func(*Email)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.find(id)
	if e == nil {
		return false
	}
	fn(e)
	return true
}

// All returns copies of every record in file order.
func (s *Store) All() []Email {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyAll()
}

// Add appends records whose id is not yet present and returns how many were
// added. Invalid records are rejected with an error before anything changes.
func (s *Store) Add(emails ...Email) (int, error) {
	for _, e := range emails {
		if err := e.Validate(); err != nil {
			return 0, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	added := 0
	for _, e := range emails {
		if s.find(e.ID) != nil {
			continue
		}
		c := e.clone()
		s.emails = append(s.emails, &c)
		added++
	}
	return added, nil
}

func (s *Store) find(id string) *Email {
	for _, e := range s.emails {
		if e.ID == id {
			return e
		}
	}
	return nil
}

func (s *Store) copyAll() []Email {
	out := make([]Email, len(s.emails))
	for i, e := range s.emails {
		out[i] = e.clone()
	}
	return out
}
