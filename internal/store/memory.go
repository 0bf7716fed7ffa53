package store

import (
	"errors"
	"sync"
	"time"

	"github.com/AngelCh415/kpi-dashboard/internal/models"
)

// ErrDuplicate: an entry with the same (date, channel, campaign) exists.
var ErrDuplicate = errors.New("duplicate entry")

type MemoryStore struct {
	mu      sync.RWMutex
	entries map[int64]models.Entry
	seen    map[models.EntryKey]int64 // unicidad por (data, canal, campanha)
	nextID  int64
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[int64]models.Entry),
		seen:    make(map[models.EntryKey]int64),
		now:     time.Now,
	}
}

// Insert assigns an id and audit fields. The key check and the write happen
// under one lock.
func (s *MemoryStore) Insert(e models.Entry, createdBy string) (models.Entry, error) {
	k := e.Key()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[k]; ok {
		return models.Entry{}, ErrDuplicate
	}
	s.nextID++
	ts := s.now().UTC().Format(time.RFC3339)
	e.ID = s.nextID
	e.CreatedAt, e.UpdatedAt, e.CreatedBy = ts, ts, createdBy
	s.entries[e.ID] = e
	s.seen[k] = e.ID
	return e, nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryStore) All() []models.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Entry, 0, len(s.entries))
	for _, v := range s.entries {
		out = append(out, v)
	}
	return out
}

// Query returns entries whose date is within [from, to]; an empty bound is open.
func (s *MemoryStore) Query(from, to string, f func(models.Entry) bool) []models.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Entry
	for _, v := range s.entries {
		if from != "" && v.DateRef < from {
			continue
		}
		if to != "" && v.DateRef > to {
			continue
		}
		if f == nil || f(v) {
			out = append(out, v)
		}
	}
	return out
}
