package mem

import (
	"sort"
	"strconv"
	"sync"

	"github.com/mailclean/mailclean/pkg/config"
	"github.com/mailclean/mailclean/pkg/extension"
	"github.com/mailclean/mailclean/pkg/storage"
)

// visitBatch is the number of results handed to a VisitResults func at once.
const visitBatch = 100

// Store implements an in-memory result store.
type Store struct {
	sync.RWMutex
	results map[string]*entry
	cap     int // Maximum number of results, 0 is unlimited.
	first   int // Lowest index that may still be present.
	last    int // Index of the most recently added result.
	extHost *extension.Host
}

type entry struct {
	index  int
	result storage.Result
}

var _ storage.Store = &Store{}

// New returns an empty memory store.
func New(cfg config.Storage, extHost *extension.Host) (storage.Store, error) {
	return &Store{
		results: make(map[string]*entry),
		cap:     cfg.ResultCap,
		first:   1,
		extHost: extHost,
	}, nil
}

// AddResult stores a copy of the result, evicting the oldest results once the cap is exceeded.
func (s *Store) AddResult(r *storage.Result) (string, error) {
	var evicted []*entry
	s.Lock()
	s.last++
	id := strconv.Itoa(s.last)
	e := &entry{index: s.last, result: *r}
	e.result.ID = id
	s.results[id] = e
	if s.cap > 0 {
		for len(s.results) > s.cap {
			oldID := strconv.Itoa(s.first)
			if old, ok := s.results[oldID]; ok {
				delete(s.results, oldID)
				evicted = append(evicted, old)
			}
			s.first++
		}
	}
	s.Unlock()

	for _, old := range evicted {
		s.emitDeleted(old)
	}
	return id, nil
}

// GetResult gets a copy of a result.
func (s *Store) GetResult(id string) (*storage.Result, error) {
	s.RLock()
	defer s.RUnlock()

	if id == storage.LatestID {
		id = ""
		for i := s.last; i >= s.first; i-- {
			if _, ok := s.results[strconv.Itoa(i)]; ok {
				id = strconv.Itoa(i)
				break
			}
		}
	}
	e, ok := s.results[id]
	if !ok {
		return nil, storage.ErrNotExist
	}
	r := e.result
	return &r, nil
}

// GetResults gets copies of all results, oldest first.
func (s *Store) GetResults() ([]*storage.Result, error) {
	s.RLock()
	entries := make([]*entry, 0, len(s.results))
	for _, e := range s.results {
		entries = append(entries, e)
	}
	s.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].index < entries[j].index
	})
	rs := make([]*storage.Result, len(entries))
	for i, e := range entries {
		r := e.result
		rs[i] = &r
	}
	return rs, nil
}

// RemoveResult deletes a single result.
func (s *Store) RemoveResult(id string) error {
	s.Lock()
	e, ok := s.results[id]
	if ok {
		delete(s.results, id)
	}
	s.Unlock()

	if !ok {
		return storage.ErrNotExist
	}
	s.emitDeleted(e)
	return nil
}

// VisitResults calls f with batches of results, the store is not locked while f runs.
func (s *Store) VisitResults(f func([]*storage.Result) (cont bool)) error {
	rs, err := s.GetResults()
	if err != nil {
		return err
	}
	for start := 0; start < len(rs); start += visitBatch {
		end := min(start+visitBatch, len(rs))
		if !f(rs[start:end]) {
			break
		}
	}
	return nil
}

func (s *Store) emitDeleted(e *entry) {
	if s.extHost != nil {
		meta := e.result.Metadata()
		s.extHost.Events.AfterResultDeleted.Emit(&meta)
	}
}
