package exam

import (
	"strings"
	"sync"
)

// PersistFunc receives an answer for asynchronous, best-effort persistence.
// It runs on its own goroutine and must not be relied on for correctness:
// the in-memory store stays authoritative and is re-read at finalize time.
type PersistFunc func(questionNumber int, rawAnswer string)

// AnswerStore holds the current per-question answers, keyed by 1-based
// question number. A cleared question (entry absent) is distinct from a
// question answered with an empty string.
type AnswerStore struct {
	mu      sync.Mutex
	values  map[int]string
	flushed map[int]string // normalized value last handed to persist
	persist PersistFunc
}

// NewAnswerStore creates an empty store. persist may be nil.
func NewAnswerStore(persist PersistFunc) *AnswerStore {
	return &AnswerStore{
		values:  make(map[int]string),
		flushed: make(map[int]string),
		persist: persist,
	}
}

// Set overwrites the answer for question q and dispatches it for
// persistence unless the normalized value equals the one last dispatched
// for q.
func (s *AnswerStore) Set(q int, value string) {
	s.mu.Lock()
	norm := normalizeAnswer(value)
	last, seen := s.flushed[q]
	s.values[q] = value
	if !seen || last != norm {
		s.flushed[q] = norm
	}
	persist := s.persist
	s.mu.Unlock()

	if persist != nil && (!seen || last != norm) {
		go persist(q, value)
	}
}

// Clear removes the entry for question q. The next Set dispatches again
// even if it repeats the previously persisted value.
func (s *AnswerStore) Clear(q int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, q)
	delete(s.flushed, q)
}

// Get returns the recorded answer for q and whether one exists.
func (s *AnswerStore) Get(q int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[q]
	return v, ok
}

// All returns a copy of the live answer map.
func (s *AnswerStore) All() map[int]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]string, len(s.values))
	for q, v := range s.values {
		out[q] = v
	}
	return out
}

// CountAnswered counts entries whose normalized value is non-empty.
func (s *AnswerStore) CountAnswered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, v := range s.values {
		if normalizeAnswer(v) != "" {
			n++
		}
	}
	return n
}

func normalizeAnswer(v string) string {
	return strings.TrimSpace(v)
}
