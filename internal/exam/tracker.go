package exam

import (
	"sort"
	"sync"
	"time"

	"github.com/prepnest/mocktest-backend/internal/model"
)

// Tracker attributes wall-clock time to whichever question is currently
// active. At most one segment is open at any moment: starting question B
// closes question A's segment first, ordered by navigation instants.
type Tracker struct {
	mu         sync.Mutex
	now        func() time.Time
	cumulative map[int]time.Duration
	current    int // 0 when idle
	openedAt   time.Time
}

// NewTracker creates an idle tracker.
func NewTracker() *Tracker {
	return &Tracker{
		now:        time.Now,
		cumulative: make(map[int]time.Duration),
	}
}

// StartTracking opens a segment for question q, closing any other open
// segment first. Re-starting the question already being tracked is a
// no-op so its open segment is neither reset nor double-counted.
func (t *Tracker) StartTracking(q int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current == q {
		return
	}
	t.closeOpenSegment()
	t.current = q
	t.openedAt = t.now()
}

// StopTracking closes the open segment, if any, and returns to idle.
func (t *Tracker) StopTracking() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeOpenSegment()
	t.current = 0
}

// caller must hold t.mu.
func (t *Tracker) closeOpenSegment() {
	if t.current == 0 {
		return
	}
	t.cumulative[t.current] += t.now().Sub(t.openedAt)
}

// Elapsed returns the cumulative time on question q, including the live
// delta when q's segment is currently open.
func (t *Tracker) Elapsed(q int) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	d := t.cumulative[q]
	if t.current == q {
		d += t.now().Sub(t.openedAt)
	}
	return d
}

// Snapshot returns the per-question ledger, ordered by question number,
// for every question with nonzero tracked time. The open segment, if any,
// is included without being closed.
func (t *Tracker) Snapshot() []model.TimeEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	totals := make(map[int]time.Duration, len(t.cumulative))
	for q, d := range t.cumulative {
		totals[q] = d
	}
	if t.current != 0 {
		totals[t.current] += t.now().Sub(t.openedAt)
	}

	entries := make([]model.TimeEntry, 0, len(totals))
	for q, d := range totals {
		secs := int(d.Round(time.Second) / time.Second)
		if secs <= 0 {
			continue
		}
		entries = append(entries, model.TimeEntry{
			QuestionNumber:   q,
			TimeSpentSeconds: secs,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].QuestionNumber < entries[j].QuestionNumber
	})
	return entries
}
