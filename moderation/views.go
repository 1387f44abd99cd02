package moderation

import (
	"sync"
	"time"
)

// ApprovalViewTimeout is how long an approval view accepts input after its last interaction.
const ApprovalViewTimeout = 48 * time.Hour

// ViewTracker remembers the last interaction on each approval view, keyed by ban ID.
// An expired view stops accepting input; the ban itself stays PENDING.
type ViewTracker struct {
	mu         sync.Mutex
	lastActive map[int64]time.Time
	timeout    time.Duration
	now        func() time.Time
}

func NewViewTracker(timeout time.Duration, now func() time.Time) *ViewTracker {
	if now == nil {
		now = time.Now
	}
	return &ViewTracker{
		lastActive: make(map[int64]time.Time),
		timeout:    timeout,
		now:        now,
	}
}

// Open starts tracking a freshly posted view.
func (v *ViewTracker) Open(banID int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lastActive[banID] = v.now()
}

// Touch checks whether the view is still live and, if so, records the interaction.
// createdAt is used when the view is unknown, e.g. after a restart.
func (v *ViewTracker) Touch(banID int64, createdAt time.Time) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.now()
	last, ok := v.lastActive[banID]
	if !ok {
		last = createdAt
	}
	if now.Sub(last) >= v.timeout {
		delete(v.lastActive, banID)
		return false
	}
	v.lastActive[banID] = now
	return true
}

// Forget drops a view once its ban reached a terminal state.
func (v *ViewTracker) Forget(banID int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.lastActive, banID)
}

// Prune removes expired entries and returns how many were dropped.
func (v *ViewTracker) Prune() int {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.now()
	removed := 0
	for id, last := range v.lastActive {
		if now.Sub(last) >= v.timeout {
			delete(v.lastActive, id)
			removed++
		}
	}
	return removed
}

func (v *ViewTracker) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.lastActive)
}
