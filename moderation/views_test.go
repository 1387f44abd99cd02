package moderation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestViewTrackerExpiresAfterInactivity(t *testing.T) {
	assert := assert.New(t)
	clock := &testClock{t: time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)}
	tracker := NewViewTracker(ApprovalViewTimeout, clock.Now)

	tracker.Open(1)
	clock.Set(clock.Now().Add(47 * time.Hour))
	assert.True(tracker.Touch(1, time.Time{}))

	// the touch above restarted the window
	clock.Set(clock.Now().Add(47 * time.Hour))
	assert.True(tracker.Touch(1, time.Time{}))

	clock.Set(clock.Now().Add(48 * time.Hour))
	assert.False(tracker.Touch(1, time.Time{}))
	assert.Equal(0, tracker.Len())
}

func TestViewTrackerUnknownViewUsesCreatedAt(t *testing.T) {
	assert := assert.New(t)
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	clock := &testClock{t: now}
	tracker := NewViewTracker(ApprovalViewTimeout, clock.Now)

	assert.True(tracker.Touch(7, now.Add(-time.Hour)))
	assert.Equal(1, tracker.Len())
	assert.False(tracker.Touch(8, now.Add(-72*time.Hour)))
}

func TestViewTrackerPrune(t *testing.T) {
	assert := assert.New(t)
	clock := &testClock{t: time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)}
	tracker := NewViewTracker(ApprovalViewTimeout, clock.Now)

	tracker.Open(1)
	clock.Set(clock.Now().Add(24 * time.Hour))
	tracker.Open(2)
	tracker.Open(3)
	tracker.Forget(3)

	clock.Set(clock.Now().Add(30 * time.Hour))
	assert.Equal(1, tracker.Prune())
	assert.Equal(1, tracker.Len())
	assert.True(tracker.Touch(2, time.Time{}))
}

func TestPeriodToken(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("2025-01", PeriodToken(time.Date(2025, 1, 31, 23, 59, 59, 0, time.UTC)))
	assert.Equal("2025-02", PeriodToken(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)))

	// tokens are computed in UTC
	loc := time.FixedZone("UTC+9", 9*60*60)
	assert.Equal("2024-12", PeriodToken(time.Date(2025, 1, 1, 5, 0, 0, 0, loc)))
}
