package moderation

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"modbot/model"
	"modbot/utils/database/modpoints"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type banCall struct {
	GuildID string
	UserID  string
	Reason  string
}

type recordingExecutor struct {
	mu    sync.Mutex
	calls []banCall
	err   error
}

func (r *recordingExecutor) Execute(ctx context.Context, guildID, userID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, banCall{GuildID: guildID, UserID: userID, Reason: reason})
	return r.err
}

func (r *recordingExecutor) Calls() []banCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]banCall(nil), r.calls...)
}

func engineTestFixture(t *testing.T) (*Engine, *sqlx.DB, *testClock, *recordingExecutor) {
	t.Helper()
	db, err := modpoints.Init(filepath.Join(t.TempDir(), "modpoints.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clock := &testClock{t: time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)}
	exec := &recordingExecutor{}
	engine, err := NewEngine(db, Options{Executor: exec, Clock: clock.Now})
	require.NoError(t, err)
	return engine, db, clock, exec
}

func casesWithAction(t *testing.T, db *sqlx.DB, guildID, userID, action string) []model.CaseLogEntry {
	t.Helper()
	entries, err := modpoints.GetCasesByUser(context.Background(), db, guildID, userID, 100)
	require.NoError(t, err)
	var out []model.CaseLogEntry
	for _, e := range entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

func TestAddPointsReachingCapCreatesPending(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	engine, db, _, _ := engineTestFixture(t)

	res, err := engine.AddPoints(ctx, "G", "U", "M", 100, "spam")
	require.NoError(t, err)
	assert.Equal(100, res.Points)
	assert.True(res.ReachedCap)
	assert.Equal(TriggerCreated, res.Trigger)

	pending, err := engine.GetPending(ctx, "G", "U")
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(100, pending.PointsAtCreation)
	assert.Equal(model.PendingBanPending, pending.Status)
	assert.Equal("spam", pending.Reason)
	assert.False(pending.ApproverOne.Valid)
	assert.False(pending.ApproverTwo.Valid)
	assert.Len(casesWithAction(t, db, "G", "U", model.CaseActionPoints), 1)
}

func TestAddPointsClampsAtCap(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	engine, _, _, _ := engineTestFixture(t)

	steps := []struct {
		amount int
		added  int
	}{
		{30, 30}, {45, 45}, {20, 20}, {70, 5}, {1, 0}, {999, 0},
	}
	for _, step := range steps {
		res, err := engine.AddPoints(ctx, "G", "U", "M", step.amount, "")
		require.NoError(t, err)
		assert.LessOrEqual(res.Points, PointCap)
		assert.Equal(step.added, res.Added, "adding %d", step.amount)
	}
	points, err := engine.GetPoints(ctx, "G", "U")
	require.NoError(t, err)
	assert.Equal(PointCap, points)
}

func TestAddPointsNonPositiveIsNoop(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	engine, db, _, _ := engineTestFixture(t)

	_, err := engine.AddPoints(ctx, "G", "U", "M", 40, "first")
	require.NoError(t, err)

	for _, amt := range []int{-5, 0} {
		res, err := engine.AddPoints(ctx, "G", "U", "M", amt, "typo")
		require.NoError(t, err)
		assert.Equal(40, res.Points)
		assert.False(res.ReachedCap)
		assert.Equal(TriggerNone, res.Trigger)
	}
	assert.Len(casesWithAction(t, db, "G", "U", model.CaseActionPoints), 1)
}

func TestAddPointsWritesOneCasePerCall(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	engine, db, _, _ := engineTestFixture(t)

	for i := 0; i < 4; i++ {
		_, err := engine.AddPoints(ctx, "G", "U", "M", 10, "noise")
		require.NoError(t, err)
	}
	entries := casesWithAction(t, db, "G", "U", model.CaseActionPoints)
	require.Len(t, entries, 4)
	assert.Equal("+10 points (noise); total 40/100", entries[0].Reason)
	assert.Equal("M", entries[0].ModeratorID)
}

func TestPeriodRollover(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	engine, db, clock, _ := engineTestFixture(t)

	_, err := engine.AddPoints(ctx, "G", "U", "M", 40, "")
	require.NoError(t, err)

	// same period: no reset between reads
	for i := 0; i < 2; i++ {
		points, err := engine.GetPoints(ctx, "G", "U")
		require.NoError(t, err)
		assert.Equal(40, points)
	}

	clock.Set(time.Date(2025, 2, 1, 0, 0, 1, 0, time.UTC))
	points, err := engine.GetPoints(ctx, "G", "U")
	require.NoError(t, err)
	assert.Equal(0, points)

	stored, err := modpoints.GetBalance(ctx, db, "G", "U")
	require.NoError(t, err)
	assert.Equal("2025-02", stored.Period)

	// reset happens once; later adds in the same period accumulate
	res, err := engine.AddPoints(ctx, "G", "U", "M", 15, "")
	require.NoError(t, err)
	assert.Equal(15, res.Points)
	points, err = engine.GetPoints(ctx, "G", "U")
	require.NoError(t, err)
	assert.Equal(15, points)
}

func TestApprovalQuorum(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	engine, db, _, exec := engineTestFixture(t)

	_, err := engine.AddPoints(ctx, "G", "U", "M", 100, "spam")
	require.NoError(t, err)

	out, err := engine.AddApproval(ctx, "G", "U", "A")
	require.NoError(t, err)
	assert.Equal(ApprovalPartial, out.Result)
	assert.Equal([]string{"A"}, out.Ban.Approvers())

	out, err = engine.AddApproval(ctx, "G", "U", "A")
	require.NoError(t, err)
	assert.Equal(ApprovalAlreadyApproved, out.Result)
	assert.Empty(exec.Calls())

	out, err = engine.AddApproval(ctx, "G", "U", "B")
	require.NoError(t, err)
	assert.Equal(ApprovalFinal, out.Result)
	assert.Equal(model.PendingBanApproved, out.Ban.Status)
	assert.Equal("A", out.Ban.ApproverOne.String)
	assert.Equal("B", out.Ban.ApproverTwo.String)
	assert.True(out.Ban.FinalizedAt.Valid)

	assert.Equal([]banCall{{GuildID: "G", UserID: "U", Reason: "Point threshold exceeded (100)"}}, exec.Calls())
	assert.Len(casesWithAction(t, db, "G", "U", model.CaseActionPointBan), 1)

	out, err = engine.AddApproval(ctx, "G", "U", "C")
	require.NoError(t, err)
	assert.Equal(ApprovalNotPending, out.Result)
	assert.Len(exec.Calls(), 1)

	pending, err := engine.GetPending(ctx, "G", "U")
	require.NoError(t, err)
	assert.Nil(pending)
}

func TestApprovalWithoutPending(t *testing.T) {
	ctx := context.Background()
	engine, _, _, _ := engineTestFixture(t)

	out, err := engine.AddApproval(ctx, "G", "nobody", "A")
	require.NoError(t, err)
	assert.Equal(t, ApprovalNotPending, out.Result)
	assert.Nil(t, out.Ban)
}

func TestExecutorFailureKeepsApproval(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	engine, _, _, exec := engineTestFixture(t)
	exec.err = errors.New("missing permissions")

	_, err := engine.AddPoints(ctx, "G", "U", "M", 120, "raid")
	require.NoError(t, err)
	_, err = engine.AddApproval(ctx, "G", "U", "A")
	require.NoError(t, err)

	out, err := engine.AddApproval(ctx, "G", "U", "B")
	require.NoError(t, err)
	assert.Equal(ApprovalFinal, out.Result)

	ban, err := modpoints.GetBanByID(ctx, engine.db, out.Ban.ID)
	require.NoError(t, err)
	assert.Equal(model.PendingBanApproved, ban.Status)
}

func TestDeclineRestoresFallback(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	engine, db, _, exec := engineTestFixture(t)

	_, err := engine.AddPoints(ctx, "G", "U", "M", 100, "spam")
	require.NoError(t, err)

	out, err := engine.DeclinePending(ctx, "G", "U", "C")
	require.NoError(t, err)
	assert.Equal(DeclineDeclined, out.Result)
	assert.Equal(80, out.Points)
	assert.Equal(model.PendingBanCancelled, out.Ban.Status)
	assert.Equal("C", out.Ban.DeclinedBy.String)

	points, err := engine.GetPoints(ctx, "G", "U")
	require.NoError(t, err)
	assert.Equal(80, points)

	cancels := casesWithAction(t, db, "G", "U", model.CaseActionPointBanStop)
	require.Len(t, cancels, 1)
	assert.Contains(cancels[0].Reason, "points set to 80")

	out, err = engine.DeclinePending(ctx, "G", "U", "C")
	require.NoError(t, err)
	assert.Equal(DeclineNotPending, out.Result)
	assert.Empty(exec.Calls())
}

func TestDeclineAfterOneApproval(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	engine, _, _, _ := engineTestFixture(t)

	_, err := engine.AddPoints(ctx, "G", "U", "M", 100, "spam")
	require.NoError(t, err)
	_, err = engine.AddApproval(ctx, "G", "U", "A")
	require.NoError(t, err)

	out, err := engine.DeclinePending(ctx, "G", "U", "B")
	require.NoError(t, err)
	assert.Equal(DeclineDeclined, out.Result)

	approval, err := engine.AddApproval(ctx, "G", "U", "B")
	require.NoError(t, err)
	assert.Equal(ApprovalNotPending, approval.Result)
}

func TestDeclineUsesGuildFallback(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	engine, _, _, _ := engineTestFixture(t)

	require.NoError(t, engine.SetFallbackPoints(ctx, "G", 50))
	assert.ErrorIs(engine.SetFallbackPoints(ctx, "G", PointCap), ErrAmountOutOfRange)
	assert.ErrorIs(engine.SetFallbackPoints(ctx, "G", -1), ErrAmountOutOfRange)

	_, err := engine.AddPoints(ctx, "G", "U", "M", 100, "spam")
	require.NoError(t, err)
	out, err := engine.DeclinePending(ctx, "G", "U", "C")
	require.NoError(t, err)
	assert.Equal(50, out.Points)

	fallback, err := engine.FallbackPoints(ctx, "other-guild")
	require.NoError(t, err)
	assert.Equal(DefaultFallbackPoints, fallback)
}

func TestDeclineReadsFallbackSetByAnotherEngine(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	first, db, clock, _ := engineTestFixture(t)
	second, err := NewEngine(db, Options{Clock: clock.Now})
	require.NoError(t, err)

	fallback, err := first.FallbackPoints(ctx, "G")
	require.NoError(t, err)
	assert.Equal(DefaultFallbackPoints, fallback)

	require.NoError(t, second.SetFallbackPoints(ctx, "G", 50))

	_, err = first.AddPoints(ctx, "G", "U", "M", 100, "spam")
	require.NoError(t, err)
	out, err := first.DeclinePending(ctx, "G", "U", "C")
	require.NoError(t, err)
	assert.Equal(DeclineDeclined, out.Result)
	assert.Equal(50, out.Points)

	points, err := first.GetPoints(ctx, "G", "U")
	require.NoError(t, err)
	assert.Equal(50, points)

	fallback, err = first.FallbackPoints(ctx, "G")
	require.NoError(t, err)
	assert.Equal(50, fallback)
}

func TestAlreadyPendingIsNotDuplicated(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	engine, db, _, _ := engineTestFixture(t)

	first, err := engine.AddPoints(ctx, "G", "U", "M", 100, "spam")
	require.NoError(t, err)
	second, err := engine.AddPoints(ctx, "G", "U", "M", 5, "more spam")
	require.NoError(t, err)
	assert.Equal(TriggerAlreadyPending, second.Trigger)
	assert.Equal(first.Pending.ID, second.Pending.ID)

	count, err := modpoints.CountPendingByUser(ctx, db, "G", "U")
	require.NoError(t, err)
	assert.Equal(1, count)
}

func TestNewPendingAfterTerminalState(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	engine, _, clock, _ := engineTestFixture(t)

	first, err := engine.AddPoints(ctx, "G", "U", "M", 100, "spam")
	require.NoError(t, err)
	_, err = engine.DeclinePending(ctx, "G", "U", "C")
	require.NoError(t, err)

	clock.Set(time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC))
	again, err := engine.AddPoints(ctx, "G", "U", "M", 100, "spam again")
	require.NoError(t, err)
	assert.Equal(TriggerCreated, again.Trigger)
	assert.NotEqual(first.Pending.ID, again.Pending.ID)
}

func TestLedgerRejectsSecondPending(t *testing.T) {
	ctx := context.Background()
	_, db, _, _ := engineTestFixture(t)
	now := time.Now().UTC()

	_, err := modpoints.InsertPending(ctx, db, "G", "U", "one", 100, now)
	require.NoError(t, err)
	_, err = modpoints.InsertPending(ctx, db, "G", "U", "two", 100, now)
	assert.ErrorIs(t, err, modpoints.ErrPendingExists)

	// other users and guilds are independent keys
	_, err = modpoints.InsertPending(ctx, db, "G", "V", "three", 100, now)
	assert.NoError(t, err)
	_, err = modpoints.InsertPending(ctx, db, "H", "U", "four", 100, now)
	assert.NoError(t, err)
}

func TestSetPointsRange(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	engine, db, clock, _ := engineTestFixture(t)

	assert.ErrorIs(engine.SetPoints(ctx, "G", "U", -1), ErrAmountOutOfRange)
	assert.ErrorIs(engine.SetPoints(ctx, "G", "U", MaxSetPoints+1), ErrAmountOutOfRange)

	// a stale period is overwritten, not reset on the next read
	_, err := engine.AddPoints(ctx, "G", "U", "M", 10, "")
	require.NoError(t, err)
	clock.Set(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, engine.SetPoints(ctx, "G", "U", 500))

	points, err := engine.GetPoints(ctx, "G", "U")
	require.NoError(t, err)
	assert.Equal(500, points)
	assert.Empty(casesWithAction(t, db, "G", "U", model.CaseActionPointsSet))
}

func TestConcurrentAddPointsNoLostUpdates(t *testing.T) {
	ctx := context.Background()
	engine, db, _, _ := engineTestFixture(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.AddPoints(ctx, "G", "U", "M", 3, "burst")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	points, err := engine.GetPoints(ctx, "G", "U")
	require.NoError(t, err)
	assert.Equal(t, 60, points)
	assert.Len(t, casesWithAction(t, db, "G", "U", model.CaseActionPoints), 20)
}

func TestConcurrentCapCreatesSinglePending(t *testing.T) {
	ctx := context.Background()
	engine, db, _, _ := engineTestFixture(t)

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := engine.AddPoints(ctx, "G", "U", "M", 100, "raid")
			assert.NoError(t, err)
			if res.Trigger == TriggerCreated {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	count, err := modpoints.CountPendingByUser(ctx, db, "G", "U")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestConcurrentApprovalsReachQuorumOnce(t *testing.T) {
	ctx := context.Background()
	engine, _, _, exec := engineTestFixture(t)

	_, err := engine.AddPoints(ctx, "G", "U", "M", 100, "raid")
	require.NoError(t, err)

	results := make(chan ApprovalResult, 8)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(mod string) {
			defer wg.Done()
			out, err := engine.AddApproval(ctx, "G", "U", mod)
			assert.NoError(t, err)
			results <- out.Result
		}(fmt.Sprintf("mod-%d", i))
	}
	wg.Wait()
	close(results)

	counts := map[ApprovalResult]int{}
	for r := range results {
		counts[r]++
	}
	assert.Equal(t, 1, counts[ApprovalPartial])
	assert.Equal(t, 1, counts[ApprovalFinal])
	assert.Equal(t, 6, counts[ApprovalNotPending])
	assert.Len(t, exec.Calls(), 1)
}

func TestListStalePending(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	engine, _, clock, _ := engineTestFixture(t)

	_, err := engine.AddPoints(ctx, "G", "old", "M", 100, "")
	require.NoError(t, err)
	clock.Set(clock.Now().Add(30 * time.Hour))
	_, err = engine.AddPoints(ctx, "G", "new", "M", 100, "")
	require.NoError(t, err)

	stale, err := engine.ListStalePending(ctx, 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal("old", stale[0].UserID)

	all, err := engine.ListPending(ctx, "G")
	require.NoError(t, err)
	assert.Len(all, 2)
	assert.Equal("old", all[0].UserID)
}

func TestTopBalancesCurrentPeriod(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	engine, _, clock, _ := engineTestFixture(t)

	_, err := engine.AddPoints(ctx, "G", "low", "M", 10, "")
	require.NoError(t, err)
	_, err = engine.AddPoints(ctx, "G", "high", "M", 70, "")
	require.NoError(t, err)
	_, err = engine.AddPoints(ctx, "H", "elsewhere", "M", 90, "")
	require.NoError(t, err)

	top, err := engine.TopBalances(ctx, "G", 5)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal("high", top[0].UserID)

	clock.Set(time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC))
	top, err = engine.TopBalances(ctx, "G", 5)
	require.NoError(t, err)
	assert.Empty(top)
}
