package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"modbot/model"
	"modbot/utils/database/modpoints"
	"modbot/utils/keylock"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jmoiron/sqlx"
)

const (
	PointCap              = 100
	MaxSetPoints          = 10000
	DefaultFallbackPoints = 80

	fallbackCacheSize = 4096
	fallbackCacheTTL  = 30 * time.Second
)

// BanReason is the audit reason passed to the executor when quorum is reached.
var BanReason = fmt.Sprintf("Point threshold exceeded (%d)", PointCap)

// ErrAmountOutOfRange is returned for administrative values outside their allowed range.
var ErrAmountOutOfRange = errors.New("amount out of range")

// Options carries the engine's collaborators. Zero values fall back to in-process defaults.
type Options struct {
	Locker          keylock.Locker
	Executor        Executor
	Clock           func() time.Time
	DefaultFallback int
	Logger          *slog.Logger
}

// Engine owns every mutation of point balances and pending bans.
type Engine struct {
	db              *sqlx.DB
	locker          keylock.Locker
	executor        Executor
	now             func() time.Time
	defaultFallback int
	fallbackCache   *expirable.LRU[string, int]
	logger          *slog.Logger
}

func NewEngine(db *sqlx.DB, opts Options) (*Engine, error) {
	// Other processes may change the fallback; the TTL bounds how long reads lag behind.
	cache := expirable.NewLRU[string, int](fallbackCacheSize, nil, fallbackCacheTTL)

	e := &Engine{
		db:              db,
		locker:          opts.Locker,
		executor:        opts.Executor,
		now:             opts.Clock,
		defaultFallback: opts.DefaultFallback,
		fallbackCache:   cache,
		logger:          opts.Logger,
	}
	if e.locker == nil {
		e.locker = keylock.NewMemLocker()
	}
	if e.executor == nil {
		e.executor = noopExecutor{}
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.defaultFallback == 0 {
		e.defaultFallback = DefaultFallbackPoints
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.logger = e.logger.With("component", "pointmod")
	return e, nil
}

func (e *Engine) clock() time.Time {
	return e.now().UTC()
}

// withUser runs fn in a single transaction while holding the (guild, user) lock.
func (e *Engine) withUser(ctx context.Context, guildID, userID string, fn func(tx *sqlx.Tx) error) error {
	unlock, err := e.locker.Lock(ctx, guildID+"/"+userID)
	if err != nil {
		return fmt.Errorf("failed to lock user %s in guild %s: %w", userID, guildID, err)
	}
	defer unlock()

	tx, err := e.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// currentBalance loads the balance, creating it or resetting it for a new period as needed.
func (e *Engine) currentBalance(ctx context.Context, tx *sqlx.Tx, guildID, userID string) (model.PointsBalance, error) {
	now := e.clock()
	period := PeriodToken(now)

	stored, err := modpoints.GetBalance(ctx, tx, guildID, userID)
	if err != nil {
		return model.PointsBalance{}, err
	}
	if stored != nil && stored.Period == period {
		return *stored, nil
	}

	balance := model.PointsBalance{
		GuildID:     guildID,
		UserID:      userID,
		Points:      0,
		Period:      period,
		LastUpdated: now,
	}
	if stored != nil {
		periodRolloverCount.Inc()
		e.logger.Debug("point period rollover", "guild", guildID, "user", userID, "from", stored.Period, "to", period, "points", stored.Points)
	}
	if err := modpoints.SaveBalance(ctx, tx, balance); err != nil {
		return model.PointsBalance{}, err
	}
	return balance, nil
}

func (e *Engine) writeBalance(ctx context.Context, tx *sqlx.Tx, guildID, userID string, points int) error {
	now := e.clock()
	return modpoints.SaveBalance(ctx, tx, model.PointsBalance{
		GuildID:     guildID,
		UserID:      userID,
		Points:      points,
		Period:      PeriodToken(now),
		LastUpdated: now,
	})
}

func (e *Engine) writeCase(ctx context.Context, tx *sqlx.Tx, guildID, userID, moderatorID, action, reason string) error {
	_, err := modpoints.AddCase(ctx, tx, model.CaseLogEntry{
		GuildID:     guildID,
		UserID:      userID,
		ModeratorID: moderatorID,
		Action:      action,
		Reason:      reason,
		CreatedAt:   e.clock(),
	})
	return err
}

// GetPoints returns the user's balance for the current period.
func (e *Engine) GetPoints(ctx context.Context, guildID, userID string) (int, error) {
	var points int
	err := e.withUser(ctx, guildID, userID, func(tx *sqlx.Tx) error {
		balance, err := e.currentBalance(ctx, tx, guildID, userID)
		if err != nil {
			return err
		}
		points = balance.Points
		return nil
	})
	return points, err
}

// AddPoints adds a positive amount, saturating at PointCap, and writes one POINTS case entry.
// Reaching the cap creates a pending ban unless one is already PENDING for the user.
// A non-positive amount is a no-op that reports the current balance.
func (e *Engine) AddPoints(ctx context.Context, guildID, userID, moderatorID string, amount int, reason string) (AddResult, error) {
	if amount <= 0 {
		points, err := e.GetPoints(ctx, guildID, userID)
		return AddResult{Points: points, Trigger: TriggerNone}, err
	}

	var result AddResult
	var added int
	err := e.withUser(ctx, guildID, userID, func(tx *sqlx.Tx) error {
		balance, err := e.currentBalance(ctx, tx, guildID, userID)
		if err != nil {
			return err
		}

		points := balance.Points
		if points < PointCap {
			points = min(points+amount, PointCap)
		}
		added = points - balance.Points

		if err := e.writeBalance(ctx, tx, guildID, userID, points); err != nil {
			return err
		}
		caseReason := fmt.Sprintf("+%d points (%s); total %d/%d", added, reasonOrDefault(reason), points, PointCap)
		if err := e.writeCase(ctx, tx, guildID, userID, moderatorID, model.CaseActionPoints, caseReason); err != nil {
			return err
		}

		result = AddResult{Points: points, Added: added, ReachedCap: points >= PointCap, Trigger: TriggerNone}
		if !result.ReachedCap {
			return nil
		}

		result.Trigger, result.Pending, err = e.ensurePending(ctx, tx, guildID, userID, reason, points)
		return err
	})
	if err != nil {
		return AddResult{}, err
	}

	pointsAddedCount.Add(float64(added))
	if result.Trigger == TriggerCreated {
		pendingBanCreatedCount.Inc()
		e.logger.Info("pending point ban created", "guild", guildID, "user", userID, "ban", result.Pending.ID, "points", result.Points)
	}
	return result, nil
}

// ensurePending creates a PENDING ban iff none exists. The partial unique index is the arbiter.
func (e *Engine) ensurePending(ctx context.Context, tx *sqlx.Tx, guildID, userID, reason string, points int) (TriggerOutcome, *model.PendingBan, error) {
	existing, err := modpoints.GetPending(ctx, tx, guildID, userID)
	if err != nil {
		return TriggerNone, nil, err
	}
	if existing != nil {
		return TriggerAlreadyPending, existing, nil
	}

	id, err := modpoints.InsertPending(ctx, tx, guildID, userID, reasonOrDefault(reason), points, e.clock())
	if errors.Is(err, modpoints.ErrPendingExists) {
		existing, err = modpoints.GetPending(ctx, tx, guildID, userID)
		return TriggerAlreadyPending, existing, err
	}
	if err != nil {
		return TriggerNone, nil, err
	}

	created, err := modpoints.GetBanByID(ctx, tx, id)
	if err != nil {
		return TriggerNone, nil, err
	}
	return TriggerCreated, created, nil
}

// SetPoints overwrites the balance for the current period. It does not write a case entry.
func (e *Engine) SetPoints(ctx context.Context, guildID, userID string, amount int) error {
	if amount < 0 || amount > MaxSetPoints {
		return fmt.Errorf("%w: points must be between 0 and %d", ErrAmountOutOfRange, MaxSetPoints)
	}
	return e.withUser(ctx, guildID, userID, func(tx *sqlx.Tx) error {
		return e.writeBalance(ctx, tx, guildID, userID, amount)
	})
}

// RecordCase appends a case entry for actions taken outside the engine, e.g. an administrative set.
func (e *Engine) RecordCase(ctx context.Context, guildID, userID, moderatorID, action, reason string) error {
	_, err := modpoints.AddCase(ctx, e.db, model.CaseLogEntry{
		GuildID:     guildID,
		UserID:      userID,
		ModeratorID: moderatorID,
		Action:      action,
		Reason:      reason,
		CreatedAt:   e.clock(),
	})
	return err
}

// AddApproval records moderatorID as an approver of the user's pending ban.
// The second distinct approver finalizes the ban and triggers the executor.
func (e *Engine) AddApproval(ctx context.Context, guildID, userID, moderatorID string) (ApprovalOutcome, error) {
	var outcome ApprovalOutcome
	err := e.withUser(ctx, guildID, userID, func(tx *sqlx.Tx) error {
		ban, err := modpoints.GetPending(ctx, tx, guildID, userID)
		if err != nil {
			return err
		}
		if ban == nil {
			outcome = ApprovalOutcome{Result: ApprovalNotPending}
			return nil
		}
		if ban.HasApprover(moderatorID) {
			outcome = ApprovalOutcome{Result: ApprovalAlreadyApproved, Ban: ban}
			return nil
		}

		if !ban.ApproverOne.Valid {
			won, err := modpoints.ClaimFirstApproval(ctx, tx, ban.ID, moderatorID)
			if err != nil {
				return err
			}
			if won {
				ban, err = modpoints.GetBanByID(ctx, tx, ban.ID)
				if err != nil {
					return err
				}
				outcome = ApprovalOutcome{Result: ApprovalPartial, Ban: ban}
				return nil
			}
		}

		won, err := modpoints.ClaimFinalApproval(ctx, tx, ban.ID, moderatorID, e.clock())
		if err != nil {
			return err
		}
		ban, err = modpoints.GetBanByID(ctx, tx, ban.ID)
		if err != nil {
			return err
		}
		if !won {
			if ban.Status != model.PendingBanPending {
				outcome = ApprovalOutcome{Result: ApprovalNotPending}
			} else {
				outcome = ApprovalOutcome{Result: ApprovalAlreadyApproved, Ban: ban}
			}
			return nil
		}

		if err := e.writeBalance(ctx, tx, guildID, userID, 0); err != nil {
			return err
		}
		caseReason := fmt.Sprintf("%s; approved by %s", BanReason, strings.Join(ban.Approvers(), ", "))
		if err := e.writeCase(ctx, tx, guildID, userID, moderatorID, model.CaseActionPointBan, caseReason); err != nil {
			return err
		}
		outcome = ApprovalOutcome{Result: ApprovalFinal, Ban: ban}
		return nil
	})
	if err != nil {
		return ApprovalOutcome{}, err
	}

	approvalCount.WithLabelValues(string(outcome.Result)).Inc()
	if outcome.Result == ApprovalFinal {
		e.logger.Info("point ban approved", "guild", guildID, "user", userID, "ban", outcome.Ban.ID, "approvers", outcome.Ban.Approvers())
		if err := e.executor.Execute(ctx, guildID, userID, BanReason); err != nil {
			banExecutionErrorCount.Inc()
			e.logger.Warn("ban execution failed after quorum", "guild", guildID, "user", userID, "err", err)
		}
	}
	return outcome, nil
}

// DeclinePending cancels the user's pending ban and resets the balance to the guild fallback.
func (e *Engine) DeclinePending(ctx context.Context, guildID, userID, moderatorID string) (DeclineOutcome, error) {
	var outcome DeclineOutcome
	err := e.withUser(ctx, guildID, userID, func(tx *sqlx.Tx) error {
		ban, err := modpoints.GetPending(ctx, tx, guildID, userID)
		if err != nil {
			return err
		}
		if ban == nil {
			outcome = DeclineOutcome{Result: DeclineNotPending}
			return nil
		}

		cancelled, err := modpoints.CancelPending(ctx, tx, ban.ID, moderatorID, e.clock())
		if err != nil {
			return err
		}
		if !cancelled {
			outcome = DeclineOutcome{Result: DeclineNotPending}
			return nil
		}

		fallback, err := modpoints.GetFallbackPoints(ctx, tx, guildID, e.defaultFallback)
		if err != nil {
			return err
		}
		e.fallbackCache.Add(guildID, fallback)
		if err := e.writeBalance(ctx, tx, guildID, userID, fallback); err != nil {
			return err
		}
		caseReason := fmt.Sprintf("Pending point ban declined; points set to %d", fallback)
		if err := e.writeCase(ctx, tx, guildID, userID, moderatorID, model.CaseActionPointBanStop, caseReason); err != nil {
			return err
		}

		ban, err = modpoints.GetBanByID(ctx, tx, ban.ID)
		if err != nil {
			return err
		}
		outcome = DeclineOutcome{Result: DeclineDeclined, Ban: ban, Points: fallback}
		return nil
	})
	if err != nil {
		return DeclineOutcome{}, err
	}

	declineCount.WithLabelValues(string(outcome.Result)).Inc()
	if outcome.Result == DeclineDeclined {
		e.logger.Info("point ban declined", "guild", guildID, "user", userID, "ban", outcome.Ban.ID, "moderator", moderatorID, "points", outcome.Points)
	}
	return outcome, nil
}

// GetPending returns the user's PENDING ban, or nil.
func (e *Engine) GetPending(ctx context.Context, guildID, userID string) (*model.PendingBan, error) {
	return modpoints.GetPending(ctx, e.db, guildID, userID)
}

// GetBan loads a ban request in any state.
func (e *Engine) GetBan(ctx context.Context, banID int64) (*model.PendingBan, error) {
	return modpoints.GetBanByID(ctx, e.db, banID)
}

// ListPending returns every PENDING ban in the guild, oldest first.
func (e *Engine) ListPending(ctx context.Context, guildID string) ([]model.PendingBan, error) {
	return modpoints.ListPendingByGuild(ctx, e.db, guildID)
}

// ListStalePending returns PENDING bans in all guilds that have waited longer than age.
func (e *Engine) ListStalePending(ctx context.Context, age time.Duration) ([]model.PendingBan, error) {
	return modpoints.ListPendingCreatedBefore(ctx, e.db, e.clock().Add(-age))
}

// TopBalances returns the guild's highest balances in the current period.
func (e *Engine) TopBalances(ctx context.Context, guildID string, limit int) ([]model.PointsBalance, error) {
	return modpoints.GetTopBalances(ctx, e.db, guildID, PeriodToken(e.clock()), limit)
}

// RecentCases returns the newest case entries for a user.
func (e *Engine) RecentCases(ctx context.Context, guildID, userID string, limit int) ([]model.CaseLogEntry, error) {
	return modpoints.GetCasesByUser(ctx, e.db, guildID, userID, limit)
}

// CountCases counts case entries with the given action in the guild since a point in time.
func (e *Engine) CountCases(ctx context.Context, guildID, action string, since time.Time) (int, error) {
	return modpoints.CountCasesByAction(ctx, e.db, guildID, action, since)
}

// FallbackPoints returns the balance a declined ban resets the user to.
// The value may be up to fallbackCacheTTL old; DeclinePending always reads the stored one.
func (e *Engine) FallbackPoints(ctx context.Context, guildID string) (int, error) {
	if points, ok := e.fallbackCache.Get(guildID); ok {
		return points, nil
	}
	points, err := modpoints.GetFallbackPoints(ctx, e.db, guildID, e.defaultFallback)
	if err != nil {
		return 0, err
	}
	e.fallbackCache.Add(guildID, points)
	return points, nil
}

// SetFallbackPoints stores the guild fallback. It must stay below the cap.
func (e *Engine) SetFallbackPoints(ctx context.Context, guildID string, points int) error {
	if points < 0 || points >= PointCap {
		return fmt.Errorf("%w: fallback must be between 0 and %d", ErrAmountOutOfRange, PointCap-1)
	}
	if err := modpoints.SetFallbackPoints(ctx, e.db, guildID, points); err != nil {
		return err
	}
	e.fallbackCache.Add(guildID, points)
	return nil
}

// Now exposes the engine clock so callers render times consistently.
func (e *Engine) Now() time.Time {
	return e.clock()
}

func reasonOrDefault(reason string) string {
	if strings.TrimSpace(reason) == "" {
		return "No reason provided"
	}
	return reason
}
