package modpoints

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modbot/model"

	"github.com/jmoiron/sqlx"
)

// GetPending returns the most recent PENDING ban for the user, or nil if there is none.
func GetPending(ctx context.Context, q sqlx.QueryerContext, guildID, userID string) (*model.PendingBan, error) {
	var ban model.PendingBan
	query := `SELECT * FROM mod_point_bans WHERE guild_id = ? AND user_id = ? AND status = ? ORDER BY id DESC LIMIT 1`
	err := sqlx.GetContext(ctx, q, &ban, query, guildID, userID, model.PendingBanPending)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending ban for user %s in guild %s: %w", userID, guildID, err)
	}
	return &ban, nil
}

// GetBanByID retrieves a single ban request by its primary key.
func GetBanByID(ctx context.Context, q sqlx.QueryerContext, id int64) (*model.PendingBan, error) {
	var ban model.PendingBan
	err := sqlx.GetContext(ctx, q, &ban, "SELECT * FROM mod_point_bans WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get point ban by id %d: %w", id, err)
	}
	return &ban, nil
}

// InsertPending adds a new PENDING ban with no approvers and returns its ID.
// It fails with ErrPendingExists when the key already has a PENDING row.
func InsertPending(ctx context.Context, e sqlx.ExtContext, guildID, userID, reason string, points int, createdAt time.Time) (int64, error) {
	query := `INSERT INTO mod_point_bans (guild_id, user_id, created_at, reason, points_at_creation, status)
			  VALUES (?, ?, ?, ?, ?, ?)`
	result, err := e.ExecContext(ctx, query, guildID, userID, createdAt, reason, points, model.PendingBanPending)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrPendingExists
		}
		return 0, fmt.Errorf("failed to insert pending ban: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}
	return id, nil
}

// ClaimFirstApproval records moderatorID as approver_one if the slot is still empty.
// It reports whether this call won the slot.
func ClaimFirstApproval(ctx context.Context, e sqlx.ExecerContext, id int64, moderatorID string) (bool, error) {
	query := `UPDATE mod_point_bans SET approver_one = ?
			  WHERE id = ? AND status = ? AND approver_one IS NULL`
	return execOne(ctx, e, query, moderatorID, id, model.PendingBanPending)
}

// ClaimFinalApproval records moderatorID as approver_two and moves the ban to APPROVED.
// It only succeeds when approver_one is set to a different moderator.
func ClaimFinalApproval(ctx context.Context, e sqlx.ExecerContext, id int64, moderatorID string, at time.Time) (bool, error) {
	query := `UPDATE mod_point_bans SET approver_two = ?, status = ?, finalized_at = ?
			  WHERE id = ? AND status = ? AND approver_one IS NOT NULL AND approver_one <> ? AND approver_two IS NULL`
	return execOne(ctx, e, query, moderatorID, model.PendingBanApproved, at, id, model.PendingBanPending, moderatorID)
}

// CancelPending moves a PENDING ban to CANCELLED.
func CancelPending(ctx context.Context, e sqlx.ExecerContext, id int64, moderatorID string, at time.Time) (bool, error) {
	query := `UPDATE mod_point_bans SET status = ?, declined_by = ?, finalized_at = ?
			  WHERE id = ? AND status = ?`
	return execOne(ctx, e, query, model.PendingBanCancelled, moderatorID, at, id, model.PendingBanPending)
}

// ListPendingByGuild returns every PENDING ban of a guild, oldest first.
func ListPendingByGuild(ctx context.Context, q sqlx.QueryerContext, guildID string) ([]model.PendingBan, error) {
	var bans []model.PendingBan
	query := "SELECT * FROM mod_point_bans WHERE guild_id = ? AND status = ? ORDER BY created_at ASC, id ASC"
	if err := sqlx.SelectContext(ctx, q, &bans, query, guildID, model.PendingBanPending); err != nil {
		return nil, fmt.Errorf("failed to list pending bans for guild %s: %w", guildID, err)
	}
	return bans, nil
}

// ListPendingCreatedBefore returns PENDING bans across all guilds created before the cutoff.
func ListPendingCreatedBefore(ctx context.Context, q sqlx.QueryerContext, cutoff time.Time) ([]model.PendingBan, error) {
	var bans []model.PendingBan
	query := "SELECT * FROM mod_point_bans WHERE status = ? AND created_at < ? ORDER BY guild_id, created_at ASC"
	if err := sqlx.SelectContext(ctx, q, &bans, query, model.PendingBanPending, cutoff); err != nil {
		return nil, fmt.Errorf("failed to list stale pending bans: %w", err)
	}
	return bans, nil
}

// CountPendingByUser counts PENDING rows for one key. Used to verify the single-pending invariant.
func CountPendingByUser(ctx context.Context, q sqlx.QueryerContext, guildID, userID string) (int, error) {
	var count int
	query := "SELECT COUNT(*) FROM mod_point_bans WHERE guild_id = ? AND user_id = ? AND status = ?"
	if err := sqlx.GetContext(ctx, q, &count, query, guildID, userID, model.PendingBanPending); err != nil {
		return 0, fmt.Errorf("failed to count pending bans for user %s in guild %s: %w", userID, guildID, err)
	}
	return count, nil
}

func execOne(ctx context.Context, e sqlx.ExecerContext, query string, args ...interface{}) (bool, error) {
	result, err := e.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update point ban: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}
