package model

import (
	"database/sql"
	"time"
)

// PendingBanStatus is the lifecycle state of a point ban request.
type PendingBanStatus string

const (
	PendingBanPending   PendingBanStatus = "PENDING"
	PendingBanApproved  PendingBanStatus = "APPROVED"
	PendingBanCancelled PendingBanStatus = "CANCELLED"
)

// Case log action tags.
const (
	CaseActionPoints       = "POINTS"
	CaseActionPointsSet    = "POINTS-SET"
	CaseActionPointBan     = "POINTBAN"
	CaseActionPointBanStop = "POINTBAN-CANCEL"
)

// PointsBalance is a user's moderation point balance inside one guild.
// The table is named 'mod_points'.
type PointsBalance struct {
	GuildID     string    `db:"guild_id"`
	UserID      string    `db:"user_id"`
	Points      int       `db:"points"`
	Period      string    `db:"period"` // "YYYY-MM"
	LastUpdated time.Time `db:"last_updated"`
}

// PendingBan is a ban request awaiting two distinct approvers.
// The table is named 'mod_point_bans'.
type PendingBan struct {
	ID               int64            `db:"id"`
	GuildID          string           `db:"guild_id"`
	UserID           string           `db:"user_id"`
	CreatedAt        time.Time        `db:"created_at"`
	Reason           string           `db:"reason"`
	PointsAtCreation int              `db:"points_at_creation"`
	Status           PendingBanStatus `db:"status"`
	ApproverOne      sql.NullString   `db:"approver_one"`
	ApproverTwo      sql.NullString   `db:"approver_two"`
	DeclinedBy       sql.NullString   `db:"declined_by"`
	FinalizedAt      sql.NullTime     `db:"finalized_at"`
}

// Approvers returns the moderator IDs that have approved so far, in order.
func (p *PendingBan) Approvers() []string {
	var ids []string
	if p.ApproverOne.Valid {
		ids = append(ids, p.ApproverOne.String)
	}
	if p.ApproverTwo.Valid {
		ids = append(ids, p.ApproverTwo.String)
	}
	return ids
}

// HasApprover reports whether moderatorID already occupies an approver slot.
func (p *PendingBan) HasApprover(moderatorID string) bool {
	return (p.ApproverOne.Valid && p.ApproverOne.String == moderatorID) ||
		(p.ApproverTwo.Valid && p.ApproverTwo.String == moderatorID)
}

// CaseLogEntry is an append-only audit record in 'mod_cases'.
type CaseLogEntry struct {
	ID          int64     `db:"id"`
	GuildID     string    `db:"guild_id"`
	UserID      string    `db:"user_id"`
	ModeratorID string    `db:"moderator_id"`
	Action      string    `db:"action"`
	Reason      string    `db:"reason"`
	CreatedAt   time.Time `db:"created_at"`
}

// FallbackConfig holds the balance a user is reset to after a declined ban.
type FallbackConfig struct {
	GuildID        string `db:"guild_id"`
	FallbackPoints int    `db:"fallback_points"`
}
