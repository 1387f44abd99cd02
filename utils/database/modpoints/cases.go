package modpoints

import (
	"context"
	"fmt"
	"time"

	"modbot/model"

	"github.com/jmoiron/sqlx"
)

// AddCase appends an audit entry to mod_cases and returns its ID.
func AddCase(ctx context.Context, e sqlx.ExtContext, entry model.CaseLogEntry) (int64, error) {
	query := `INSERT INTO mod_cases (guild_id, user_id, moderator_id, action, reason, created_at)
			  VALUES (:guild_id, :user_id, :moderator_id, :action, :reason, :created_at)`
	result, err := sqlx.NamedExecContext(ctx, e, query, entry)
	if err != nil {
		return 0, fmt.Errorf("failed to insert case log entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}
	return id, nil
}

// GetCasesByUser returns the latest case entries for a user, newest first.
func GetCasesByUser(ctx context.Context, q sqlx.QueryerContext, guildID, userID string, limit int) ([]model.CaseLogEntry, error) {
	var entries []model.CaseLogEntry
	query := "SELECT * FROM mod_cases WHERE guild_id = ? AND user_id = ? ORDER BY id DESC LIMIT ?"
	if err := sqlx.SelectContext(ctx, q, &entries, query, guildID, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to get cases for user %s in guild %s: %w", userID, guildID, err)
	}
	return entries, nil
}

// CountCasesByAction counts entries with the given action tag since a point in time.
func CountCasesByAction(ctx context.Context, q sqlx.QueryerContext, guildID, action string, since time.Time) (int, error) {
	var count int
	query := "SELECT COUNT(*) FROM mod_cases WHERE guild_id = ? AND action = ? AND created_at >= ?"
	if err := sqlx.GetContext(ctx, q, &count, query, guildID, action, since); err != nil {
		return 0, fmt.Errorf("failed to count %s cases for guild %s: %w", action, guildID, err)
	}
	return count, nil
}
