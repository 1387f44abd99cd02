package modpoints

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"modbot/model"

	"github.com/jmoiron/sqlx"
)

// GetBalance returns the stored balance row, or nil if the user has none yet.
func GetBalance(ctx context.Context, q sqlx.QueryerContext, guildID, userID string) (*model.PointsBalance, error) {
	var balance model.PointsBalance
	query := "SELECT * FROM mod_points WHERE guild_id = ? AND user_id = ?"
	err := sqlx.GetContext(ctx, q, &balance, query, guildID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get points for user %s in guild %s: %w", userID, guildID, err)
	}
	return &balance, nil
}

// SaveBalance inserts or overwrites the balance row for the (guild, user) pair.
func SaveBalance(ctx context.Context, e sqlx.ExtContext, balance model.PointsBalance) error {
	query := `INSERT INTO mod_points (guild_id, user_id, points, period, last_updated)
			  VALUES (:guild_id, :user_id, :points, :period, :last_updated)
			  ON CONFLICT(guild_id, user_id) DO UPDATE SET
			  points = excluded.points, period = excluded.period, last_updated = excluded.last_updated`
	if _, err := sqlx.NamedExecContext(ctx, e, query, balance); err != nil {
		return fmt.Errorf("failed to save points for user %s in guild %s: %w", balance.UserID, balance.GuildID, err)
	}
	return nil
}

// GetTopBalances returns the highest balances of a guild for the given period.
func GetTopBalances(ctx context.Context, q sqlx.QueryerContext, guildID, period string, limit int) ([]model.PointsBalance, error) {
	var balances []model.PointsBalance
	query := "SELECT * FROM mod_points WHERE guild_id = ? AND period = ? AND points > 0 ORDER BY points DESC LIMIT ?"
	if err := sqlx.SelectContext(ctx, q, &balances, query, guildID, period, limit); err != nil {
		return nil, fmt.Errorf("failed to get top balances for guild %s: %w", guildID, err)
	}
	return balances, nil
}
