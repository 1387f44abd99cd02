package modpoints

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"modbot/model"

	"github.com/jmoiron/sqlx"
)

// GetFallbackPoints returns the guild's configured fallback, or def when none is stored.
func GetFallbackPoints(ctx context.Context, q sqlx.QueryerContext, guildID string, def int) (int, error) {
	var points int
	err := sqlx.GetContext(ctx, q, &points, "SELECT fallback_points FROM mod_point_config WHERE guild_id = ?", guildID)
	if errors.Is(err, sql.ErrNoRows) {
		return def, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get fallback points for guild %s: %w", guildID, err)
	}
	return points, nil
}

// SetFallbackPoints stores the guild's fallback balance.
func SetFallbackPoints(ctx context.Context, e sqlx.ExtContext, guildID string, points int) error {
	query := `INSERT INTO mod_point_config (guild_id, fallback_points) VALUES (:guild_id, :fallback_points)
			  ON CONFLICT(guild_id) DO UPDATE SET fallback_points = excluded.fallback_points`
	cfg := model.FallbackConfig{GuildID: guildID, FallbackPoints: points}
	if _, err := sqlx.NamedExecContext(ctx, e, query, cfg); err != nil {
		return fmt.Errorf("failed to set fallback points for guild %s: %w", guildID, err)
	}
	return nil
}
