package tasks

import (
	"database/sql"
	"testing"
	"time"

	"modbot/model"

	"github.com/stretchr/testify/assert"
)

func TestGroupByGuild(t *testing.T) {
	assert := assert.New(t)
	base := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	grouped := GroupByGuild([]model.PendingBan{
		{ID: 1, GuildID: "A", UserID: "u1", CreatedAt: base.Add(2 * time.Hour)},
		{ID: 2, GuildID: "B", UserID: "u2", CreatedAt: base},
		{ID: 3, GuildID: "A", UserID: "u3", CreatedAt: base},
	})
	assert.Len(grouped, 2)
	assert.Equal(int64(3), grouped["A"][0].ID)
	assert.Equal(int64(1), grouped["A"][1].ID)
	assert.Len(grouped["B"], 1)
}

func TestGeneratePendingDigestEmbed(t *testing.T) {
	assert := assert.New(t)
	now := time.Date(2025, 1, 17, 0, 0, 0, 0, time.UTC)

	embed := GeneratePendingDigestEmbed([]model.PendingBan{
		{ID: 1, GuildID: "A", UserID: "42", CreatedAt: now.Add(-30 * time.Hour), ApproverOne: sql.NullString{String: "7", Valid: true}},
	}, CaseCounts{PointsAdded: 5, Bans: 1}, []model.PointsBalance{{UserID: "42", Points: 100}, {UserID: "43", Points: 60}}, now)

	assert.Equal("Pending point bans", embed.Title)
	assert.Contains(embed.Description, "<@42>: 1/2 approvals, waiting 30h0m0s")
	assert.Contains(embed.Description, "Point cases: 5 | Bans: 1 | Declines: 0")
	assert.Contains(embed.Description, "2. <@43>: 60")
}
