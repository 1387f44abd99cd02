package tasks

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"modbot/model"

	"github.com/bwmarrin/discordgo"
)

// StalePendingAge is how long a PENDING ban waits before it shows up in the reminder digest.
const StalePendingAge = 24 * time.Hour

// DigestSource is the slice of the moderation engine the digest needs.
type DigestSource interface {
	ListStalePending(ctx context.Context, age time.Duration) ([]model.PendingBan, error)
	CountCases(ctx context.Context, guildID, action string, since time.Time) (int, error)
	TopBalances(ctx context.Context, guildID string, limit int) ([]model.PointsBalance, error)
	Now() time.Time
}

// CaseCounts summarises point moderation activity in a guild over the digest window.
type CaseCounts struct {
	PointsAdded int
	Bans        int
	Declines    int
}

// GroupByGuild splits stale bans per guild, keeping each list oldest first.
func GroupByGuild(bans []model.PendingBan) map[string][]model.PendingBan {
	grouped := make(map[string][]model.PendingBan)
	for _, ban := range bans {
		grouped[ban.GuildID] = append(grouped[ban.GuildID], ban)
	}
	for _, list := range grouped {
		sort.Slice(list, func(i, j int) bool {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		})
	}
	return grouped
}

func GeneratePendingDigestEmbed(bans []model.PendingBan, counts CaseCounts, top []model.PointsBalance, now time.Time) *discordgo.MessageEmbed {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("### %d point ban(s) waiting longer than %s\n", len(bans), StalePendingAge.String()))

	for i, ban := range bans {
		if i == 20 {
			builder.WriteString(fmt.Sprintf("…and %d more\n", len(bans)-i))
			break
		}
		waiting := now.Sub(ban.CreatedAt).Truncate(time.Hour)
		builder.WriteString(fmt.Sprintf("%d. <@%s>: %d/2 approvals, waiting %s\n", i+1, ban.UserID, len(ban.Approvers()), waiting))
	}

	builder.WriteString("\n**Last 24h:**\n")
	builder.WriteString(fmt.Sprintf("Point cases: %d | Bans: %d | Declines: %d\n", counts.PointsAdded, counts.Bans, counts.Declines))

	if len(top) > 0 {
		builder.WriteString("\n**Highest balances this month:**\n")
		for i, b := range top {
			builder.WriteString(fmt.Sprintf("%d. <@%s>: %d\n", i+1, b.UserID, b.Points))
		}
	}

	return &discordgo.MessageEmbed{
		Title:       "Pending point bans",
		Description: builder.String(),
		Timestamp:   now.Format(time.RFC3339),
		Color:       0xf1c40f,
	}
}

func countRecentCases(ctx context.Context, src DigestSource, guildID string, since time.Time) CaseCounts {
	var counts CaseCounts
	var err error
	if counts.PointsAdded, err = src.CountCases(ctx, guildID, model.CaseActionPoints, since); err != nil {
		log.Printf("Failed to count point cases for guild %s: %v", guildID, err)
	}
	if counts.Bans, err = src.CountCases(ctx, guildID, model.CaseActionPointBan, since); err != nil {
		log.Printf("Failed to count point bans for guild %s: %v", guildID, err)
	}
	if counts.Declines, err = src.CountCases(ctx, guildID, model.CaseActionPointBanStop, since); err != nil {
		log.Printf("Failed to count declined point bans for guild %s: %v", guildID, err)
	}
	return counts
}

// PostPendingDigests posts a reminder for stale PENDING bans to each guild's log channel.
// It never changes ban state.
func PostPendingDigests(ctx context.Context, s *discordgo.Session, cfg *model.Config, src DigestSource) {
	bans, err := src.ListStalePending(ctx, StalePendingAge)
	if err != nil {
		log.Printf("Failed to list stale pending bans: %v", err)
		return
	}
	if len(bans) == 0 {
		return
	}

	now := src.Now()
	for guildID, guildBans := range GroupByGuild(bans) {
		channelID := cfg.LogChannelFor(guildID)
		if channelID == "" {
			log.Printf("No log channel for guild %s, skipping pending ban digest", guildID)
			continue
		}
		counts := countRecentCases(ctx, src, guildID, now.Add(-24*time.Hour))
		top, err := src.TopBalances(ctx, guildID, 5)
		if err != nil {
			log.Printf("Failed to load top balances for guild %s: %v", guildID, err)
		}
		embed := GeneratePendingDigestEmbed(guildBans, counts, top, now)
		if _, err := s.ChannelMessageSendEmbed(channelID, embed); err != nil {
			log.Printf("Failed to send pending ban digest to channel %s: %v", channelID, err)
		}
	}
}
