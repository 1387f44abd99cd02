package pointmod

import (
	"context"
	"fmt"
	"log"

	"modbot/model"
	"modbot/moderation"
	"modbot/utils"

	"github.com/bwmarrin/discordgo"
)

// SessionProvider is what the executor needs from the bot.
type SessionProvider interface {
	GetSession() *discordgo.Session
	GetConfig() *model.Config
}

// DiscordExecutor DMs the member and bans them once a point ban is approved.
type DiscordExecutor struct {
	bot SessionProvider
}

var _ moderation.Executor = (*DiscordExecutor)(nil)

func NewExecutor(bot SessionProvider) *DiscordExecutor {
	return &DiscordExecutor{bot: bot}
}

func (e *DiscordExecutor) Execute(ctx context.Context, guildID, userID, reason string) error {
	s := e.bot.GetSession()
	logChannel := e.bot.GetConfig().LogChannelFor(guildID)

	guildName := guildID
	if guild, err := s.Guild(guildID, discordgo.WithContext(ctx)); err == nil {
		guildName = guild.Name
	}

	// DM first: after the ban the bot no longer shares a guild with the member.
	if err := utils.SendPrivateEmbedMessage(s, userID, BuildBanDMEmbed(guildName, reason)); err != nil {
		log.Printf("Point ban DM to %s failed: %v", userID, err)
	}

	if err := s.GuildBanCreateWithReason(guildID, userID, reason, 0, discordgo.WithContext(ctx)); err != nil {
		if logErr := utils.LogError(s, logChannel, "PointMod", "Ban", fmt.Sprintf("Failed to ban <@%s>: %v", userID, err)); logErr != nil {
			log.Printf("Failed to send point ban error log: %v", logErr)
		}
		return fmt.Errorf("ban user %s in guild %s: %w", userID, guildID, err)
	}

	if err := utils.LogInfo(s, logChannel, "PointMod", "Ban", fmt.Sprintf("<@%s> banned: %s", userID, reason)); err != nil {
		log.Printf("Failed to send point ban log: %v", err)
	}
	return nil
}
