package handlers

import (
	"fmt"

	"modbot/bot"
	"modbot/utils"

	"github.com/bwmarrin/discordgo"
)

func HandleReloadConfig(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if i.Member == nil || !utils.HasPermission(i.Member, utils.AdminPermission) {
		utils.SendErrorResponse(s, i, "You do not have permission to use this command.")
		return
	}

	if err := b.ReloadConfig(); err != nil {
		utils.SendErrorResponse(s, i, fmt.Sprintf("Failed to reload configuration: %v", err))
		return
	}
	utils.SendEphemeralResponse(s, i, "✅ Configuration reloaded. Commands are being refreshed for every guild.")
}
