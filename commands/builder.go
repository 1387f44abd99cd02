package commands

import (
	"modbot/commands/defs"
	"modbot/model"

	"github.com/bwmarrin/discordgo"
)

// GenerateCommands returns the slash commands registered in an enabled guild.
func GenerateCommands(serverCfg *model.GuildConfig) []*discordgo.ApplicationCommand {
	if serverCfg == nil || !serverCfg.Enable {
		return nil
	}
	return []*discordgo.ApplicationCommand{
		defs.AddPoints,
		defs.Points,
		defs.PendingBans,
		defs.ApproveBan,
		defs.DeclineBan,
		defs.SetPoints,
		defs.PointFallback,
		defs.PointCases,
		defs.ModbotStatus,
		defs.ReloadConfig,
	}
}
