package handlers

import (
	"log"

	"modbot/bot"
	"modbot/handlers/pointmod"
	"modbot/utils"

	"github.com/bwmarrin/discordgo"
)

func Register(b *bot.Bot) {
	b.CommandHandlers = commandHandlers(b)
	addHandlers(b)
}

func commandHandlers(b *bot.Bot) map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	wrap := func(h func(*discordgo.Session, *discordgo.InteractionCreate, *bot.Bot)) func(*discordgo.Session, *discordgo.InteractionCreate) {
		return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			h(s, i, b)
		}
	}
	return map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate){
		"add-points":     wrap(pointmod.HandleAddPoints),
		"points":         wrap(pointmod.HandlePoints),
		"pending-bans":   wrap(pointmod.HandlePendingBans),
		"approve-ban":    wrap(pointmod.HandleApproveBan),
		"decline-ban":    wrap(pointmod.HandleDeclineBan),
		"set-points":     wrap(pointmod.HandleSetPoints),
		"point-fallback": wrap(pointmod.HandlePointFallback),
		"point-cases":    wrap(pointmod.HandlePointCases),
		"modbot-status": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			if i.Member == nil || !utils.HasPermission(i.Member, utils.AdminPermission) {
				utils.SendErrorResponse(s, i, "You do not have permission to use this command.")
				return
			}
			SystemInfoHandler(s, i, b)
		},
		"reload-config": wrap(HandleReloadConfig),
	}
}

func addHandlers(b *bot.Bot) {
	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		log.Printf("Logged in as: %v#%v", r.User.Username, r.User.Discriminator)
	})
	b.Session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		handleInteractionCreate(s, i, b)
	})
}

func handleInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		if h, ok := b.CommandHandlers[i.ApplicationCommandData().Name]; ok {
			h(s, i)
		}
	case discordgo.InteractionMessageComponent:
		customID := i.MessageComponentData().CustomID
		if pointmod.IsBanButton(customID) {
			pointmod.HandleBanButton(s, i, b)
		}
	}
}
