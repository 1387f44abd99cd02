package bot

import (
	"log"
	"net/http"
	"sync/atomic"

	"modbot/commands"
	"modbot/config"
	"modbot/model"
	"modbot/moderation"

	"github.com/bwmarrin/discordgo"
	"github.com/jmoiron/sqlx"
)

type Bot struct {
	Session            *discordgo.Session
	RegisteredCommands []*discordgo.ApplicationCommand
	config             atomic.Value // *model.Config
	CommandHandlers    map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate)
	DB                 *sqlx.DB
	Engine             *moderation.Engine
	Views              *moderation.ViewTracker
	scheduler          *Scheduler
	metricsServer      *http.Server
}

func (b *Bot) GetConfig() *model.Config {
	return b.config.Load().(*model.Config)
}

func (b *Bot) GetSession() *discordgo.Session {
	return b.Session
}

func (b *Bot) GetEngine() *moderation.Engine {
	return b.Engine
}

func (b *Bot) GetViews() *moderation.ViewTracker {
	return b.Views
}

func (b *Bot) GetDB() *sqlx.DB {
	return b.DB
}

func New(cfg *model.Config, db *sqlx.DB) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, err
	}
	dg.Identify.Intents = discordgo.IntentsGuilds

	b := &Bot{
		Session: dg,
		DB:      db,
		Views:   moderation.NewViewTracker(moderation.ApprovalViewTimeout, nil),
	}
	b.config.Store(cfg)
	return b, nil
}

func (b *Bot) Close() {
	log.Println("Gracefully shutting down.")
	if b.scheduler != nil {
		b.scheduler.Stop()
	}
	b.stopMetricsServer()
	b.Session.Close()
}

func (b *Bot) RefreshCommands(guildID string) {
	serverCfg, ok := b.GetConfig().ServerConfigs[guildID]
	if !ok {
		log.Printf("Could not find server config for guild: %s", guildID)
		return
	}
	log.Printf("Updating commands for guild %s", serverCfg.GuildID)

	cmds := commands.GenerateCommands(&serverCfg)
	log.Printf("Registering %d new commands for guild %s...", len(cmds), serverCfg.GuildID)
	registeredCmds, err := b.Session.ApplicationCommandBulkOverwrite(b.appID(), serverCfg.GuildID, cmds)
	if err != nil {
		log.Printf("cannot update commands for guild '%s': %v", serverCfg.GuildID, err)
		return
	}
	b.RegisteredCommands = append(b.RegisteredCommands, registeredCmds...)
}

// UnregisterCommands removes every guild command this application registered in guildID.
func (b *Bot) UnregisterCommands(guildID string) {
	if _, err := b.Session.ApplicationCommandBulkOverwrite(b.appID(), guildID, []*discordgo.ApplicationCommand{}); err != nil {
		log.Printf("cannot unregister commands for guild '%s': %v", guildID, err)
	}
}

func (b *Bot) appID() string {
	if id := b.GetConfig().AppID; id != "" {
		return id
	}
	return b.Session.State.User.ID
}

func (b *Bot) ReloadConfig() error {
	log.Println("Reloading configuration...")
	newCfg, err := config.Load()
	if err != nil {
		log.Printf("Error reloading config: %v", err)
		return err
	}

	b.config.Store(newCfg)
	log.Println("Configuration reloaded successfully.")

	log.Println("Refreshing commands for all guilds...")
	for _, serverCfg := range newCfg.ServerConfigs {
		if serverCfg.Enable {
			go b.RefreshCommands(serverCfg.GuildID)
		} else {
			go b.UnregisterCommands(serverCfg.GuildID)
		}
	}

	return nil
}
