package model

// GuildConfig is the per-guild section of the guild config file.
type GuildConfig struct {
	GuildID         string `mapstructure:"guild_id"`
	Name            string `mapstructure:"name"`
	Enable          bool   `mapstructure:"enable"`
	LogChannelID    string `mapstructure:"log_channel_id"`
	NoticeChannelID string `mapstructure:"notice_channel_id"`
}

// Config 存储应用程序的配置
type Config struct {
	BotToken                 string `env:"BOT_TOKEN,required,notEmpty"`
	AppID                    string `env:"APP_ID"`
	LogChannelID             string `env:"LOG_CHANNEL_ID"`
	DatabasePath             string `env:"DATABASE_PATH" envDefault:"data/modpoints.db"`
	GuildConfigPath          string `env:"GUILD_CONFIG_PATH" envDefault:"data/guilds.yaml"`
	RedisURL                 string `env:"REDIS_URL"`
	MetricsAddr              string `env:"METRICS_ADDR"`
	LogLevel                 string `env:"LOG_LEVEL" envDefault:"info"`
	DisableCommandUnregister bool   `env:"DISABLE_COMMAND_UNREGISTER"`

	ServerConfigs map[string]GuildConfig
}

// LogChannelFor returns the guild's log channel, falling back to the global one.
func (c *Config) LogChannelFor(guildID string) string {
	if gc, ok := c.ServerConfigs[guildID]; ok && gc.LogChannelID != "" {
		return gc.LogChannelID
	}
	return c.LogChannelID
}

// NoticeChannelFor returns where pending ban notices are posted. Empty means reply in place.
func (c *Config) NoticeChannelFor(guildID string) string {
	if gc, ok := c.ServerConfigs[guildID]; ok {
		return gc.NoticeChannelID
	}
	return ""
}
