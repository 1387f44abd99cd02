package config

import (
	"errors"
	"fmt"
	"log"
	"os"

	"modbot/model"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load loads the configuration from environment variables and the guild config file.
func Load() (*model.Config, error) {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("Info: .env file not found, relying on environment variables")
	}

	var cfg model.Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.LogChannelID == "" {
		log.Println("Warning: LOG_CHANNEL_ID not set, global channel logging will be disabled")
	}

	guilds, err := LoadGuilds(cfg.GuildConfigPath)
	if err != nil {
		return nil, err
	}
	cfg.ServerConfigs = guilds

	return &cfg, nil
}

// LoadGuilds reads the per-guild file (yaml, json or toml by extension).
// A missing file yields an empty map.
func LoadGuilds(path string) (map[string]model.GuildConfig, error) {
	guilds := make(map[string]model.GuildConfig)

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: Guild config file not found at %s, skipping.", path)
		return guilds, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read guild config %s: %w", path, err)
	}

	var list []model.GuildConfig
	if err := v.UnmarshalKey("guilds", &list); err != nil {
		return nil, fmt.Errorf("decode guild config %s: %w", path, err)
	}
	for _, gc := range list {
		if gc.GuildID == "" {
			log.Printf("Warning: guild entry %q in %s has no guild_id, skipping.", gc.Name, path)
			continue
		}
		guilds[gc.GuildID] = gc
	}
	return guilds, nil
}
