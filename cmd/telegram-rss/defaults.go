package main

import (
	"time"

	"github.com/JuniorJPDJ/telegram-rss/internal/statepaths"
	"github.com/spf13/viper"
)

func initViperDefaults() {
	// Global
	viper.SetDefault("datadir", statepaths.DefaultDataDir)

	// Feeds
	viper.SetDefault("check_interval", 300)

	// Telegram
	viper.SetDefault("telegram.base_url", "https://api.telegram.org")
	viper.SetDefault("telegram.poll_timeout", 30*time.Second)
	viper.SetDefault("telegram.task_timeout", time.Minute)
	viper.SetDefault("telegram.max_concurrency", 3)
	viper.SetDefault("telegram.queue_size", 16)
	viper.SetDefault("telegram.retry_delay", 2*time.Second)
	viper.SetDefault("telegram.allowed_chat_ids", []string{})

	// Logging
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.add_source", false)
	viper.SetDefault("trace", false)
}
