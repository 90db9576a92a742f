package main

import (
	"time"

	"github.com/spf13/viper"
)

func initViperDefaults() {
	// Telegram
	viper.SetDefault("telegram.base_url", "https://api.telegram.org")
	viper.SetDefault("telegram.mode", "polling")
	viper.SetDefault("telegram.poll_timeout", 30*time.Second)
	viper.SetDefault("telegram.poll_limit", 100)
	viper.SetDefault("telegram.poll_retry_max", 5)
	viper.SetDefault("telegram.webhook.host", "0.0.0.0")
	viper.SetDefault("telegram.webhook.port", 8443)
	viper.SetDefault("telegram.webhook.path", "/webhook")
	viper.SetDefault("telegram.webhook.max_connections", 40)

	// Storage
	viper.SetDefault("storage.data_dir", "./data")
	viper.SetDefault("storage.flush_interval", 5*time.Minute)
	viper.SetDefault("storage.write_through", true)

	// Logging
	viper.SetDefault("logging.format", "text")

	// Bot behavior
	viper.SetDefault("bot.default_language", "km")
}
