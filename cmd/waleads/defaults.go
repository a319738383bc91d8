package main

import (
	"time"

	"github.com/spf13/viper"

	"waleads/campaign"
	"waleads/monitor"
)

func initViperDefaults() {
	viper.SetDefault("country_code", "966")

	// Completion service.
	viper.SetDefault("llm.endpoint", "https://api.openai.com")
	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.api_key", "")
	viper.SetDefault("llm.max_tokens", 200)
	viper.SetDefault("llm.temperature", 0.7)
	viper.SetDefault("llm.timeout", 30*time.Second)
	viper.SetDefault("llm.continuation_timeout", 20*time.Second)

	// Monitoring cycle.
	viper.SetDefault("monitor.interval", monitor.DefaultInterval)
	viper.SetDefault("monitor.workers", monitor.DefaultWorkers)
	viper.SetDefault("conversation.max_turns", 20)

	// Lead persistence.
	viper.SetDefault("leads.path", "leads.csv")

	// Bulk sending.
	viper.SetDefault("send.daily_limit", campaign.DefaultDailyLimit)
	viper.SetDefault("send.min_delay", campaign.DefaultMinDelay)
	viper.SetDefault("send.max_delay", campaign.DefaultMaxDelay)

	// WhatsApp session.
	viper.SetDefault("whatsapp.db_path", "waleads.db")

	// Persona file; empty uses the built-in customer-service persona.
	viper.SetDefault("persona.path", "")
}
