package config

import (
	"time"

	"github.com/spf13/viper"
)

type Observer struct {
	// How often the reconciliation sweep runs
	PollInterval time.Duration

	// How long a processed log signature is remembered for deduplication
	SignatureCacheExpiration time.Duration

	// How often the signature cache evicts expired entries
	SignatureCacheCleanup time.Duration

	// Delay before the websocket subscription is re-established after a drop
	ReconnectDelay time.Duration
}

func setObserverDefaults() {
	viper.SetDefault("Observer.PollInterval", "30s")
	viper.SetDefault("Observer.SignatureCacheExpiration", "10m")
	viper.SetDefault("Observer.SignatureCacheCleanup", "15m")
	viper.SetDefault("Observer.ReconnectDelay", "5s")
}
