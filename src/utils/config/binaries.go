package config

import (
	"time"

	"github.com/spf13/viper"
)

type Binaries struct {
	// Directory where fetched binaries are stored, content addressed
	StoragePath string

	// Base URL binaries are fetched from. The concrete retrieval
	// strategy lives behind this single endpoint.
	FetchUrl string

	// Timeout of a single fetch request
	FetchTimeout time.Duration
}

func setBinariesDefaults() {
	viper.SetDefault("Binaries.StoragePath", "./binaries")
	viper.SetDefault("Binaries.FetchUrl", "http://127.0.0.1:9000/binaries")
	viper.SetDefault("Binaries.FetchTimeout", "60s")
}
