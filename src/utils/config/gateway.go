package config

import (
	"time"

	"github.com/spf13/viper"
)

type Gateway struct {
	// REST API address serving health, deployments and metrics
	RESTListenAddress string

	// Max duration of a single request
	ServerRequestTimeout time.Duration
}

func setGatewayDefaults() {
	viper.SetDefault("Gateway.RESTListenAddress", "0.0.0.0:4000")
	viper.SetDefault("Gateway.ServerRequestTimeout", "30s")
}
