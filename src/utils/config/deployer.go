package config

import (
	"time"

	"github.com/spf13/viper"
)

type Deployer struct {
	// Max deployment attempts before the loan is marked failed
	MaxRetries int

	// Delay before the first retry, doubled after every failed attempt
	RetryBaseDelay time.Duration

	// Size of the queue between the observer and the orchestrator
	QueueSize int

	// Bytes of the binary written per chunk-write instruction
	WriteChunkSize int

	// Compute unit limit requested for the deploy transaction
	ComputeUnitLimit uint32

	// Num of workers that process events, each loan is still sequential
	MaxWorkers int
}

func setDeployerDefaults() {
	viper.SetDefault("Deployer.MaxRetries", "3")
	viper.SetDefault("Deployer.RetryBaseDelay", "5s")
	viper.SetDefault("Deployer.QueueSize", "64")
	viper.SetDefault("Deployer.WriteChunkSize", "900")
	viper.SetDefault("Deployer.ComputeUnitLimit", "1400000")
	viper.SetDefault("Deployer.MaxWorkers", "8")
}
