package config

import (
	"time"

	"github.com/spf13/viper"
)

type Redis struct {
	// Empty host disables the status notifier
	Host     string
	Port     uint16
	User     string
	Password string
	DB       int

	// Channel status transitions are published on
	ChannelName string

	// Connection configuration
	MinIdleConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	MaxOpenConns    int
	ConnMaxLifetime time.Duration

	// Publish backoff configuration, 0 is no limit
	MaxElapsedTime time.Duration
	MaxInterval    time.Duration

	// Num of workers that publish messages
	MaxWorkers int

	// Max num of requests in worker's queue
	MaxQueueSize int
}

func setRedisDefaults() {
	viper.SetDefault("Redis.Host", "")
	viper.SetDefault("Redis.Port", "6379")
	viper.SetDefault("Redis.DB", "0")
	viper.SetDefault("Redis.ChannelName", "ignitor_deployments")
	viper.SetDefault("Redis.MinIdleConns", "1")
	viper.SetDefault("Redis.MaxIdleConns", "5")
	viper.SetDefault("Redis.ConnMaxIdleTime", "10m")
	viper.SetDefault("Redis.MaxOpenConns", "15")
	viper.SetDefault("Redis.ConnMaxLifetime", "1h")
	viper.SetDefault("Redis.MaxElapsedTime", "10m")
	viper.SetDefault("Redis.MaxInterval", "60s")
	viper.SetDefault("Redis.MaxWorkers", "5")
	viper.SetDefault("Redis.MaxQueueSize", "100")
}
