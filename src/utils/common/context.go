package common

import (
	"context"

	"github.com/solignition/ignitor/src/utils/config"
)

type contextKey int

const configContextKey contextKey = iota

// Attaches the global configuration to the context
func SetConfig(ctx context.Context, config *config.Config) context.Context {
	return context.WithValue(ctx, configContextKey, config)
}

func GetConfig(ctx context.Context) *config.Config {
	config, ok := ctx.Value(configContextKey).(*config.Config)
	if !ok {
		return nil
	}
	return config
}
