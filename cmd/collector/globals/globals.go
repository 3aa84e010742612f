package globals

import (
	"context"

	"gamestats/internal/components/chrono"
	"gamestats/internal/components/telemetry"
	"gamestats/internal/config"
)

type key struct{}

type Value struct {
	Config config.Config
	// ConfigErr is set when the configuration could not be read or is
	// invalid, Config then holds whatever could be parsed.
	ConfigErr error
	Tel       telemetry.API
	Time      chrono.TimeAPI
}

func Set(ctx context.Context, value *Value) context.Context {
	return context.WithValue(ctx, key{}, value)
}

func Get(ctx context.Context) *Value {
	return ctx.Value(key{}).(*Value)
}
