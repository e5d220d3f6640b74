package handler

import (
	"github.com/limbomc/limbo/internal/config"
	"github.com/limbomc/limbo/internal/data"
	"github.com/limbomc/limbo/internal/metrics"
	"github.com/limbomc/limbo/internal/player"
	"github.com/limbomc/limbo/internal/scripting"
)

// Deps holds shared dependencies injected into all phase handlers.
type Deps struct {
	Config   *config.Config
	Players  *player.Registry
	Registry *data.RegistryData
	Metrics  *metrics.Metrics
	Scripts  *scripting.Engine // nil when no script is configured
}
