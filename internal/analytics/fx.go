package analytics

import (
	"github.com/cardlinkhq/cardlink/internal/analytics/repository"
	"github.com/cardlinkhq/cardlink/internal/analytics/service"
	"go.uber.org/fx"
)

var Module = fx.Module("analytics.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
