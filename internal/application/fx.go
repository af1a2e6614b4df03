package application

import (
	"github.com/cardlinkhq/cardlink/internal/application/repository"
	"github.com/cardlinkhq/cardlink/internal/application/service"
	"go.uber.org/fx"
)

var Module = fx.Module("application.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
