package device

import (
	"github.com/cardlinkhq/cardlink/internal/device/repository"
	"github.com/cardlinkhq/cardlink/internal/device/service"
	"go.uber.org/fx"
)

var Module = fx.Module("device.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
