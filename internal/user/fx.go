package user

import (
	"github.com/cardlinkhq/cardlink/internal/user/repository"
	"github.com/cardlinkhq/cardlink/internal/user/service"
	"go.uber.org/fx"
)

var Module = fx.Module("user.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
