package organization

import (
	"github.com/cardlinkhq/cardlink/internal/organization/repository"
	"github.com/cardlinkhq/cardlink/internal/organization/service"
	"go.uber.org/fx"
)

var Module = fx.Module("organization.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
