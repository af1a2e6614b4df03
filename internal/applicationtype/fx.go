package applicationtype

import (
	"github.com/cardlinkhq/cardlink/internal/applicationtype/service"
	"go.uber.org/fx"
)

var Module = fx.Module("applicationtype.service",
	fx.Provide(service.NewService),
)
