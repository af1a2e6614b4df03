package auth

import (
	"github.com/cardlinkhq/cardlink/internal/auth/repository"
	"github.com/cardlinkhq/cardlink/internal/auth/service"
	"github.com/cardlinkhq/cardlink/internal/auth/session"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(repository.NewSessionRepository),
	fx.Provide(service.New),
	fx.Provide(session.NewManager),
)
