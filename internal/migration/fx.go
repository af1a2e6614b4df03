package migration

import (
	analyticsdomain "github.com/cardlinkhq/cardlink/internal/analytics/domain"
	applicationdomain "github.com/cardlinkhq/cardlink/internal/application/domain"
	typedomain "github.com/cardlinkhq/cardlink/internal/applicationtype/domain"
	authdomain "github.com/cardlinkhq/cardlink/internal/auth/domain"
	"github.com/cardlinkhq/cardlink/internal/config"
	devicedomain "github.com/cardlinkhq/cardlink/internal/device/domain"
	orgdomain "github.com/cardlinkhq/cardlink/internal/organization/domain"
	"github.com/cardlinkhq/cardlink/internal/seed"
	userdomain "github.com/cardlinkhq/cardlink/internal/user/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// The embedded migrations are postgres DDL; other dialects
			// are for local development and get the gorm schema.
			if err := conn.AutoMigrate(
				&authdomain.Account{},
				&authdomain.Session{},
				&userdomain.User{},
				&orgdomain.Organization{},
				&orgdomain.Member{},
				&devicedomain.Device{},
				&typedomain.ApplicationType{},
				&applicationdomain.Application{},
				&analyticsdomain.Event{},
			); err != nil {
				return err
			}
		}

		if cfg.Bootstrap.EnsureDefaultOrgAndOwner {
			return seed.EnsureDefaultOrgAndOwner(conn)
		}
		return nil
	}),
)
