package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cardlinkhq/cardlink/internal/analytics"
	analyticsdomain "github.com/cardlinkhq/cardlink/internal/analytics/domain"
	"github.com/cardlinkhq/cardlink/internal/application"
	applicationdomain "github.com/cardlinkhq/cardlink/internal/application/domain"
	"github.com/cardlinkhq/cardlink/internal/applicationtype"
	typedomain "github.com/cardlinkhq/cardlink/internal/applicationtype/domain"
	"github.com/cardlinkhq/cardlink/internal/auth"
	authdomain "github.com/cardlinkhq/cardlink/internal/auth/domain"
	"github.com/cardlinkhq/cardlink/internal/auth/session"
	"github.com/cardlinkhq/cardlink/internal/authorization"
	"github.com/cardlinkhq/cardlink/internal/cache"
	"github.com/cardlinkhq/cardlink/internal/config"
	"github.com/cardlinkhq/cardlink/internal/device"
	devicedomain "github.com/cardlinkhq/cardlink/internal/device/domain"
	"github.com/cardlinkhq/cardlink/internal/observability"
	obsmiddleware "github.com/cardlinkhq/cardlink/internal/observability/logger"
	obsmetrics "github.com/cardlinkhq/cardlink/internal/observability/metrics"
	obstracing "github.com/cardlinkhq/cardlink/internal/observability/tracing"
	"github.com/cardlinkhq/cardlink/internal/organization"
	orgdomain "github.com/cardlinkhq/cardlink/internal/organization/domain"
	"github.com/cardlinkhq/cardlink/internal/ratelimit"
	"github.com/cardlinkhq/cardlink/internal/user"
	userdomain "github.com/cardlinkhq/cardlink/internal/user/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	auth.Module,
	cache.Module,
	organization.Module,
	user.Module,
	device.Module,
	applicationtype.Module,
	analytics.Module,
	application.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	db              *gorm.DB
	authsvc         authdomain.Service
	sessions        *session.Manager
	genID           *snowflake.Node
	authzSvc        authorization.Service
	organizationSvc orgdomain.Service
	userSvc         userdomain.Service
	deviceSvc       devicedomain.Service
	typeSvc         typedomain.Service
	analyticsSvc    analyticsdomain.Service
	applicationSvc  applicationdomain.Service
	profileCache    cache.ProfileCache
	obsMetrics      *obsmetrics.Metrics
	scanLimiter     *ratelimit.ScanLimiter
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	Authsvc         authdomain.Service
	Sessions        *session.Manager
	GenID           *snowflake.Node
	AuthzSvc        authorization.Service
	OrganizationSvc orgdomain.Service
	UserSvc         userdomain.Service
	DeviceSvc       devicedomain.Service
	TypeSvc         typedomain.Service
	AnalyticsSvc    analyticsdomain.Service
	ApplicationSvc  applicationdomain.Service
	ProfileCache    cache.ProfileCache
	ObsMetrics      *obsmetrics.Metrics    `optional:"true"`
	ScanLimiter     *ratelimit.ScanLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		authsvc:         p.Authsvc,
		sessions:        p.Sessions,
		genID:           p.GenID,
		authzSvc:        p.AuthzSvc,
		organizationSvc: p.OrganizationSvc,
		userSvc:         p.UserSvc,
		deviceSvc:       p.DeviceSvc,
		typeSvc:         p.TypeSvc,
		analyticsSvc:    p.AnalyticsSvc,
		applicationSvc:  p.ApplicationSvc,
		profileCache:    p.ProfileCache,
		obsMetrics:      p.ObsMetrics,
		scanLimiter:     p.ScanLimiter,
	}

	svc.registerAuthRoutes()
	svc.registerDeviceFacingRoutes()
	svc.registerPublicRoutes()
	svc.registerDashboardRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	authGroup := s.engine.Group("/auth")

	authGroup.POST("/signup", s.Signup)
	authGroup.POST("/login", s.Login)
	authGroup.POST("/logout", s.Logout)
	authGroup.GET("/me", s.Me)
	authGroup.POST("/claim/:token", s.WebAuthRequired(), s.ClaimSignupToken)
}

func (s *Server) registerDeviceFacingRoutes() {
	api := s.engine.Group("/api")

	api.POST("/nfc/scan", s.DeviceAuthRequired(), s.ScanRateLimit(), s.HandleScan)
}

func (s *Server) registerPublicRoutes() {
	api := s.engine.Group("/api")

	// Anyone holding the card or the completion link can read these.
	api.GET("/cards/:card_uuid", s.GetPublicProfile)
	api.GET("/cards/:card_uuid/vcard", s.DownloadVCard)
	api.GET("/applications/token/:token", s.GetApplicationByToken)
	api.POST("/applications/:id/complete", s.CompleteApplication)
}

func (s *Server) registerDashboardRoutes() {
	api := s.engine.Group("/api")

	// Profile routes need a session but no organization.
	profile := api.Group("/profile", s.WebAuthRequired())
	{
		profile.GET("", s.GetProfile)
		profile.PUT("", s.UpdateProfile)
	}

	orgs := api.Group("/organizations", s.WebAuthRequired())
	{
		orgs.GET("", s.ListOrganizations)
		orgs.POST("", s.CreateOrganization)
		orgs.GET("/:slug", s.GetOrganizationBySlug)
	}

	admin := api.Group("")
	admin.Use(s.WebAuthRequired())
	admin.Use(s.OrgContext())

	admin.GET("/applications", s.RequireRole(orgdomain.RoleMember), s.ListApplications)
	admin.POST("/applications/:id/close", s.RequireRole(orgdomain.RoleAdmin), s.authorizeOrgAction(authorization.ObjectApplication, authorization.ActionApplicationClose), s.CloseApplication)

	admin.GET("/devices", s.RequireRole(orgdomain.RoleAdmin), s.ListDevices)
	admin.POST("/devices", s.RequireRole(orgdomain.RoleAdmin), s.authorizeOrgAction(authorization.ObjectDevice, authorization.ActionDeviceCreate), s.CreateDevice)
	admin.POST("/devices/:id/deactivate", s.RequireRole(orgdomain.RoleAdmin), s.authorizeOrgAction(authorization.ObjectDevice, authorization.ActionDeviceDeactivate), s.DeactivateDevice)

	admin.GET("/application-types", s.RequireRole(orgdomain.RoleMember), s.ListApplicationTypes)
	admin.POST("/application-types", s.RequireRole(orgdomain.RoleAdmin), s.authorizeOrgAction(authorization.ObjectApplicationType, authorization.ActionApplicationTypeCreate), s.CreateApplicationType)

	admin.GET("/analytics", s.RequireRole(orgdomain.RoleMember), s.GetAnalytics)

	admin.POST("/cards", s.RequireRole(orgdomain.RoleOwner), s.authorizeOrgAction(authorization.ObjectCard, authorization.ActionCardProvision), s.CreateCard)
}

// authorizeOrgAction consults the policy engine after the role gate.
// Both run; the role gate is the coarse check, the policy the final word.
func (s *Server) authorizeOrgAction(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, ok := s.accountIDFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		orgID, ok := s.orgIDFromContext(c)
		if !ok {
			AbortWithError(c, ErrForbidden)
			return
		}

		err := s.authzSvc.Authorize(c.Request.Context(), "account:"+accountID.String(), orgID.String(), object, action)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		// A bare card UUID in the path is how phones open scanned
		// cards; serve the public profile for it.
		if c.Request.Method == http.MethodGet {
			if s.tryServeCardProfile(c) {
				return
			}
		}
		c.JSON(http.StatusNotFound, errorResponse{Error: errorPayload{
			Type:    "not_found",
			Message: "not found",
		}})
	})
}
