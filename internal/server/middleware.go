package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	devicedomain "github.com/cardlinkhq/cardlink/internal/device/domain"
	obscontext "github.com/cardlinkhq/cardlink/internal/observability/context"
	"github.com/cardlinkhq/cardlink/internal/observability/logger"
	orgdomain "github.com/cardlinkhq/cardlink/internal/organization/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	HeaderOrg = "X-Org-ID"

	contextAccountIDKey = "account_id"
	contextOrgIDKey     = "org_id"
	contextOrgRoleKey   = "org_role"
	contextDeviceKey    = "device"
)

// WebAuthRequired authenticates the session cookie and pins the
// account onto the request.
func (s *Server) WebAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.ReadToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		session, err := s.authsvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextAccountIDKey, session.AccountID)
		ctx := obscontext.WithActor(c.Request.Context(), "account", session.AccountID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// DeviceAuthRequired authenticates a reader device from its bearer
// secret. Failures are uniform so probing cannot tell a bad secret
// from a deactivated device.
func (s *Server) DeviceAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			AbortWithError(c, devicedomain.ErrInvalidCredentials)
			return
		}

		secret := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		device, err := s.deviceSvc.Authenticate(c.Request.Context(), secret)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		if err := s.deviceSvc.TouchLastSeen(c.Request.Context(), device.ID); err != nil {
			logger.FromContext(c.Request.Context()).Warn("failed to update device last seen",
				zap.String("device_id", device.ID.String()),
				zap.Error(err),
			)
		}

		c.Set(contextDeviceKey, device)
		ctx := obscontext.WithActor(c.Request.Context(), "device", device.ID.String())
		ctx = obscontext.WithOrgID(ctx, device.OrgID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// OrgContext resolves the organization named by the X-Org-ID header
// and verifies the authenticated account belongs to it.
func (s *Server) OrgContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, ok := s.accountIDFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		raw := strings.TrimSpace(c.GetHeader(HeaderOrg))
		if raw == "" {
			raw = strings.TrimSpace(c.Query("organization_id"))
		}
		if raw == "" {
			AbortWithError(c, newValidationError("org_id", "required", "organization id is required"))
			return
		}
		orgID, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, newValidationError("org_id", "invalid_org_id", "invalid organization id"))
			return
		}

		role, err := s.organizationSvc.RequireAccess(c.Request.Context(), orgID, accountID, orgdomain.RoleMember)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextOrgIDKey, orgID)
		c.Set(contextOrgRoleKey, role)
		ctx := obscontext.WithOrgID(c.Request.Context(), orgID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireRole gates a route on the minimum role resolved by OrgContext.
func (s *Server) RequireRole(requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := c.Get(contextOrgRoleKey)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		have, _ := role.(string)
		if !orgdomain.RoleAtLeast(have, requiredRole) {
			AbortWithError(c, orgdomain.ErrInsufficientRole)
			return
		}
		c.Next()
	}
}

func (s *Server) accountIDFromContext(c *gin.Context) (snowflake.ID, bool) {
	value, ok := c.Get(contextAccountIDKey)
	if !ok {
		return 0, false
	}
	accountID, ok := value.(snowflake.ID)
	if !ok || accountID == 0 {
		return 0, false
	}
	return accountID, true
}

func (s *Server) orgIDFromContext(c *gin.Context) (snowflake.ID, bool) {
	value, ok := c.Get(contextOrgIDKey)
	if !ok {
		return 0, false
	}
	orgID, ok := value.(snowflake.ID)
	if !ok || orgID == 0 {
		return 0, false
	}
	return orgID, true
}

func (s *Server) deviceFromContext(c *gin.Context) (*devicedomain.Device, bool) {
	value, ok := c.Get(contextDeviceKey)
	if !ok {
		return nil, false
	}
	device, ok := value.(*devicedomain.Device)
	if !ok || device == nil {
		return nil, false
	}
	return device, true
}
