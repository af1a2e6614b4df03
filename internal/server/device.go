package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	devicedomain "github.com/cardlinkhq/cardlink/internal/device/domain"
	"github.com/gin-gonic/gin"
)

type CreateDeviceRequest struct {
	Name     string         `json:"name"`
	Metadata map[string]any `json:"metadata"`
}

// CreateDevice registers a reader. The response is the only place the
// raw secret ever appears.
func (s *Server) CreateDevice(c *gin.Context) {
	orgID, ok := s.orgIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}

	var req CreateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.deviceSvc.Create(c.Request.Context(), orgID, devicedomain.CreateDeviceRequest{
		Name:     req.Name,
		Metadata: req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (s *Server) ListDevices(c *gin.Context) {
	orgID, ok := s.orgIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}

	devices, err := s.deviceSvc.List(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"devices": devices})
}

func (s *Server) DeactivateDevice(c *gin.Context) {
	orgID, ok := s.orgIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}

	deviceID, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid device id"))
		return
	}

	if err := s.deviceSvc.Deactivate(c.Request.Context(), orgID, deviceID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
