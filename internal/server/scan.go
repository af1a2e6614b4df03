package server

import (
	"net/http"
	"strings"

	applicationdomain "github.com/cardlinkhq/cardlink/internal/application/domain"
	"github.com/gin-gonic/gin"
)

type ScanRequest struct {
	ReaderID          string `json:"reader_id"`
	CardUUID          string `json:"card_uuid"`
	ApplicationTypeID string `json:"application_type_id"`
}

// HandleScan turns a card tap into an informal application. The
// response never carries the public token; the completion link is
// delivered to the applicant out of band.
func (s *Server) HandleScan(c *gin.Context) {
	device, ok := s.deviceFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.CardUUID) == "" {
		AbortWithError(c, newValidationError("card_uuid", "required", "card uuid is required"))
		return
	}
	if strings.TrimSpace(req.ReaderID) == "" {
		AbortWithError(c, newValidationError("reader_id", "required", "reader id is required"))
		return
	}

	result, err := s.applicationSvc.CreateFromScan(c.Request.Context(), applicationdomain.ScanRequest{
		DeviceID:          device.ID,
		DeviceOrgID:       device.OrgID,
		ReaderID:          req.ReaderID,
		CardUUID:          req.CardUUID,
		ApplicationTypeID: req.ApplicationTypeID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":        true,
		"application_id": result.ApplicationID,
	})
}
