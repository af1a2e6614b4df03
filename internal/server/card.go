package server

import (
	"net/http"
	"strings"

	"github.com/cardlinkhq/cardlink/internal/token"
	userdomain "github.com/cardlinkhq/cardlink/internal/user/domain"
	"github.com/gin-gonic/gin"
)

type CreateCardRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// CreateCard provisions a profile for a card about to be written. The
// response carries the signup token the holder will later claim.
func (s *Server) CreateCard(c *gin.Context) {
	var req CreateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	card, err := s.userSvc.CreateCard(c.Request.Context(), userdomain.CreateCardRequest{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"card": card})
}

func (s *Server) GetPublicProfile(c *gin.Context) {
	cardUUID := strings.TrimSpace(c.Param("card_uuid"))
	profile, err := s.publicProfile(c, cardUUID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

func (s *Server) DownloadVCard(c *gin.Context) {
	cardUUID := strings.TrimSpace(c.Param("card_uuid"))

	export, ok := s.profileCache.GetVCard(cardUUID)
	if !ok {
		var err error
		export, err = s.userSvc.GetVCard(c.Request.Context(), cardUUID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		s.profileCache.SetVCard(cardUUID, export)
	}

	s.obsMetrics.RecordVCardDownload(c.Request.Context(), "")

	c.Header("Content-Disposition", `attachment; filename="`+export.FileName+`"`)
	c.Data(http.StatusOK, "text/vcard; charset=utf-8", []byte(export.Payload))
}

// tryServeCardProfile handles the bare /{card_uuid} path phones open
// after a scan. Returns false when the path does not look like a card.
func (s *Server) tryServeCardProfile(c *gin.Context) bool {
	path := strings.Trim(c.Request.URL.Path, "/")
	if strings.Contains(path, "/") || !token.IsValidCardID(path) {
		return false
	}

	profile, err := s.publicProfile(c, path)
	if err != nil {
		AbortWithError(c, err)
		return true
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
	return true
}

func (s *Server) publicProfile(c *gin.Context, cardUUID string) (*userdomain.PublicProfile, error) {
	if profile, ok := s.profileCache.GetProfile(cardUUID); ok {
		return profile, nil
	}

	profile, err := s.userSvc.GetPublicProfile(c.Request.Context(), cardUUID)
	if err != nil {
		return nil, err
	}
	s.profileCache.SetProfile(cardUUID, profile)
	return profile, nil
}
