package server

import (
	"net/http"

	userdomain "github.com/cardlinkhq/cardlink/internal/user/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) GetProfile(c *gin.Context) {
	accountID, ok := s.accountIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	profile, err := s.userSvc.GetProfile(c.Request.Context(), accountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

func (s *Server) UpdateProfile(c *gin.Context) {
	accountID, ok := s.accountIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req userdomain.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	profile, err := s.userSvc.UpdateProfile(c.Request.Context(), accountID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// Stale public reads are acceptable for the TTL but not after an
	// explicit edit.
	s.profileCache.Invalidate(profile.CardUUID)

	c.JSON(http.StatusOK, gin.H{"profile": profile})
}
