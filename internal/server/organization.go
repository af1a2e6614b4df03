package server

import (
	"net/http"
	"strings"

	orgdomain "github.com/cardlinkhq/cardlink/internal/organization/domain"
	"github.com/gin-gonic/gin"
)

type CreateOrganizationRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Description string `json:"description"`
	Website     string `json:"website"`
}

func (s *Server) CreateOrganization(c *gin.Context) {
	accountID, ok := s.accountIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req CreateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	org, err := s.organizationSvc.Create(c.Request.Context(), accountID, orgdomain.CreateOrganizationRequest{
		Name:        req.Name,
		Email:       req.Email,
		Description: req.Description,
		Website:     req.Website,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"organization": org})
}

func (s *Server) ListOrganizations(c *gin.Context) {
	accountID, ok := s.accountIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	orgs, err := s.organizationSvc.ListByAccount(c.Request.Context(), accountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"organizations": orgs})
}

func (s *Server) GetOrganizationBySlug(c *gin.Context) {
	accountID, ok := s.accountIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	slug := strings.TrimSpace(c.Param("slug"))
	if slug == "" {
		AbortWithError(c, newValidationError("slug", "required", "slug is required"))
		return
	}

	org, err := s.organizationSvc.GetBySlug(c.Request.Context(), accountID, slug)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"organization": org})
}
