package server

import (
	"net/http"

	typedomain "github.com/cardlinkhq/cardlink/internal/applicationtype/domain"
	"github.com/gin-gonic/gin"
)

type CreateApplicationTypeRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Questions   []typedomain.Question `json:"questions"`
}

func (s *Server) CreateApplicationType(c *gin.Context) {
	orgID, ok := s.orgIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}

	var req CreateApplicationTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	record, err := s.typeSvc.Create(c.Request.Context(), orgID, typedomain.CreateTypeRequest{
		Title:       req.Title,
		Description: req.Description,
		Questions:   req.Questions,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"application_type": record})
}

func (s *Server) ListApplicationTypes(c *gin.Context) {
	orgID, ok := s.orgIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}

	types, err := s.typeSvc.ListByOrg(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"application_types": types})
}
