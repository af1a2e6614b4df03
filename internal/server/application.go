package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	applicationdomain "github.com/cardlinkhq/cardlink/internal/application/domain"
	"github.com/gin-gonic/gin"
)

type CompleteApplicationRequest struct {
	Token   string            `json:"token"`
	Answers map[string]string `json:"answers"`
}

// CompleteApplication accepts either the public token from the
// completion link or the card holder's own session.
func (s *Server) CompleteApplication(c *gin.Context) {
	var req CompleteApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	completeReq := applicationdomain.CompleteRequest{
		ApplicationID: strings.TrimSpace(c.Param("id")),
		RawToken:      strings.TrimSpace(req.Token),
		Answers:       req.Answers,
	}

	if completeReq.RawToken == "" {
		actorID, ok := s.cardHolderFromSession(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		completeReq.ActorUserID = actorID
	}

	view, err := s.applicationSvc.Complete(c.Request.Context(), completeReq)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"application": view})
}

func (s *Server) GetApplicationByToken(c *gin.Context) {
	rawToken := strings.TrimSpace(c.Param("token"))
	if rawToken == "" {
		AbortWithError(c, applicationdomain.ErrInvalidToken)
		return
	}

	view, err := s.applicationSvc.GetByToken(c.Request.Context(), rawToken)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"application": view})
}

func (s *Server) ListApplications(c *gin.Context) {
	orgID, ok := s.orgIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}

	filter := applicationdomain.ListFilter{
		Status: strings.TrimSpace(c.Query("status")),
	}
	if raw := strings.TrimSpace(c.Query("type_id")); raw != "" {
		typeID, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, newValidationError("type_id", "invalid_type_id", "invalid application type id"))
			return
		}
		filter.TypeID = &typeID
	}
	if raw := strings.TrimSpace(c.Query("page_size")); raw != "" {
		size, err := parsePositiveInt(raw)
		if err != nil {
			AbortWithError(c, newValidationError("page_size", "invalid_page_size", "invalid page size"))
			return
		}
		filter.PageSize = size
	}
	if raw := strings.TrimSpace(c.Query("before")); raw != "" {
		before, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			AbortWithError(c, newValidationError("before", "invalid_before", "invalid before timestamp"))
			return
		}
		filter.Before = &before
	}

	views, err := s.applicationSvc.ListByOrg(c.Request.Context(), orgID, filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"applications": views})
}

func (s *Server) CloseApplication(c *gin.Context) {
	orgID, ok := s.orgIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}

	applicationID, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, applicationdomain.ErrInvalidApplicationID)
		return
	}

	if err := s.applicationSvc.Close(c.Request.Context(), orgID, applicationID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// cardHolderFromSession resolves the session cookie to the card
// holder's profile ID, if any. Unauthenticated requests are fine here;
// the token path covers them.
func (s *Server) cardHolderFromSession(c *gin.Context) (snowflake.ID, bool) {
	token, ok := s.sessions.ReadToken(c)
	if !ok {
		return 0, false
	}
	session, err := s.authsvc.Authenticate(c.Request.Context(), token)
	if err != nil {
		return 0, false
	}
	profile, err := s.userSvc.GetProfile(c.Request.Context(), session.AccountID)
	if err != nil || profile == nil {
		return 0, false
	}
	return profile.ID, true
}

func parsePositiveInt(raw string) (int, error) {
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if value <= 0 {
		return 0, strconv.ErrRange
	}
	return value, nil
}
