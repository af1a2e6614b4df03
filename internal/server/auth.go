package server

import (
	"net/http"
	"strings"

	authdomain "github.com/cardlinkhq/cardlink/internal/auth/domain"
	"github.com/gin-gonic/gin"
)

type SignupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type accountView struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

func (s *Server) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" {
		AbortWithError(c, newValidationError("email", "required", "email is required"))
		return
	}
	if strings.TrimSpace(req.Password) == "" {
		AbortWithError(c, newValidationError("password", "required", "password is required"))
		return
	}

	result, err := s.authsvc.Signup(c.Request.Context(), authdomain.SignupRequest{
		Email:       email,
		Password:    req.Password,
		DisplayName: strings.TrimSpace(req.DisplayName),
		UserAgent:   c.Request.UserAgent(),
		IPAddress:   c.ClientIP(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Set(c, result.RawToken, result.ExpiresAt)
	c.JSON(http.StatusCreated, gin.H{"account": toAccountView(result.Account)})
}

func (s *Server) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.authsvc.Login(c.Request.Context(), authdomain.LoginRequest{
		Email:     strings.TrimSpace(req.Email),
		Password:  req.Password,
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Set(c, result.RawToken, result.ExpiresAt)
	c.JSON(http.StatusOK, gin.H{"account": toAccountView(result.Account)})
}

func (s *Server) Logout(c *gin.Context) {
	token, ok := s.sessions.ReadToken(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	if err := s.authsvc.Logout(c.Request.Context(), token); err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Clear(c)
	c.Status(http.StatusNoContent)
}

func (s *Server) Me(c *gin.Context) {
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

	account, err := s.authsvc.GetAccount(c.Request.Context(), session.AccountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"account": toAccountView(account)})
}

// ClaimSignupToken links the authenticated account to the card profile
// that carries the token. Each token can be claimed once.
func (s *Server) ClaimSignupToken(c *gin.Context) {
	accountID, ok := s.accountIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		AbortWithError(c, newValidationError("token", "required", "signup token is required"))
		return
	}

	profile, err := s.userSvc.ClaimSignupToken(c.Request.Context(), token, accountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.profileCache.Invalidate(profile.CardUUID)
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

func toAccountView(account *authdomain.Account) accountView {
	if account == nil {
		return accountView{}
	}
	return accountView{
		ID:          account.ID.String(),
		Email:       account.Email,
		DisplayName: account.DisplayName,
	}
}
