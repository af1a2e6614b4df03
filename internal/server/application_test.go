package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	applicationdomain "github.com/cardlinkhq/cardlink/internal/application/domain"
	"github.com/cardlinkhq/cardlink/internal/auth/session"
	"github.com/cardlinkhq/cardlink/internal/config"
	"github.com/gin-gonic/gin"
)

func newCompleteRouter(srv *Server) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.POST("/api/applications/:id/complete", srv.CompleteApplication)
	return router
}

func TestCompleteApplicationWithToken(t *testing.T) {
	appSvc := &fakeApplicationService{}
	srv := &Server{applicationSvc: appSvc, sessions: session.NewManager(config.Config{})}
	router := newCompleteRouter(srv)

	body := `{"token":"super-secret-public-token","answers":{"notes":"hello"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/applications/1234567890/complete", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if appSvc.lastComplete.ApplicationID != "1234567890" {
		t.Fatalf("unexpected application id: %q", appSvc.lastComplete.ApplicationID)
	}
	if appSvc.lastComplete.RawToken != "super-secret-public-token" {
		t.Fatalf("unexpected token: %q", appSvc.lastComplete.RawToken)
	}
	if appSvc.lastComplete.Answers["notes"] != "hello" {
		t.Fatalf("answers not forwarded: %+v", appSvc.lastComplete.Answers)
	}

	var payload struct {
		Application applicationdomain.ApplicationView `json:"application"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if payload.Application.Status != applicationdomain.StatusCompleted {
		t.Fatalf("expected completed status, got %q", payload.Application.Status)
	}
}

func TestCompleteApplicationRequiresTokenOrSession(t *testing.T) {
	srv := &Server{applicationSvc: &fakeApplicationService{}, sessions: session.NewManager(config.Config{})}
	router := newCompleteRouter(srv)

	req := httptest.NewRequest(http.MethodPost, "/api/applications/1234567890/complete", bytes.NewBufferString(`{"answers":{}}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
}

func TestCompleteApplicationReplayConflict(t *testing.T) {
	srv := &Server{
		applicationSvc: &fakeApplicationService{completeErr: applicationdomain.ErrAlreadyCompleted},
		sessions:       session.NewManager(config.Config{}),
	}
	router := newCompleteRouter(srv)

	body := `{"token":"super-secret-public-token"}`
	req := httptest.NewRequest(http.MethodPost, "/api/applications/1234567890/complete", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}

	var payload struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid error body: %v", err)
	}
	if payload.Error.Type != "already_completed" {
		t.Fatalf("expected already_completed error type, got %q", payload.Error.Type)
	}
}

func TestCompleteApplicationExpiredToken(t *testing.T) {
	srv := &Server{
		applicationSvc: &fakeApplicationService{completeErr: applicationdomain.ErrTokenExpired},
		sessions:       session.NewManager(config.Config{}),
	}
	router := newCompleteRouter(srv)

	body := `{"token":"super-secret-public-token"}`
	req := httptest.NewRequest(http.MethodPost, "/api/applications/1234567890/complete", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", resp.Code)
	}

	var payload struct {
		Error struct {
			Type string `json:"type"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid error body: %v", err)
	}
	if payload.Error.Type != "token_expired" {
		t.Fatalf("expected token_expired error type, got %q", payload.Error.Type)
	}
}

func TestValidationErrorEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.GET("/boom", func(c *gin.Context) {
		AbortWithError(c, newValidationError("card_uuid", "required", "card uuid is required"))
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}

	var payload struct {
		Error struct {
			Type   string `json:"type"`
			Errors []struct {
				Field string `json:"field"`
				Code  string `json:"code"`
			} `json:"errors"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid error body: %v", err)
	}
	if payload.Error.Type != "validation_error" {
		t.Fatalf("expected validation_error type, got %q", payload.Error.Type)
	}
	if len(payload.Error.Errors) != 1 || payload.Error.Errors[0].Field != "card_uuid" || payload.Error.Errors[0].Code != "required" {
		t.Fatalf("unexpected validation details: %+v", payload.Error.Errors)
	}
}
