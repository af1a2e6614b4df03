package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	applicationdomain "github.com/cardlinkhq/cardlink/internal/application/domain"
	devicedomain "github.com/cardlinkhq/cardlink/internal/device/domain"
	"github.com/gin-gonic/gin"
)

type fakeDeviceService struct {
	device  *devicedomain.Device
	touched int
}

func (f *fakeDeviceService) Create(ctx context.Context, orgID snowflake.ID, req devicedomain.CreateDeviceRequest) (*devicedomain.CreateDeviceResponse, error) {
	_ = ctx
	_ = orgID
	_ = req
	return nil, devicedomain.ErrInvalidName
}

func (f *fakeDeviceService) List(ctx context.Context, orgID snowflake.ID) ([]devicedomain.DeviceView, error) {
	_ = ctx
	_ = orgID
	return nil, nil
}

func (f *fakeDeviceService) Authenticate(ctx context.Context, rawSecret string) (*devicedomain.Device, error) {
	_ = ctx
	if f.device == nil || rawSecret != "good-secret" {
		return nil, devicedomain.ErrInvalidCredentials
	}
	return f.device, nil
}

func (f *fakeDeviceService) TouchLastSeen(ctx context.Context, id snowflake.ID) error {
	f.touched++
	_ = ctx
	_ = id
	return nil
}

func (f *fakeDeviceService) Deactivate(ctx context.Context, orgID, id snowflake.ID) error {
	_ = ctx
	_ = orgID
	_ = id
	return nil
}

type fakeApplicationService struct {
	scanCalls    int
	lastScan     applicationdomain.ScanRequest
	scanErr      error
	completeErr  error
	lastComplete applicationdomain.CompleteRequest
}

func (f *fakeApplicationService) CreateFromScan(ctx context.Context, req applicationdomain.ScanRequest) (*applicationdomain.ScanResult, error) {
	f.scanCalls++
	f.lastScan = req
	_ = ctx
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	return &applicationdomain.ScanResult{
		ApplicationID: "1234567890",
		PublicToken:   "super-secret-public-token",
		ExpiresAt:     time.Now().Add(7 * 24 * time.Hour),
	}, nil
}

func (f *fakeApplicationService) GetByToken(ctx context.Context, rawToken string) (*applicationdomain.ApplicationView, error) {
	_ = ctx
	if rawToken != "super-secret-public-token" {
		return nil, applicationdomain.ErrInvalidToken
	}
	return &applicationdomain.ApplicationView{ID: "1234567890", Status: applicationdomain.StatusAwaitingUser}, nil
}

func (f *fakeApplicationService) Complete(ctx context.Context, req applicationdomain.CompleteRequest) (*applicationdomain.ApplicationView, error) {
	f.lastComplete = req
	_ = ctx
	if f.completeErr != nil {
		return nil, f.completeErr
	}
	return &applicationdomain.ApplicationView{ID: req.ApplicationID, Status: applicationdomain.StatusCompleted}, nil
}

func (f *fakeApplicationService) Close(ctx context.Context, orgID, applicationID snowflake.ID) error {
	_ = ctx
	_ = orgID
	_ = applicationID
	return nil
}

func (f *fakeApplicationService) ListByOrg(ctx context.Context, orgID snowflake.ID, filter applicationdomain.ListFilter) ([]applicationdomain.ApplicationView, error) {
	_ = ctx
	_ = orgID
	_ = filter
	return nil, nil
}

func newScanRouter(srv *Server) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.POST("/api/nfc/scan", srv.DeviceAuthRequired(), srv.ScanRateLimit(), srv.HandleScan)
	router.GET("/api/applications/token/:token", srv.GetApplicationByToken)
	return router
}

func TestHandleScanCreatesApplicationWithoutToken(t *testing.T) {
	deviceID := snowflake.ID(42)
	orgID := snowflake.ID(77)
	deviceSvc := &fakeDeviceService{device: &devicedomain.Device{ID: deviceID, OrgID: orgID, IsActive: true}}
	appSvc := &fakeApplicationService{}
	srv := &Server{deviceSvc: deviceSvc, applicationSvc: appSvc}
	router := newScanRouter(srv)

	body := `{"reader_id":"42","card_uuid":"123e4567-e89b-12d3-a456-426614174000"}`
	req := httptest.NewRequest(http.MethodPost, "/api/nfc/scan", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer good-secret")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if appSvc.scanCalls != 1 {
		t.Fatalf("expected one scan call, got %d", appSvc.scanCalls)
	}
	if appSvc.lastScan.DeviceID != deviceID || appSvc.lastScan.DeviceOrgID != orgID {
		t.Fatalf("scan request not pinned to authenticated device: %+v", appSvc.lastScan)
	}
	if deviceSvc.touched != 1 {
		t.Fatalf("expected last seen touch, got %d", deviceSvc.touched)
	}

	var payload struct {
		Success       bool   `json:"success"`
		ApplicationID string `json:"application_id"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if !payload.Success || payload.ApplicationID != "1234567890" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if strings.Contains(resp.Body.String(), "super-secret-public-token") {
		t.Fatal("scan response must not echo the public token")
	}
}

func TestHandleScanRejectsBadCredentials(t *testing.T) {
	deviceSvc := &fakeDeviceService{device: &devicedomain.Device{ID: 42, OrgID: 77, IsActive: true}}
	srv := &Server{deviceSvc: deviceSvc, applicationSvc: &fakeApplicationService{}}
	router := newScanRouter(srv)

	for _, header := range []string{"", "Bearer wrong-secret", "Basic good-secret"} {
		req := httptest.NewRequest(http.MethodPost, "/api/nfc/scan", bytes.NewBufferString(`{}`))
		req.Header.Set("Content-Type", "application/json")
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)

		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected status 401, got %d", header, resp.Code)
		}
	}
}

func TestHandleScanMapsDomainErrors(t *testing.T) {
	deviceSvc := &fakeDeviceService{device: &devicedomain.Device{ID: 42, OrgID: 77, IsActive: true}}

	cases := []struct {
		err    error
		status int
	}{
		{applicationdomain.ErrInvalidCardID, http.StatusBadRequest},
		{applicationdomain.ErrCardNotFound, http.StatusNotFound},
		{applicationdomain.ErrDeviceMismatch, http.StatusForbidden},
		{applicationdomain.ErrDuplicateScan, http.StatusConflict},
	}
	for _, tc := range cases {
		srv := &Server{deviceSvc: deviceSvc, applicationSvc: &fakeApplicationService{scanErr: tc.err}}
		router := newScanRouter(srv)

		body := `{"reader_id":"42","card_uuid":"123e4567-e89b-12d3-a456-426614174000"}`
		req := httptest.NewRequest(http.MethodPost, "/api/nfc/scan", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer good-secret")
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)

		if resp.Code != tc.status {
			t.Fatalf("error %v: expected status %d, got %d", tc.err, tc.status, resp.Code)
		}
	}
}

func TestGetApplicationByToken(t *testing.T) {
	srv := &Server{applicationSvc: &fakeApplicationService{}}
	router := newScanRouter(srv)

	req := httptest.NewRequest(http.MethodGet, "/api/applications/token/super-secret-public-token", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/applications/token/bogus", nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected status 403 for bad token, got %d", resp.Code)
	}
}
