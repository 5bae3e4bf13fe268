package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetdocs/internal/audit"
	dochandler "fleetdocs/internal/document/handler"
	docservice "fleetdocs/internal/document/service"
	docstore "fleetdocs/internal/document/store"
	"fleetdocs/internal/jwttoken"
	"fleetdocs/internal/notify"
	"fleetdocs/internal/platform/config"
	"fleetdocs/internal/platform/logger"
	"fleetdocs/internal/platform/middleware"
	profilestore "fleetdocs/internal/profile/store"
	"fleetdocs/internal/storage"
	sweephandler "fleetdocs/internal/sweeper/handler"
	sweepservice "fleetdocs/internal/sweeper/service"
	verificationhandler "fleetdocs/internal/verification/handler"
	verificationservice "fleetdocs/internal/verification/service"
	id "fleetdocs/pkg/domain"
	"fleetdocs/pkg/testutil"
)

type testServer struct {
	handler http.Handler
	jwt     *jwttoken.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := logger.New(false)
	docs := docstore.NewInMemory()
	profiles := profilestore.NewInMemory()
	auditStore := audit.NewInMemoryStore()
	auditor := audit.NewPublisher(auditStore, log)

	verifier, err := verificationservice.New(docs, profiles, nil, time.Minute, []string{"license"}, nil, log)
	require.NoError(t, err)

	registry := docservice.New(docs, docservice.NewMemoryTx(docs, profiles),
		storage.NewInMemory("test-bucket"), verifier, auditor, docservice.Config{
			UploadGrantTTL: 15 * time.Minute,
			ReadGrantTTL:   time.Hour,
			MaxUploadBytes: 10 << 20,
		}, nil, log)

	sweeper := sweepservice.New(docs, docservice.NewMemoryTx(docs, profiles), verifier,
		notify.NewInMemory(), auditor, config.SweepConfig{
		Interval:        24 * time.Hour,
		ExpiryLookahead: 30 * 24 * time.Hour,
		BatchLimit:      100,
	}, nil, log)

	jwtSvc := jwttoken.New("test-secret", "test")
	handler := NewRouter(Dependencies{
		Logger:       log,
		Validator:    jwtSvc,
		Documents:    dochandler.New(registry),
		Verification: verificationhandler.New(verifier),
		Sweep:        sweephandler.New(sweeper),
		Audit:        audit.NewHandler(auditStore),
	})
	return &testServer{handler: handler, jwt: jwtSvc}
}

func (s *testServer) token(t *testing.T, subject id.UserID, roles ...string) string {
	t.Helper()
	token, err := s.jwt.Generate(subject, roles, time.Hour)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func TestRouter_RequiresToken(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(testutil.JSONRequest(t, http.MethodGet, "/api/v1/documents/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]string
	testutil.DecodeJSON(t, rec, &body)
	assert.Equal(t, "unauthorized", body["error"])
}

func TestRouter_AdminRoutesForbiddenForDrivers(t *testing.T) {
	srv := newTestServer(t)
	driver := id.UserID(uuid.New())

	req := testutil.JSONRequest(t, http.MethodPost, "/api/v1/admin/sweep", nil)
	req.Header.Set("Authorization", "Bearer "+srv.token(t, driver, "driver"))
	rec := srv.do(req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouter_UploadReviewVerificationFlow(t *testing.T) {
	srv := newTestServer(t)
	driver := uuid.New()
	driverToken := srv.token(t, id.UserID(driver), "driver")
	adminToken := srv.token(t, id.UserID(uuid.New()), middleware.AdminRole)

	// Driver requests an upload grant.
	req := testutil.JSONRequest(t, http.MethodPost,
		"/api/v1/drivers/"+id.DriverID(driver).String()+"/documents/upload-grant",
		map[string]any{
			"documentType": "license",
			"fileName":     "license.pdf",
			"contentType":  "application/pdf",
			"fileSize":     2048,
		})
	req.Header.Set("Authorization", "Bearer "+driverToken)
	rec := srv.do(req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var grant struct {
		DocumentID string `json:"document_id"`
		UploadURL  string `json:"upload_url"`
	}
	testutil.DecodeJSON(t, rec, &grant)
	assert.NotEmpty(t, grant.UploadURL)
	require.NotEmpty(t, grant.DocumentID)

	// Another driver cannot read it, nor the owner's verification aggregate.
	stranger := srv.token(t, id.UserID(uuid.New()), "driver")
	req = testutil.JSONRequest(t, http.MethodGet, "/api/v1/documents/"+grant.DocumentID, nil)
	req.Header.Set("Authorization", "Bearer "+stranger)
	assert.Equal(t, http.StatusForbidden, srv.do(req).Code)

	req = testutil.JSONRequest(t, http.MethodGet,
		"/api/v1/drivers/"+id.DriverID(driver).String()+"/verification", nil)
	req.Header.Set("Authorization", "Bearer "+stranger)
	assert.Equal(t, http.StatusForbidden, srv.do(req).Code)

	// Admin approves it.
	req = testutil.JSONRequest(t, http.MethodPost, "/api/v1/admin/documents/"+grant.DocumentID+"/review",
		map[string]any{"status": "approved", "expiryDate": "2030-01-01"})
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec = srv.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var reviewed struct {
		Document struct {
			Status     string `json:"status"`
			ReviewedBy string `json:"reviewed_by"`
		} `json:"document"`
		Verification struct {
			DocumentsComplete bool `json:"documents_complete"`
		} `json:"verification"`
	}
	testutil.DecodeJSON(t, rec, &reviewed)
	assert.Equal(t, "approved", reviewed.Document.Status)
	assert.NotEmpty(t, reviewed.Document.ReviewedBy)
	assert.True(t, reviewed.Verification.DocumentsComplete)

	// The driver's verification aggregate is now complete.
	req = testutil.JSONRequest(t, http.MethodGet,
		"/api/v1/drivers/"+id.DriverID(driver).String()+"/verification", nil)
	req.Header.Set("Authorization", "Bearer "+driverToken)
	rec = srv.do(req)
	require.Equal(t, http.StatusOK, rec.Code)

	var status struct {
		DocumentsComplete bool   `json:"documents_complete"`
		ProfileStatus     string `json:"profile_status"`
	}
	testutil.DecodeJSON(t, rec, &status)
	assert.True(t, status.DocumentsComplete)
	assert.Equal(t, "active", status.ProfileStatus)

	// The audit trail recorded both actions.
	req = testutil.JSONRequest(t, http.MethodGet,
		"/api/v1/admin/drivers/"+id.DriverID(driver).String()+"/audit", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec = srv.do(req)
	require.Equal(t, http.StatusOK, rec.Code)

	var trail struct {
		Events []struct {
			Action string `json:"action"`
		} `json:"events"`
	}
	testutil.DecodeJSON(t, rec, &trail)
	require.Len(t, trail.Events, 2)
	assert.Equal(t, "document_submitted", trail.Events[0].Action)
	assert.Equal(t, "document_approved", trail.Events[1].Action)
}

func TestRouter_ReviewConflict(t *testing.T) {
	srv := newTestServer(t)
	driver := uuid.New()
	adminToken := srv.token(t, id.UserID(uuid.New()), middleware.AdminRole)

	req := testutil.JSONRequest(t, http.MethodPost,
		"/api/v1/drivers/"+id.DriverID(driver).String()+"/documents/upload-grant",
		map[string]any{"documentType": "license", "fileName": "l.pdf", "contentType": "application/pdf"})
	req.Header.Set("Authorization", "Bearer "+srv.token(t, id.UserID(driver), "driver"))
	rec := srv.do(req)
	require.Equal(t, http.StatusCreated, rec.Code)
	var grant struct {
		DocumentID string `json:"document_id"`
	}
	testutil.DecodeJSON(t, rec, &grant)

	approve := func() *httptest.ResponseRecorder {
		req := testutil.JSONRequest(t, http.MethodPost,
			"/api/v1/admin/documents/"+grant.DocumentID+"/review", map[string]any{"status": "approved"})
		req.Header.Set("Authorization", "Bearer "+adminToken)
		return srv.do(req)
	}
	require.Equal(t, http.StatusOK, approve().Code)

	// Approved documents cannot be re-approved.
	rec = approve()
	assert.Equal(t, http.StatusConflict, rec.Code)
	var body map[string]string
	testutil.DecodeJSON(t, rec, &body)
	assert.Equal(t, "invariant_violation", body["error"])
}

func TestRouter_Healthz(t *testing.T) {
	srv := newTestServer(t)
	rec := srv.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_SweepEndpoint(t *testing.T) {
	srv := newTestServer(t)
	req := testutil.JSONRequest(t, http.MethodPost, "/api/v1/admin/sweep", nil)
	req.Header.Set("Authorization", "Bearer "+srv.token(t, id.UserID(uuid.New()), middleware.AdminRole))
	rec := srv.do(req)
	require.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		ExpiredCount      int      `json:"expired_count"`
		NotificationsSent int      `json:"notifications_sent"`
		ProfilesUpdated   int      `json:"profiles_updated"`
		Errors            []string `json:"errors"`
	}
	testutil.DecodeJSON(t, rec, &result)
	assert.Equal(t, 0, result.ExpiredCount)
	assert.Equal(t, 0, result.NotificationsSent)
	assert.NotNil(t, result.Errors)
}
