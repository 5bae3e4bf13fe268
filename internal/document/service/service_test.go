package service

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetdocs/internal/audit"
	"fleetdocs/internal/document/models"
	docstore "fleetdocs/internal/document/store"
	"fleetdocs/internal/platform/logger"
	"fleetdocs/internal/platform/middleware"
	profilemodels "fleetdocs/internal/profile/models"
	profilestore "fleetdocs/internal/profile/store"
	"fleetdocs/internal/storage"
	verification "fleetdocs/internal/verification/service"
	id "fleetdocs/pkg/domain"
	dErrors "fleetdocs/pkg/domain-errors"
	"fleetdocs/pkg/testutil"
)

type fixture struct {
	svc      *Service
	docs     *docstore.InMemory
	profiles *profilestore.InMemory
	audit    *audit.InMemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.New(false)
	docs := docstore.NewInMemory()
	profiles := profilestore.NewInMemory()
	auditStore := audit.NewInMemoryStore()

	verifier, err := verification.New(docs, profiles, nil, time.Minute, []string{"license"}, nil, log)
	require.NoError(t, err)

	svc := New(docs, NewMemoryTx(docs, profiles), storage.NewInMemory("test-bucket"), verifier,
		audit.NewPublisher(auditStore, log), Config{
			UploadGrantTTL: 15 * time.Minute,
			ReadGrantTTL:   time.Hour,
			MaxUploadBytes: 10 << 20,
		}, nil, log)
	return &fixture{svc: svc, docs: docs, profiles: profiles, audit: auditStore}
}

func grantRequest() models.UploadGrantRequest {
	return models.UploadGrantRequest{
		DocumentType: "license",
		FileName:     "license scan.pdf",
		ContentType:  "application/pdf",
		FileSize:     2048,
	}
}

func TestCreateUploadGrant(t *testing.T) {
	f := newFixture(t)
	driver := uuid.New()
	ctx := testutil.AuthenticatedContext(id.UserID(driver))

	grant, err := f.svc.CreateUploadGrant(ctx, id.DriverID(driver), grantRequest())
	require.NoError(t, err)

	assert.Equal(t, "PUT", grant.Method)
	assert.NotEmpty(t, grant.UploadURL)
	assert.Equal(t, "application/pdf", grant.Headers["Content-Type"])
	assert.Equal(t, testutil.FrozenTime.Add(15*time.Minute), grant.ExpiresAt)
	assert.True(t, strings.HasPrefix(grant.StorageKey, id.DriverID(driver).String()+"/license/"))
	assert.Contains(t, grant.StorageKey, "license_scan.pdf")

	stored, err := f.docs.FindByID(t.Context(), grant.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
	assert.Equal(t, models.CategoryIdentity, stored.Category)
	assert.Equal(t, "test-bucket", stored.Bucket)

	events, err := f.audit.ListByDriver(t.Context(), id.DriverID(driver))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionDocumentSubmitted, events[0].Action)
}

func TestCreateUploadGrant_ForbiddenForOtherDriver(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.AuthenticatedContext(id.UserID(uuid.New()))

	_, err := f.svc.CreateUploadGrant(ctx, id.DriverID(uuid.New()), grantRequest())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}

func TestCreateUploadGrant_AdminMayActForAnyDriver(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.AuthenticatedContext(id.UserID(uuid.New()), middleware.AdminRole)

	_, err := f.svc.CreateUploadGrant(ctx, id.DriverID(uuid.New()), grantRequest())
	require.NoError(t, err)
}

func TestCreateUploadGrant_RejectsOversizedDeclaration(t *testing.T) {
	f := newFixture(t)
	driver := uuid.New()
	req := grantRequest()
	req.FileSize = 11 << 20

	_, err := f.svc.CreateUploadGrant(testutil.AuthenticatedContext(id.UserID(driver)), id.DriverID(driver), req)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (f *fixture) seedPending(t *testing.T, driverID id.DriverID) *models.DriverDocument {
	t.Helper()
	grant, err := f.svc.CreateUploadGrant(
		testutil.AuthenticatedContext(id.UserID(uuid.UUID(driverID))), driverID, grantRequest())
	require.NoError(t, err)
	doc, err := f.docs.FindByID(t.Context(), grant.DocumentID)
	require.NoError(t, err)
	return doc
}

func TestReview_ApproveActivatesProfile(t *testing.T) {
	f := newFixture(t)
	driverID := id.DriverID(uuid.New())
	doc := f.seedPending(t, driverID)
	reviewer := id.UserID(uuid.New())
	ctx := testutil.AuthenticatedContext(reviewer, middleware.AdminRole)

	expiry := "2027-08-23"
	number := "DL-12345"
	result, err := f.svc.Review(ctx, doc.ID, models.ReviewRequest{
		Status:         "approved",
		ExpiryDate:     &expiry,
		DocumentNumber: &number,
	})
	require.NoError(t, err)

	reviewed := result.Document
	assert.Equal(t, models.StatusApproved, reviewed.Status)
	require.NotNil(t, reviewed.ReviewedBy)
	assert.Equal(t, reviewer, *reviewed.ReviewedBy)
	require.NotNil(t, reviewed.ExpiryDate)
	assert.Equal(t, time.Date(2027, time.August, 23, 0, 0, 0, 0, time.UTC), *reviewed.ExpiryDate)
	assert.Equal(t, "DL-12345", *reviewed.DocumentNumber)

	// The decision response carries the recomputed aggregate.
	require.NotNil(t, result.Verification)
	assert.True(t, result.Verification.DocumentsComplete)
	assert.Equal(t, profilemodels.StatusActive, result.Verification.ProfileStatus)
	assert.Equal(t, "approved", result.Verification.RequiredDocuments["license"])

	// The only required type is approved, so the aggregate flips to active.
	profile, err := f.profiles.FindByDriver(t.Context(), driverID)
	require.NoError(t, err)
	assert.Equal(t, profilemodels.StatusActive, profile.Status)
	assert.True(t, profile.DocumentsComplete)

	events, err := f.audit.ListByDriver(t.Context(), driverID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, audit.ActionDocumentApproved, events[1].Action)
}

func TestReview_RejectRequiresReason(t *testing.T) {
	f := newFixture(t)
	driverID := id.DriverID(uuid.New())
	doc := f.seedPending(t, driverID)
	ctx := testutil.AuthenticatedContext(id.UserID(uuid.New()), middleware.AdminRole)

	_, err := f.svc.Review(ctx, doc.ID, models.ReviewRequest{Status: "rejected"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))

	// The failed review left the document untouched.
	stored, err := f.docs.FindByID(t.Context(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
}

func TestReview_RejectStoresReason(t *testing.T) {
	f := newFixture(t)
	driverID := id.DriverID(uuid.New())
	doc := f.seedPending(t, driverID)
	ctx := testutil.AuthenticatedContext(id.UserID(uuid.New()), middleware.AdminRole)

	reason := "document is illegible"
	result, err := f.svc.Review(ctx, doc.ID, models.ReviewRequest{Status: "rejected", RejectionReason: &reason})
	require.NoError(t, err)

	assert.Equal(t, models.StatusRejected, result.Document.Status)
	require.NotNil(t, result.Document.RejectionReason)
	assert.Equal(t, reason, *result.Document.RejectionReason)
	assert.False(t, result.Verification.DocumentsComplete)

	events, err := f.audit.ListByDriver(t.Context(), driverID)
	require.NoError(t, err)
	assert.Equal(t, audit.ActionDocumentRejected, events[len(events)-1].Action)
	assert.Equal(t, reason, events[len(events)-1].Reason)
}

func TestReview_ApprovedCannotReturnToPending(t *testing.T) {
	f := newFixture(t)
	driverID := id.DriverID(uuid.New())
	doc := f.seedPending(t, driverID)
	ctx := testutil.AuthenticatedContext(id.UserID(uuid.New()), middleware.AdminRole)

	_, err := f.svc.Review(ctx, doc.ID, models.ReviewRequest{Status: "approved"})
	require.NoError(t, err)

	_, err = f.svc.Review(ctx, doc.ID, models.ReviewRequest{Status: "pending"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestReview_UnknownDocument(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.AuthenticatedContext(id.UserID(uuid.New()), middleware.AdminRole)

	_, err := f.svc.Review(ctx, id.DocumentID(uuid.New()), models.ReviewRequest{Status: "approved"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestGet_OwnerReceivesDownloadURL(t *testing.T) {
	f := newFixture(t)
	driverID := id.DriverID(uuid.New())
	doc := f.seedPending(t, driverID)
	ctx := testutil.AuthenticatedContext(id.UserID(uuid.UUID(driverID)))

	view, err := f.svc.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, view.DownloadURL)
	require.NotNil(t, view.DownloadExpiresAt)
	assert.Equal(t, testutil.FrozenTime.Add(time.Hour), *view.DownloadExpiresAt)
}

func TestGet_StrangerForbidden(t *testing.T) {
	f := newFixture(t)
	doc := f.seedPending(t, id.DriverID(uuid.New()))

	_, err := f.svc.Get(testutil.AuthenticatedContext(id.UserID(uuid.New())), doc.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}

func TestReviewQueue(t *testing.T) {
	f := newFixture(t)
	f.seedPending(t, id.DriverID(uuid.New()))
	f.seedPending(t, id.DriverID(uuid.New()))
	ctx := testutil.AuthenticatedContext(id.UserID(uuid.New()), middleware.AdminRole)

	queue, err := f.svc.ReviewQueue(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, queue, 2)

	_, err = f.svc.ReviewQueue(ctx, "bogus", 10)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}
