package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	docmodels "fleetdocs/internal/document/models"
	docstore "fleetdocs/internal/document/store"
	"fleetdocs/internal/platform/logger"
	"fleetdocs/internal/platform/middleware"
	profilemodels "fleetdocs/internal/profile/models"
	profilestore "fleetdocs/internal/profile/store"
	id "fleetdocs/pkg/domain"
	dErrors "fleetdocs/pkg/domain-errors"
	"fleetdocs/pkg/testutil"
)

func newService(t *testing.T, required ...string) (*Service, *docstore.InMemory, *profilestore.InMemory) {
	t.Helper()
	if len(required) == 0 {
		required = []string{"license", "insurance"}
	}
	docs := docstore.NewInMemory()
	profiles := profilestore.NewInMemory()
	svc, err := New(docs, profiles, nil, time.Minute, required, nil, logger.New(false))
	require.NoError(t, err)
	return svc, docs, profiles
}

func seedApproved(t *testing.T, docs *docstore.InMemory, driverID id.DriverID, docType docmodels.DocumentType, expiry *time.Time) *docmodels.DriverDocument {
	t.Helper()
	doc, err := docmodels.NewPendingDocument(id.DocumentID(uuid.New()), driverID, docType,
		driverID.String()+"/"+string(docType)+"/key", "bucket", "scan.pdf", "application/pdf", 1024, testutil.FrozenTime)
	require.NoError(t, err)
	doc.ApplyReview(id.UserID(uuid.New()), docmodels.StatusApproved, docmodels.ReviewFields{ExpiryDate: expiry}, testutil.FrozenTime)
	require.NoError(t, docs.Create(t.Context(), doc))
	return doc
}

func TestNew_RejectsUnknownRequiredType(t *testing.T) {
	_, err := New(docstore.NewInMemory(), profilestore.NewInMemory(), nil, time.Minute,
		[]string{"license", "fishing_permit"}, nil, logger.New(false))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func TestRecompute_Incomplete(t *testing.T) {
	svc, docs, _ := newService(t)
	driverID := id.DriverID(uuid.New())
	seedApproved(t, docs, driverID, docmodels.TypeLicense, nil)

	status, err := svc.Recompute(testutil.Context(), driverID)
	require.NoError(t, err)

	assert.False(t, status.DocumentsComplete)
	assert.Equal(t, profilemodels.StatusPendingDocuments, status.ProfileStatus)
	assert.Equal(t, []string{"insurance"}, status.MissingDocuments)
	assert.Equal(t, "approved", status.RequiredDocuments["license"])
	assert.Equal(t, StatusMissing, status.RequiredDocuments["insurance"])
}

func TestRecompute_PendingSubmissionSurfacesItsStatus(t *testing.T) {
	svc, docs, _ := newService(t)
	driverID := id.DriverID(uuid.New())
	seedApproved(t, docs, driverID, docmodels.TypeLicense, nil)

	pending, err := docmodels.NewPendingDocument(id.DocumentID(uuid.New()), driverID, docmodels.TypeInsurance,
		driverID.String()+"/insurance/key", "bucket", "scan.pdf", "application/pdf", 1024, testutil.FrozenTime)
	require.NoError(t, err)
	require.NoError(t, docs.Create(t.Context(), pending))

	status, err := svc.Recompute(testutil.Context(), driverID)
	require.NoError(t, err)

	// An unreviewed submission is visible per type but still counts missing.
	assert.Equal(t, "pending", status.RequiredDocuments["insurance"])
	assert.Equal(t, []string{"insurance"}, status.MissingDocuments)
	assert.False(t, status.DocumentsComplete)
}

func TestRecompute_CompleteActivatesProfile(t *testing.T) {
	svc, docs, profiles := newService(t)
	driverID := id.DriverID(uuid.New())
	seedApproved(t, docs, driverID, docmodels.TypeLicense, nil)
	seedApproved(t, docs, driverID, docmodels.TypeInsurance, nil)

	status, err := svc.Recompute(testutil.Context(), driverID)
	require.NoError(t, err)

	assert.True(t, status.DocumentsComplete)
	assert.Equal(t, profilemodels.StatusActive, status.ProfileStatus)
	require.NotNil(t, status.DocumentsVerifiedAt)
	assert.Equal(t, testutil.FrozenTime, *status.DocumentsVerifiedAt)
	assert.Empty(t, status.MissingDocuments)

	stored, err := profiles.FindByDriver(t.Context(), driverID)
	require.NoError(t, err)
	assert.Equal(t, profilemodels.StatusActive, stored.Status)
}

func TestRecompute_Idempotent(t *testing.T) {
	svc, docs, profiles := newService(t)
	driverID := id.DriverID(uuid.New())
	seedApproved(t, docs, driverID, docmodels.TypeLicense, nil)
	seedApproved(t, docs, driverID, docmodels.TypeInsurance, nil)

	first, err := svc.Recompute(testutil.Context(), driverID)
	require.NoError(t, err)
	second, err := svc.Recompute(testutil.Context(), driverID)
	require.NoError(t, err)

	assert.Equal(t, first.DocumentsVerifiedAt, second.DocumentsVerifiedAt)
	stored, err := profiles.FindByDriver(t.Context(), driverID)
	require.NoError(t, err)
	assert.Equal(t, testutil.FrozenTime, stored.UpdatedAt)
}

func TestRecompute_LeavesForeignProfileStatusAlone(t *testing.T) {
	svc, docs, profiles := newService(t)
	driverID := id.DriverID(uuid.New())
	seedApproved(t, docs, driverID, docmodels.TypeLicense, nil)
	seedApproved(t, docs, driverID, docmodels.TypeInsurance, nil)

	suspended := profilemodels.NewProfile(driverID, testutil.FrozenTime)
	suspended.Status = profilemodels.ProfileStatus("suspended")
	require.NoError(t, profiles.Upsert(t.Context(), suspended))

	status, err := svc.Recompute(testutil.Context(), driverID)
	require.NoError(t, err)

	// Completeness is recorded, but a suspended driver is not reactivated.
	assert.True(t, status.DocumentsComplete)
	assert.Equal(t, profilemodels.ProfileStatus("suspended"), status.ProfileStatus)
}

func TestRecompute_ExpiredDocumentDoesNotCount(t *testing.T) {
	svc, docs, _ := newService(t)
	driverID := id.DriverID(uuid.New())
	seedApproved(t, docs, driverID, docmodels.TypeInsurance, nil)

	doc := seedApproved(t, docs, driverID, docmodels.TypeLicense, nil)
	doc.ApplyExpiry(testutil.FrozenTime)
	require.NoError(t, docs.Update(t.Context(), doc))

	status, err := svc.Recompute(testutil.Context(), driverID)
	require.NoError(t, err)
	assert.False(t, status.DocumentsComplete)
	assert.Equal(t, "expired", status.RequiredDocuments["license"])
	assert.Equal(t, []string{"license"}, status.MissingDocuments)
}

func TestStatus_DoesNotWriteProfile(t *testing.T) {
	svc, _, profiles := newService(t)
	driver := uuid.New()
	driverID := id.DriverID(driver)

	status, err := svc.Status(testutil.AuthenticatedContext(id.UserID(driver)), driverID)
	require.NoError(t, err)
	assert.False(t, status.DocumentsComplete)
	assert.Equal(t, profilemodels.StatusPendingDocuments, status.ProfileStatus)

	_, err = profiles.FindByDriver(t.Context(), driverID)
	require.Error(t, err)
}

func TestStatus_OwnerOrAdminOnly(t *testing.T) {
	svc, _, _ := newService(t)
	driverID := id.DriverID(uuid.New())

	_, err := svc.Status(testutil.AuthenticatedContext(id.UserID(uuid.New())), driverID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = svc.Status(testutil.Context(), driverID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, err = svc.Status(testutil.AuthenticatedContext(id.UserID(uuid.New()), middleware.AdminRole), driverID)
	require.NoError(t, err)
}
