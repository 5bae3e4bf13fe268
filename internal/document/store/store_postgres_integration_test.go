//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetdocs/internal/document/models"
	"fleetdocs/internal/document/store"
	id "fleetdocs/pkg/domain"
	"fleetdocs/pkg/platform/sentinel"
	"fleetdocs/pkg/testutil/containers"
)

func newDocument(t *testing.T, driverID id.DriverID, docType models.DocumentType) *models.DriverDocument {
	t.Helper()
	doc, err := models.NewPendingDocument(id.DocumentID(uuid.New()), driverID, docType,
		driverID.String()+"/"+string(docType)+"/1787481000_scan.pdf", "fleetdocs-test",
		"scan.pdf", "application/pdf", 2048, time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, err)
	return doc
}

func TestPostgresStore_RoundTrip(t *testing.T) {
	db := containers.StartPostgres(t)
	s := store.NewPostgres(db)
	ctx := context.Background()
	driverID := id.DriverID(uuid.New())

	doc := newDocument(t, driverID, models.TypeLicense)
	require.NoError(t, s.Create(ctx, doc))

	// Duplicate id is a conflict.
	assert.ErrorIs(t, s.Create(ctx, doc), sentinel.ErrConflict)

	loaded, err := s.FindByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, loaded.Status)
	assert.Equal(t, doc.StorageKey, loaded.StorageKey)
	assert.Nil(t, loaded.ReviewedBy)

	_, err = s.FindByID(ctx, id.DocumentID(uuid.New()))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestPostgresStore_ReviewUpdate(t *testing.T) {
	db := containers.StartPostgres(t)
	s := store.NewPostgres(db)
	ctx := context.Background()
	driverID := id.DriverID(uuid.New())
	reviewer := id.UserID(uuid.New())
	now := time.Now().UTC().Truncate(time.Microsecond)

	doc := newDocument(t, driverID, models.TypeLicense)
	require.NoError(t, s.Create(ctx, doc))

	// expiry_date is a DATE column; only midnight-UTC values round-trip.
	expiry := time.Date(now.Year()+1, now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	number := "DL-98765"
	doc.ApplyReview(reviewer, models.StatusApproved, models.ReviewFields{
		ExpiryDate:     &expiry,
		DocumentNumber: &number,
	}, now)
	require.NoError(t, s.Update(ctx, doc))

	loaded, err := s.FindByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, loaded.Status)
	require.NotNil(t, loaded.ReviewedBy)
	assert.Equal(t, reviewer.String(), loaded.ReviewedBy.String())
	require.NotNil(t, loaded.ExpiryDate)
	assert.True(t, loaded.ExpiryDate.Equal(expiry))
	assert.Equal(t, "DL-98765", *loaded.DocumentNumber)

	docs, err := s.ListByDriver(ctx, driverID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, models.StatusApproved, docs[0].Status)
}

func TestPostgresStore_SweepQueries(t *testing.T) {
	db := containers.StartPostgres(t)
	s := store.NewPostgres(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	approve := func(docType models.DocumentType, expiry time.Time) *models.DriverDocument {
		doc := newDocument(t, id.DriverID(uuid.New()), docType)
		require.NoError(t, s.Create(ctx, doc))
		doc.ApplyReview(id.UserID(uuid.New()), models.StatusApproved,
			models.ReviewFields{ExpiryDate: &expiry}, now)
		require.NoError(t, s.Update(ctx, doc))
		return doc
	}

	overdue := approve(models.TypeLicense, now.AddDate(0, 0, -2))
	soon := approve(models.TypeInsurance, now.AddDate(0, 0, 7))
	approve(models.TypeRegistration, now.AddDate(2, 0, 0))

	past, err := s.ListPastExpiry(ctx, now, 100)
	require.NoError(t, err)
	require.Len(t, past, 1)
	assert.Equal(t, overdue.ID, past[0].ID)

	expiring, err := s.ListExpiringSoon(ctx, now, now.AddDate(0, 0, 30), 100)
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, soon.ID, expiring[0].ID)

	// Stamped documents drop out of the notification candidates.
	require.NoError(t, soon.MarkExpirationNotified(now))
	require.NoError(t, s.Update(ctx, soon))
	expiring, err = s.ListExpiringSoon(ctx, now, now.AddDate(0, 0, 30), 100)
	require.NoError(t, err)
	assert.Empty(t, expiring)

	queue, err := s.ListByStatus(ctx, models.StatusPending, 100)
	require.NoError(t, err)
	assert.Empty(t, queue)
}
