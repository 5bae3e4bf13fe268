package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	id "fleetdocs/pkg/domain"
)

var now = time.Date(2026, time.August, 23, 10, 30, 0, 0, time.UTC)

func TestApplyComplete(t *testing.T) {
	p := NewProfile(id.DriverID(uuid.New()), now)

	assert.True(t, p.ApplyComplete(now))
	assert.Equal(t, StatusActive, p.Status)
	assert.True(t, p.DocumentsComplete)
	assert.Equal(t, now, *p.DocumentsVerifiedAt)

	// Second application is a no-op and keeps the original verified-at.
	later := now.Add(time.Hour)
	assert.False(t, p.ApplyComplete(later))
	assert.Equal(t, now, *p.DocumentsVerifiedAt)
	assert.Equal(t, now, p.UpdatedAt)
}

func TestApplyIncomplete(t *testing.T) {
	p := NewProfile(id.DriverID(uuid.New()), now)
	p.ApplyComplete(now)

	later := now.Add(time.Hour)
	assert.True(t, p.ApplyIncomplete(later))
	assert.Equal(t, StatusPendingDocuments, p.Status)
	assert.False(t, p.DocumentsComplete)

	assert.False(t, p.ApplyIncomplete(later.Add(time.Hour)))
}

func TestApplyComplete_DoesNotTouchForeignStatus(t *testing.T) {
	p := NewProfile(id.DriverID(uuid.New()), now)
	p.Status = ProfileStatus("suspended")

	assert.True(t, p.ApplyComplete(now))
	assert.True(t, p.DocumentsComplete)
	assert.Equal(t, ProfileStatus("suspended"), p.Status)

	assert.True(t, p.ApplyIncomplete(now.Add(time.Hour)))
	assert.Equal(t, ProfileStatus("suspended"), p.Status)
}
