// Package service computes the driver verification aggregate: which required
// document types are covered by an approved document, and whether the driver
// profile should sit at pending_documents or active.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	docmodels "fleetdocs/internal/document/models"
	docstore "fleetdocs/internal/document/store"
	"fleetdocs/internal/platform/middleware"
	"fleetdocs/internal/platform/redis"
	profilemodels "fleetdocs/internal/profile/models"
	profilestore "fleetdocs/internal/profile/store"
	"fleetdocs/internal/verification/metrics"
	id "fleetdocs/pkg/domain"
	dErrors "fleetdocs/pkg/domain-errors"
	"fleetdocs/pkg/platform/sentinel"
	"fleetdocs/pkg/requestcontext"
)

// StatusMissing marks a required type the driver has never submitted; every
// other value in RequiredDocuments is a document status.
const StatusMissing = "missing"

// Status is the externally visible verification aggregate for one driver.
// RequiredDocuments maps each required type to the current status of its
// best document: approved if any approved document exists, otherwise the
// newest submission's status, otherwise missing.
type Status struct {
	DriverID            id.DriverID                 `json:"driver_id"`
	ProfileStatus       profilemodels.ProfileStatus `json:"profile_status"`
	DocumentsComplete   bool                        `json:"documents_complete"`
	DocumentsVerifiedAt *time.Time                  `json:"documents_verified_at,omitempty"`
	RequiredDocuments   map[string]string           `json:"required_documents"`
	MissingDocuments    []string                    `json:"missing_documents"`
}

// Service owns the aggregate. It is the only writer of the profile
// completeness fields; the document registry and the sweeper only trigger
// recomputation.
type Service struct {
	docs     docstore.Store
	profiles profilestore.Store

	cache    *redis.Client
	cacheTTL time.Duration

	required []docmodels.DocumentType
	metrics  *metrics.Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
}

// New builds the aggregator. requiredTypes comes from deployment
// configuration and must name known document types; an unknown entry fails
// startup rather than silently never completing any driver. cache may be nil.
func New(docs docstore.Store, profiles profilestore.Store, cache *redis.Client, cacheTTL time.Duration,
	requiredTypes []string, m *metrics.Metrics, logger *slog.Logger) (*Service, error) {

	if len(requiredTypes) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "required document types must not be empty")
	}
	required := make([]docmodels.DocumentType, 0, len(requiredTypes))
	for _, raw := range requiredTypes {
		t, err := docmodels.ParseDocumentType(raw)
		if err != nil {
			return nil, err
		}
		required = append(required, t)
	}
	return &Service{
		docs:     docs,
		profiles: profiles,
		cache:    cache,
		cacheTTL: cacheTTL,
		required: required,
		metrics:  m,
		logger:   logger,
		tracer:   otel.Tracer("fleetdocs/verification"),
	}, nil
}

func cacheKey(driverID id.DriverID) string {
	return "fleetdocs:verification:" + driverID.String()
}

// Status returns the aggregate, serving from the cache when possible. A cache
// failure degrades to a store read, never to an error. Owners and admins only.
func (s *Service) Status(ctx context.Context, driverID id.DriverID) (*Status, error) {
	ctx, span := s.tracer.Start(ctx, "verification.Status")
	defer span.End()

	if err := authorizeDriverAccess(ctx, driverID); err != nil {
		return nil, err
	}

	if s.cache != nil {
		raw, err := s.cache.Get(ctx, cacheKey(driverID)).Bytes()
		switch {
		case err == nil:
			var cached Status
			if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
				s.metrics.CacheHit()
				return &cached, nil
			}
		case !errors.Is(err, goredis.Nil):
			s.logger.WarnContext(ctx, "verification cache read failed", "error", err)
		}
		s.metrics.CacheMiss()
	}

	status, _, err := s.compute(ctx, s.docs, s.profiles, driverID)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, status)
	return status, nil
}

// Recompute rebuilds the aggregate from the document registry and persists
// any profile change. Safe to call repeatedly; a recompute that changes
// nothing writes nothing.
func (s *Service) Recompute(ctx context.Context, driverID id.DriverID) (*Status, error) {
	ctx, span := s.tracer.Start(ctx, "verification.Recompute")
	defer span.End()

	status, _, err := s.RecomputeWith(ctx, s.docs, s.profiles, driverID)
	if err != nil {
		return nil, err
	}
	s.Invalidate(ctx, driverID)
	return status, nil
}

// RecomputeWith is Recompute against caller-supplied stores, so the review
// and sweep paths can run the recomputation inside their own transactions.
// The second return reports whether the profile row was written; the caller
// is responsible for invalidating the cache after commit.
func (s *Service) RecomputeWith(ctx context.Context, docs docstore.Store, profiles profilestore.Store,
	driverID id.DriverID) (*Status, bool, error) {

	status, profile, err := s.compute(ctx, docs, profiles, driverID)
	if err != nil {
		return nil, false, err
	}

	now := requestcontext.Now(ctx)
	var changed bool
	if status.DocumentsComplete {
		changed = profile.ApplyComplete(now)
	} else {
		changed = profile.ApplyIncomplete(now)
	}
	if changed {
		if err := profiles.Upsert(ctx, profile); err != nil {
			return nil, false, storeErr(err, "driver profile")
		}
	}
	status.ProfileStatus = profile.Status
	status.DocumentsVerifiedAt = profile.DocumentsVerifiedAt
	s.metrics.Recomputed(status.DocumentsComplete)
	return status, changed, nil
}

// Invalidate drops the cached aggregate. Best effort: a failed delete only
// shortens cache accuracy until the TTL runs out.
func (s *Service) Invalidate(ctx context.Context, driverID id.DriverID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, cacheKey(driverID)).Err(); err != nil {
		s.logger.WarnContext(ctx, "verification cache invalidation failed",
			"driver_id", driverID.String(), "error", err)
	}
}

// compute builds the aggregate view without writing anything.
func (s *Service) compute(ctx context.Context, docs docstore.Store, profiles profilestore.Store,
	driverID id.DriverID) (*Status, *profilemodels.DriverProfile, error) {

	submitted, err := docs.ListByDriver(ctx, driverID)
	if err != nil {
		return nil, nil, storeErr(err, "driver documents")
	}
	approvedSet := make(map[docmodels.DocumentType]bool)
	newest := make(map[docmodels.DocumentType]docmodels.DocumentStatus)
	for _, doc := range submitted {
		if doc.Status.CountsTowardCompleteness() {
			approvedSet[doc.Type] = true
		}
		// ListByDriver is newest first; keep the first status seen per type.
		if _, seen := newest[doc.Type]; !seen {
			newest[doc.Type] = doc.Status
		}
	}

	status := &Status{
		DriverID:          driverID,
		DocumentsComplete: true,
		RequiredDocuments: make(map[string]string, len(s.required)),
		MissingDocuments:  []string{},
	}
	for _, t := range s.required {
		switch {
		case approvedSet[t]:
			status.RequiredDocuments[string(t)] = string(docmodels.StatusApproved)
		case newest[t] != "":
			status.RequiredDocuments[string(t)] = string(newest[t])
		default:
			status.RequiredDocuments[string(t)] = StatusMissing
		}
		if !approvedSet[t] {
			status.DocumentsComplete = false
			status.MissingDocuments = append(status.MissingDocuments, string(t))
		}
	}

	profile, err := profiles.FindByDriver(ctx, driverID)
	switch {
	case err == nil:
	case errors.Is(err, sentinel.ErrNotFound):
		profile = profilemodels.NewProfile(driverID, requestcontext.Now(ctx))
	default:
		return nil, nil, storeErr(err, "driver profile")
	}
	status.ProfileStatus = profile.Status
	status.DocumentsVerifiedAt = profile.DocumentsVerifiedAt
	return status, profile, nil
}

func (s *Service) cacheSet(ctx context.Context, status *Status) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(status)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(status.DriverID), raw, s.cacheTTL).Err(); err != nil {
		s.logger.WarnContext(ctx, "verification cache write failed", "error", err)
	}
}

// authorizeDriverAccess lets a driver at their own aggregate and admins at
// everything. Internal recomputation paths bypass it; only reads on behalf
// of a caller are gated.
func authorizeDriverAccess(ctx context.Context, driverID id.DriverID) error {
	if requestcontext.HasRole(ctx, middleware.AdminRole) {
		return nil
	}
	caller := requestcontext.UserID(ctx)
	if caller.IsZero() {
		return dErrors.New(dErrors.CodeUnauthorized, "caller identity missing")
	}
	if caller.String() != driverID.String() {
		return dErrors.New(dErrors.CodeForbidden, "callers may only read their own verification status")
	}
	return nil
}

func storeErr(err error, what string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, what+" not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, what+" was modified concurrently")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, what+" store unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "read "+what)
	}
}
