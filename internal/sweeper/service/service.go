// Package service runs the scheduled expiry sweep: demoting approved
// documents whose expiry date has passed and notifying drivers whose
// documents expire soon. Each affected driver (demotion) or document
// (notification) is its own unit of work; one bad row never stops the rest
// of the batch.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"fleetdocs/internal/audit"
	docmodels "fleetdocs/internal/document/models"
	docservice "fleetdocs/internal/document/service"
	docstore "fleetdocs/internal/document/store"
	"fleetdocs/internal/notify"
	"fleetdocs/internal/platform/config"
	profilestore "fleetdocs/internal/profile/store"
	"fleetdocs/internal/sweeper/metrics"
	verification "fleetdocs/internal/verification/service"
	id "fleetdocs/pkg/domain"
	dErrors "fleetdocs/pkg/domain-errors"
	"fleetdocs/pkg/platform/sentinel"
	"fleetdocs/pkg/requestcontext"
)

const (
	passDemotion     = "demotion"
	passNotification = "notification"
)

// Service executes sweep passes over the document registry.
type Service struct {
	docs     docstore.Store
	tx       docservice.StoreTx
	verifier *verification.Service
	notifier notify.Notifier
	audit    *audit.Publisher

	cfg     config.SweepConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
}

func New(docs docstore.Store, tx docservice.StoreTx, verifier *verification.Service, notifier notify.Notifier,
	auditor *audit.Publisher, cfg config.SweepConfig, m *metrics.Metrics, logger *slog.Logger) *Service {

	return &Service{
		docs:     docs,
		tx:       tx,
		verifier: verifier,
		notifier: notifier,
		audit:    auditor,
		cfg:      cfg,
		metrics:  m,
		logger:   logger,
		tracer:   otel.Tracer("fleetdocs/sweeper"),
	}
}

// PassResult reports one pass. Failed units are listed but never abort the
// pass.
type PassResult struct {
	Scanned         int      `json:"scanned"`
	Succeeded       int      `json:"succeeded"`
	Failed          int      `json:"failed"`
	ProfilesUpdated int      `json:"profiles_updated"`
	Errors          []string `json:"errors,omitempty"`
}

// SweepResult reports one full sweep.
type SweepResult struct {
	StartedAt         time.Time `json:"started_at"`
	ExpiredCount      int       `json:"expired_count"`
	ExpiringCount     int       `json:"expiring_count"`
	NotificationsSent int       `json:"notifications_sent"`
	ProfilesUpdated   int       `json:"profiles_updated"`
	Errors            []string  `json:"errors"`
}

// Sweep runs the demotion pass then the notification pass. Both passes
// always run; per-unit failures land in the result.
func (s *Service) Sweep(ctx context.Context) *SweepResult {
	ctx, span := s.tracer.Start(ctx, "sweeper.Sweep")
	defer span.End()

	demotion := s.DemotionPass(ctx)
	notification := s.NotificationPass(ctx)

	result := &SweepResult{
		StartedAt:         requestcontext.Now(ctx),
		ExpiredCount:      demotion.Succeeded,
		ExpiringCount:     notification.Scanned,
		NotificationsSent: notification.Succeeded,
		ProfilesUpdated:   demotion.ProfilesUpdated,
		Errors:            []string{},
	}
	result.Errors = append(result.Errors, demotion.Errors...)
	result.Errors = append(result.Errors, notification.Errors...)

	s.logger.InfoContext(ctx, "sweep finished",
		"expired", result.ExpiredCount,
		"expiry_failures", demotion.Failed,
		"notified", result.NotificationsSent,
		"notify_failures", notification.Failed,
		"profiles_updated", result.ProfilesUpdated,
	)
	return result
}

// DemotionPass moves approved documents past their expiry date to expired.
// Each affected driver is one unit of work: all of the driver's overdue
// documents expire and the aggregate recomputes in a single transaction, so
// a committed expiry is never left without its profile demotion.
func (s *Service) DemotionPass(ctx context.Context) PassResult {
	start := time.Now()
	defer s.metrics.ObservePass(passDemotion, start)

	now := requestcontext.Now(ctx)
	var result PassResult

	docs, err := s.docs.ListPastExpiry(ctx, now, s.cfg.BatchLimit)
	if err != nil {
		result.Failed++
		result.Errors = append(result.Errors, "list past-expiry documents: "+err.Error())
		s.metrics.PassError(passDemotion)
		return result
	}
	result.Scanned = len(docs)

	var order []id.DriverID
	byDriver := make(map[id.DriverID][]*docmodels.DriverDocument)
	for _, doc := range docs {
		if _, seen := byDriver[doc.DriverID]; !seen {
			order = append(order, doc.DriverID)
		}
		byDriver[doc.DriverID] = append(byDriver[doc.DriverID], doc)
	}

	for _, driverID := range order {
		batch := byDriver[driverID]
		profileChanged, err := s.expireDriver(ctx, driverID, batch, now)
		if err != nil {
			result.Failed += len(batch)
			result.Errors = append(result.Errors, fmt.Sprintf("driver %s: %v", driverID.String(), err))
			s.metrics.PassError(passDemotion)
			continue
		}
		result.Succeeded += len(batch)
		if profileChanged {
			result.ProfilesUpdated++
		}
		for _, doc := range batch {
			s.metrics.Expired()
			s.audit.Emit(ctx, audit.Event{
				Category:   audit.CategoryCompliance,
				Action:     audit.ActionDocumentExpired,
				Timestamp:  now,
				DriverID:   doc.DriverID,
				DocumentID: doc.ID,
			})
			s.logger.InfoContext(ctx, "document expired",
				"document_id", doc.ID.String(),
				"driver_id", doc.DriverID.String(),
			)
		}
	}
	return result
}

func (s *Service) expireDriver(ctx context.Context, driverID id.DriverID,
	batch []*docmodels.DriverDocument, now time.Time) (bool, error) {

	var profileChanged bool
	err := s.tx.RunInTx(ctx, func(docs docstore.Store, profiles profilestore.Store) error {
		for _, stale := range batch {
			doc, err := docs.FindByID(ctx, stale.ID)
			if err != nil {
				return sweepStoreErr(err)
			}
			if err := doc.CanExpire(now); err != nil {
				return err
			}
			doc.ApplyExpiry(now)
			if err := docs.Update(ctx, doc); err != nil {
				return sweepStoreErr(err)
			}
		}
		// Losing approved documents may drop the driver below completeness.
		_, changed, err := s.verifier.RecomputeWith(ctx, docs, profiles, driverID)
		profileChanged = changed
		return err
	})
	if err != nil {
		return false, err
	}
	s.verifier.Invalidate(ctx, driverID)
	return profileChanged, nil
}

// NotificationPass delivers near-expiry notifications for approved documents
// inside the lookahead window, stamping each document only after its
// notification is acknowledged. Delivery failures leave the stamp unset so
// the next sweep retries.
func (s *Service) NotificationPass(ctx context.Context) PassResult {
	start := time.Now()
	defer s.metrics.ObservePass(passNotification, start)

	now := requestcontext.Now(ctx)
	var result PassResult

	docs, err := s.docs.ListExpiringSoon(ctx, now, now.Add(s.cfg.ExpiryLookahead), s.cfg.BatchLimit)
	if err != nil {
		result.Failed++
		result.Errors = append(result.Errors, "list expiring documents: "+err.Error())
		s.metrics.PassError(passNotification)
		return result
	}
	result.Scanned = len(docs)

	for _, doc := range docs {
		if err := s.notifyOne(ctx, doc, now); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("document %s: %v", doc.ID.String(), err))
			s.metrics.PassError(passNotification)
			continue
		}
		result.Succeeded++
		s.metrics.Notified()
	}
	return result
}

func (s *Service) notifyOne(ctx context.Context, doc *docmodels.DriverDocument, now time.Time) error {
	if doc.ExpiryDate == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "expiring document has no expiry date")
	}
	err := s.notifier.Notify(ctx, notify.Notification{
		DriverID:     doc.DriverID,
		DocumentID:   doc.ID,
		DocumentType: string(doc.Type),
		ExpiryDate:   *doc.ExpiryDate,
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "notification delivery failed")
	}
	// Stamp only after acknowledged delivery.
	if err := doc.MarkExpirationNotified(now); err != nil {
		return err
	}
	if err := s.docs.Update(ctx, doc); err != nil {
		return sweepStoreErr(err)
	}
	s.audit.Emit(ctx, audit.Event{
		Category:   audit.CategoryOperations,
		Action:     audit.ActionExpiryNotified,
		Timestamp:  now,
		DriverID:   doc.DriverID,
		DocumentID: doc.ID,
	})
	return nil
}

func sweepStoreErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "document disappeared mid-sweep")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "document store unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "update document")
	}
}
