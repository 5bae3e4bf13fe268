// Package service implements the document registry operations: issuing
// upload grants, reading documents back with time-boxed download URLs, and
// applying admin review decisions.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"fleetdocs/internal/audit"
	"fleetdocs/internal/document/metrics"
	"fleetdocs/internal/document/models"
	docstore "fleetdocs/internal/document/store"
	"fleetdocs/internal/platform/middleware"
	profilestore "fleetdocs/internal/profile/store"
	"fleetdocs/internal/storage"
	verification "fleetdocs/internal/verification/service"
	id "fleetdocs/pkg/domain"
	dErrors "fleetdocs/pkg/domain-errors"
	"fleetdocs/pkg/platform/sentinel"
	"fleetdocs/pkg/requestcontext"
)

// Config carries the registry's operational limits.
type Config struct {
	UploadGrantTTL time.Duration
	ReadGrantTTL   time.Duration
	MaxUploadBytes int64
	Tenant         id.TenantID
}

// Service is the document registry.
type Service struct {
	docs     docstore.Store
	tx       StoreTx
	objects  storage.ObjectStore
	verifier *verification.Service
	audit    *audit.Publisher

	cfg     Config
	metrics *metrics.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
}

func New(docs docstore.Store, tx StoreTx, objects storage.ObjectStore, verifier *verification.Service,
	auditor *audit.Publisher, cfg Config, m *metrics.Metrics, logger *slog.Logger) *Service {

	return &Service{
		docs:     docs,
		tx:       tx,
		objects:  objects,
		verifier: verifier,
		audit:    auditor,
		cfg:      cfg,
		metrics:  m,
		logger:   logger,
		tracer:   otel.Tracer("fleetdocs/document"),
	}
}

// UploadGrant is the response to a grant request: a registry record plus a
// write-once URL the client PUTs the bytes to.
type UploadGrant struct {
	DocumentID id.DocumentID     `json:"document_id"`
	UploadURL  string            `json:"upload_url"`
	Method     string            `json:"method"`
	Headers    map[string]string `json:"headers"`
	StorageKey string            `json:"storage_key"`
	ExpiresAt  time.Time         `json:"expires_at"`
	MaxBytes   int64             `json:"max_bytes"`
}

// CreateUploadGrant validates the request, creates the pending registry row
// and returns the pre-signed upload URL. The document enters the lifecycle in
// status pending whether or not the client ever completes the upload.
func (s *Service) CreateUploadGrant(ctx context.Context, driverID id.DriverID, req models.UploadGrantRequest) (*UploadGrant, error) {
	ctx, span := s.tracer.Start(ctx, "document.CreateUploadGrant")
	defer span.End()

	if err := authorizeDriverAccess(ctx, driverID); err != nil {
		return nil, err
	}
	if err := req.Validate(s.cfg.MaxUploadBytes); err != nil {
		return nil, err
	}
	docType, err := models.ParseDocumentType(req.DocumentType)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	key := storage.BuildKey(s.cfg.Tenant, driverID, req.DocumentType, req.FileName, now)
	uploadURL, err := s.objects.PresignUpload(ctx, key, req.ContentType, s.cfg.UploadGrantTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "object storage unavailable")
	}

	doc, err := models.NewPendingDocument(id.DocumentID(uuid.New()), driverID, docType,
		key, s.objects.Bucket(), req.FileName, req.ContentType, req.FileSize, now)
	if err != nil {
		return nil, err
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, storeErr(err, "document")
	}

	s.metrics.GrantIssued(req.DocumentType)
	s.emitAudit(ctx, audit.ActionDocumentSubmitted, doc, requestcontext.UserID(ctx).String(), "")
	s.logger.InfoContext(ctx, "upload grant issued",
		"document_id", doc.ID.String(),
		"driver_id", driverID.String(),
		"document_type", req.DocumentType,
	)

	return &UploadGrant{
		DocumentID: doc.ID,
		UploadURL:  uploadURL,
		Method:     "PUT",
		Headers:    map[string]string{"Content-Type": req.ContentType},
		StorageKey: key,
		ExpiresAt:  now.Add(s.cfg.UploadGrantTTL),
		MaxBytes:   s.cfg.MaxUploadBytes,
	}, nil
}

// DocumentView is a document plus a time-boxed download URL for its bytes.
type DocumentView struct {
	*models.DriverDocument
	DownloadURL       string     `json:"download_url"`
	DownloadExpiresAt *time.Time `json:"download_expires_at"`
}

// Get loads one document with a read grant for the stored bytes. Owners and
// admins only.
func (s *Service) Get(ctx context.Context, docID id.DocumentID) (*DocumentView, error) {
	ctx, span := s.tracer.Start(ctx, "document.Get")
	defer span.End()

	doc, err := s.docs.FindByID(ctx, docID)
	if err != nil {
		return nil, storeErr(err, "document")
	}
	if err := authorizeDriverAccess(ctx, doc.DriverID); err != nil {
		return nil, err
	}

	url, err := s.objects.PresignDownload(ctx, doc.StorageKey, s.cfg.ReadGrantTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "object storage unavailable")
	}
	expires := requestcontext.Now(ctx).Add(s.cfg.ReadGrantTTL)
	s.metrics.ReadGrantIssued()
	return &DocumentView{
		DriverDocument:    doc,
		DownloadURL:       url,
		DownloadExpiresAt: &expires,
	}, nil
}

// ListByDriver returns the driver's documents, newest first.
func (s *Service) ListByDriver(ctx context.Context, driverID id.DriverID) ([]*models.DriverDocument, error) {
	if err := authorizeDriverAccess(ctx, driverID); err != nil {
		return nil, err
	}
	docs, err := s.docs.ListByDriver(ctx, driverID)
	if err != nil {
		return nil, storeErr(err, "documents")
	}
	return docs, nil
}

// ReviewQueue returns the oldest documents waiting in the given status.
// Admin routes only; the default queue is pending.
func (s *Service) ReviewQueue(ctx context.Context, rawStatus string, limit int) ([]*models.DriverDocument, error) {
	status := models.StatusPending
	if rawStatus != "" {
		status = models.DocumentStatus(rawStatus)
		if !status.Valid() {
			return nil, dErrors.New(dErrors.CodeBadRequest, "unknown status: "+rawStatus)
		}
	}
	docs, err := s.docs.ListByStatus(ctx, status, limit)
	if err != nil {
		return nil, storeErr(err, "documents")
	}
	return docs, nil
}

// ReviewResult is the review response: the updated document plus the
// driver's verification aggregate after the decision.
type ReviewResult struct {
	Document     *models.DriverDocument `json:"document"`
	Verification *verification.Status   `json:"verification"`
}

// Review applies an admin decision. The status transition, the optional
// verification metadata and the aggregate recomputation commit atomically;
// concurrent reviews of the same document serialize on the row lock.
func (s *Service) Review(ctx context.Context, docID id.DocumentID, req models.ReviewRequest) (*ReviewResult, error) {
	ctx, span := s.tracer.Start(ctx, "document.Review")
	defer span.End()

	target, fields, err := req.Fields()
	if err != nil {
		return nil, err
	}
	reviewer := requestcontext.UserID(ctx)
	if reviewer.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "reviewer identity missing")
	}
	now := requestcontext.Now(ctx)

	var (
		reviewed  *models.DriverDocument
		aggregate *verification.Status
	)
	err = s.tx.RunInTx(ctx, func(docs docstore.Store, profiles profilestore.Store) error {
		doc, err := docs.FindByID(ctx, docID)
		if err != nil {
			return storeErr(err, "document")
		}
		if err := doc.CanReview(target, fields); err != nil {
			return err
		}
		doc.ApplyReview(reviewer, target, fields, now)
		if err := docs.Update(ctx, doc); err != nil {
			return storeErr(err, "document")
		}
		aggregate, _, err = s.verifier.RecomputeWith(ctx, docs, profiles, doc.DriverID)
		if err != nil {
			return err
		}
		reviewed = doc
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.verifier.Invalidate(ctx, reviewed.DriverID)
	s.metrics.ReviewApplied(string(reviewed.Status))
	switch reviewed.Status {
	case models.StatusApproved:
		s.emitAudit(ctx, audit.ActionDocumentApproved, reviewed, reviewer.String(), "")
	case models.StatusRejected:
		s.emitAudit(ctx, audit.ActionDocumentRejected, reviewed, reviewer.String(), *reviewed.RejectionReason)
	}
	s.logger.InfoContext(ctx, "document reviewed",
		"document_id", reviewed.ID.String(),
		"driver_id", reviewed.DriverID.String(),
		"status", string(reviewed.Status),
		"reviewed_by", reviewer.String(),
	)
	return &ReviewResult{Document: reviewed, Verification: aggregate}, nil
}

func (s *Service) emitAudit(ctx context.Context, action audit.Action, doc *models.DriverDocument, actor, reason string) {
	client := requestcontext.GetClientInfo(ctx)
	s.audit.Emit(ctx, audit.Event{
		Category:   audit.CategoryCompliance,
		Action:     action,
		Timestamp:  requestcontext.Now(ctx),
		DriverID:   doc.DriverID,
		DocumentID: doc.ID,
		ActorID:    actor,
		Reason:     reason,
		RequestID:  requestcontext.RequestID(ctx),
		IPAddress:  client.IPAddress,
		UserAgent:  client.UserAgent,
	})
}

// authorizeDriverAccess lets a driver at their own documents and admins at
// everything. The check runs in the service so non-HTTP callers hit it too.
func authorizeDriverAccess(ctx context.Context, driverID id.DriverID) error {
	if requestcontext.HasRole(ctx, middleware.AdminRole) {
		return nil
	}
	caller := requestcontext.UserID(ctx)
	if caller.IsZero() {
		return dErrors.New(dErrors.CodeUnauthorized, "caller identity missing")
	}
	if caller.String() != driverID.String() {
		return dErrors.New(dErrors.CodeForbidden, "callers may only access their own documents")
	}
	return nil
}

func storeErr(err error, what string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, what+" not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, what+" was modified concurrently")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(err, dErrors.CodeConflict, what+" is in a conflicting state")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, what+" store unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "access "+what)
	}
}
