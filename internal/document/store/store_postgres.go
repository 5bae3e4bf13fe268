package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"fleetdocs/internal/document/models"
	id "fleetdocs/pkg/domain"
	"fleetdocs/pkg/platform/sentinel"
)

// querier is satisfied by *sql.DB and *sql.Tx so the same queries serve both
// pool-scoped reads and transaction-scoped mutations.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres persists documents in the driver_documents table.
type Postgres struct {
	q querier
	// inTx switches FindByID to SELECT ... FOR UPDATE so concurrent reviews
	// of the same document serialize on the row lock.
	inTx bool
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{q: db}
}

// NewPostgresTx binds the store to an open transaction.
func NewPostgresTx(tx *sql.Tx) *Postgres {
	return &Postgres{q: tx, inTx: true}
}

const documentColumns = `
	id, driver_id, document_type, document_category, status,
	storage_key, bucket, file_name, file_size, content_type,
	document_number, issuing_authority, issue_date, expiry_date,
	reviewed_by, reviewed_at, rejection_reason, notes,
	expiration_notified_at, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, doc *models.DriverDocument) error {
	if err := doc.CheckInvariants(); err != nil {
		return err
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO driver_documents (`+documentColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`,
		doc.ID.String(), doc.DriverID.String(), doc.Type, doc.Category, doc.Status,
		doc.StorageKey, doc.Bucket, doc.FileName, doc.FileSize, doc.ContentType,
		doc.DocumentNumber, doc.IssuingAuthority, nullTime(doc.IssueDate), nullTime(doc.ExpiryDate),
		nullUserID(doc.ReviewedBy), nullTime(doc.ReviewedAt), doc.RejectionReason, doc.Notes,
		nullTime(doc.ExpirationNotifiedAt), doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, docID id.DocumentID) (*models.DriverDocument, error) {
	query := `SELECT ` + documentColumns + ` FROM driver_documents WHERE id = $1`
	if s.inTx {
		query += ` FOR UPDATE`
	}
	doc, err := scanDocument(s.q.QueryRowContext(ctx, query, docID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find document: %w", err)
	}
	return doc, nil
}

func (s *Postgres) Update(ctx context.Context, doc *models.DriverDocument) error {
	if err := doc.CheckInvariants(); err != nil {
		return err
	}
	res, err := s.q.ExecContext(ctx, `
		UPDATE driver_documents SET
			status = $2,
			document_number = $3, issuing_authority = $4,
			issue_date = $5, expiry_date = $6,
			reviewed_by = $7, reviewed_at = $8,
			rejection_reason = $9, notes = $10,
			expiration_notified_at = $11, updated_at = $12
		WHERE id = $1`,
		doc.ID.String(),
		doc.Status,
		doc.DocumentNumber, doc.IssuingAuthority,
		nullTime(doc.IssueDate), nullTime(doc.ExpiryDate),
		nullUserID(doc.ReviewedBy), nullTime(doc.ReviewedAt),
		doc.RejectionReason, doc.Notes,
		nullTime(doc.ExpirationNotifiedAt), doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) ListByDriver(ctx context.Context, driverID id.DriverID) ([]*models.DriverDocument, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+documentColumns+`
		FROM driver_documents
		WHERE driver_id = $1
		ORDER BY created_at DESC`,
		driverID.String())
	if err != nil {
		return nil, fmt.Errorf("list documents by driver: %w", err)
	}
	return collectDocuments(rows)
}

func (s *Postgres) ListByStatus(ctx context.Context, status models.DocumentStatus, limit int) ([]*models.DriverDocument, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+documentColumns+`
		FROM driver_documents
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2`,
		status, positiveLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list documents by status: %w", err)
	}
	return collectDocuments(rows)
}

func (s *Postgres) ListPastExpiry(ctx context.Context, asOf time.Time, limit int) ([]*models.DriverDocument, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+documentColumns+`
		FROM driver_documents
		WHERE status = $1 AND expiry_date IS NOT NULL AND expiry_date < $2
		ORDER BY expiry_date ASC
		LIMIT $3`,
		models.StatusApproved, asOf, positiveLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list past-expiry documents: %w", err)
	}
	return collectDocuments(rows)
}

func (s *Postgres) ListExpiringSoon(ctx context.Context, from, until time.Time, limit int) ([]*models.DriverDocument, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+documentColumns+`
		FROM driver_documents
		WHERE status = $1
		  AND expiry_date IS NOT NULL
		  AND expiry_date >= $2 AND expiry_date <= $3
		  AND expiration_notified_at IS NULL
		ORDER BY expiry_date ASC
		LIMIT $4`,
		models.StatusApproved, from, until, positiveLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list expiring documents: %w", err)
	}
	return collectDocuments(rows)
}

func positiveLimit(limit int) int {
	if limit <= 0 {
		return 1000
	}
	return limit
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.DriverDocument, error) {
	var (
		doc                      models.DriverDocument
		docID, driverID          uuid.UUID
		number, authority        sql.NullString
		issueDate, expiryDate    sql.NullTime
		reviewedBy               sql.NullString
		reviewedAt, notifiedAt   sql.NullTime
		rejectionReason, notes   sql.NullString
	)
	err := row.Scan(
		&docID, &driverID, &doc.Type, &doc.Category, &doc.Status,
		&doc.StorageKey, &doc.Bucket, &doc.FileName, &doc.FileSize, &doc.ContentType,
		&number, &authority, &issueDate, &expiryDate,
		&reviewedBy, &reviewedAt, &rejectionReason, &notes,
		&notifiedAt, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	doc.ID = id.DocumentID(docID)
	doc.DriverID = id.DriverID(driverID)
	doc.DocumentNumber = stringPtr(number)
	doc.IssuingAuthority = stringPtr(authority)
	doc.IssueDate = timePtr(issueDate)
	doc.ExpiryDate = timePtr(expiryDate)
	doc.ReviewedAt = timePtr(reviewedAt)
	doc.RejectionReason = stringPtr(rejectionReason)
	doc.Notes = stringPtr(notes)
	doc.ExpirationNotifiedAt = timePtr(notifiedAt)
	if reviewedBy.Valid {
		parsed, err := id.ParseUserID(reviewedBy.String)
		if err != nil {
			return nil, fmt.Errorf("scan reviewed_by: %w", err)
		}
		doc.ReviewedBy = &parsed
	}
	return &doc, nil
}

func collectDocuments(rows *sql.Rows) ([]*models.DriverDocument, error) {
	defer rows.Close()
	var docs []*models.DriverDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullUserID(u *id.UserID) sql.NullString {
	if u == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: u.String(), Valid: true}
}
