package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "fleetdocs/pkg/domain"
)

// PostgresStore persists audit events in the audit_events table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events
			(category, action, driver_id, document_id, actor_id, reason, request_id, ip_address, user_agent, occurred_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		event.Category, event.Action,
		nullID(uuid.UUID(event.DriverID)), nullID(uuid.UUID(event.DocumentID)),
		event.ActorID, event.Reason, event.RequestID, event.IPAddress, event.UserAgent,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByDriver(ctx context.Context, driverID id.DriverID) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, action, driver_id, document_id, actor_id, reason, request_id, ip_address, user_agent, occurred_at
		FROM audit_events
		WHERE driver_id = $1
		ORDER BY occurred_at ASC`,
		driverID.String())
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e          Event
			driver     sql.NullString
			document   sql.NullString
		)
		if err := rows.Scan(&e.Category, &e.Action, &driver, &document,
			&e.ActorID, &e.Reason, &e.RequestID, &e.IPAddress, &e.UserAgent, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		if driver.Valid {
			if parsed, err := uuid.Parse(driver.String); err == nil {
				e.DriverID = id.DriverID(parsed)
			}
		}
		if document.Valid {
			if parsed, err := uuid.Parse(document.String); err == nil {
				e.DocumentID = id.DocumentID(parsed)
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func nullID(u uuid.UUID) sql.NullString {
	if u == uuid.Nil {
		return sql.NullString{}
	}
	return sql.NullString{String: u.String(), Valid: true}
}
