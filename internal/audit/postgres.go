package audit

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps events in the audit_events table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Insert(ctx context.Context, event *Event) error {
	metadataJSON, err := encodeMetadata(event.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO audit_events (
			id, action, status, subject, ip_address, user_agent, request_id,
			metadata, error_message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = s.pool.Exec(ctx, query,
		event.ID,
		event.Action,
		event.Status,
		event.Subject,
		event.IPAddress,
		event.UserAgent,
		event.RequestID,
		metadataJSON,
		event.ErrorMessage,
		event.CreatedAt,
	)
	return err
}

func (s *PostgresStore) Query(ctx context.Context, filter QueryFilter) ([]*Event, error) {
	where, args := filter.whereClause()
	query := `
		SELECT id, action, status, subject, ip_address, user_agent, request_id,
		       metadata, error_message, created_at
		FROM audit_events` + where

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []*Event{}
	for rows.Next() {
		event := &Event{}
		var metadataJSON []byte

		err := rows.Scan(
			&event.ID,
			&event.Action,
			&event.Status,
			&event.Subject,
			&event.IPAddress,
			&event.UserAgent,
			&event.RequestID,
			&metadataJSON,
			&event.ErrorMessage,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &event.Metadata); err != nil {
				return nil, err
			}
		}

		events = append(events, event)
	}

	return events, rows.Err()
}
