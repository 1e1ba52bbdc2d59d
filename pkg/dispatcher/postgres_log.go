package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/notifykit/pkg/notify"
)

// PostgresLogStore persists the delivery log in the delivery_log table
// created by the bundled migrations.
type PostgresLogStore struct {
	pool *pgxpool.Pool
}

// NewPostgresLogStore creates a Postgres-backed delivery log.
func NewPostgresLogStore(pool *pgxpool.Pool) *PostgresLogStore {
	return &PostgresLogStore{pool: pool}
}

const logColumns = `id, entry_id, template_code, recipient_id, contact, channel, subject, body, outcome, error, attempted_at, delivered_at`

func (s *PostgresLogStore) Append(ctx context.Context, entry LogEntry) error {
	if entry.ID == uuid.Nil {
		return ErrLogIDEmpty
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO delivery_log (id, entry_id, template_code, recipient_id, contact, channel, subject, body, outcome, error, attempted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, coalesce($11, now()))`,
		entry.ID, entry.EntryID, entry.TemplateCode, entry.RecipientID, entry.Contact,
		string(entry.Channel), entry.Subject, entry.Body, string(entry.Outcome), entry.Error,
		nullableTime(entry.AttemptedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to append delivery log entry %s: %w", entry.ID, err)
	}
	return nil
}

func (s *PostgresLogStore) MarkDelivered(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE delivery_log SET outcome = 'delivered', delivered_at = now()
		WHERE id = $1 AND outcome = 'sent'`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark log entry %s delivered: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM delivery_log WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to mark log entry %s delivered: %w", id, err)
		}
		if exists {
			return ErrLogNotSent
		}
		return ErrLogNotFound
	}
	return nil
}

func (s *PostgresLogStore) List(ctx context.Context, filter LogFilter) ([]LogEntry, error) {
	query := `SELECT ` + logColumns + ` FROM delivery_log WHERE TRUE`
	args := []any{}

	if filter.TemplateCode != "" {
		args = append(args, filter.TemplateCode)
		query += fmt.Sprintf(" AND template_code = $%d", len(args))
	}
	if filter.RecipientID != "" {
		args = append(args, filter.RecipientID)
		query += fmt.Sprintf(" AND recipient_id = $%d", len(args))
	}
	if filter.Channel != "" {
		args = append(args, string(filter.Channel))
		query += fmt.Sprintf(" AND channel = $%d", len(args))
	}
	if filter.Outcome != "" {
		args = append(args, string(filter.Outcome))
		query += fmt.Sprintf(" AND outcome = $%d", len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		query += fmt.Sprintf(" AND attempted_at >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += fmt.Sprintf(" AND attempted_at <= $%d", len(args))
	}
	query += " ORDER BY attempted_at DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery log: %w", err)
	}
	defer rows.Close()

	var out []LogEntry
	for rows.Next() {
		var (
			logEntry         LogEntry
			channel, outcome string
		)
		err := rows.Scan(
			&logEntry.ID, &logEntry.EntryID, &logEntry.TemplateCode, &logEntry.RecipientID,
			&logEntry.Contact, &channel, &logEntry.Subject, &logEntry.Body,
			&outcome, &logEntry.Error, &logEntry.AttemptedAt, &logEntry.DeliveredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan delivery log entry: %w", err)
		}
		logEntry.Channel = notify.Channel(channel)
		logEntry.Outcome = Outcome(outcome)
		out = append(out, logEntry)
	}
	return out, rows.Err()
}

// nullableTime maps the zero time to NULL so the database default
// applies.
func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
