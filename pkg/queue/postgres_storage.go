package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/notifykit/pkg/notify"
)

// PostgresStorage persists delivery entries in the delivery_queue table
// created by the bundled migrations. ClaimDue relies on FOR UPDATE SKIP
// LOCKED so concurrent workers never block each other or double-claim.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage creates a Postgres-backed queue storage.
func NewPostgresStorage(pool *pgxpool.Pool) *PostgresStorage {
	return &PostgresStorage{pool: pool}
}

const entryColumns = `id, template_code, recipient_id, channel, priority, status, attempts, retry_policy, scheduled_at, last_attempt_at, next_retry_at, locked_until, locked_by, payload, error, created_at`

// CreateEntry implements EnqueuerRepository.
func (s *PostgresStorage) CreateEntry(ctx context.Context, entry Entry) error {
	retry, err := json.Marshal(entry.Retry)
	if err != nil {
		return fmt.Errorf("failed to marshal retry policy: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO delivery_queue (id, template_code, recipient_id, channel, priority, status, attempts, retry_policy, scheduled_at, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		entry.ID, entry.TemplateCode, entry.RecipientID, string(entry.Channel),
		int16(entry.Priority), string(entry.Status), entry.Attempts, retry,
		entry.ScheduledAt, entry.Payload, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create delivery entry %s: %w", entry.ID, err)
	}
	return nil
}

// CancelEntry implements EnqueuerRepository.
func (s *PostgresStorage) CancelEntry(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM delivery_queue WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return fmt.Errorf("failed to cancel delivery entry %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM delivery_queue WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to cancel delivery entry %s: %w", id, err)
		}
		if exists {
			return ErrEntryNotPending
		}
		return ErrEntryNotFound
	}
	return nil
}

// GetEntry implements Repository.
func (s *PostgresStorage) GetEntry(ctx context.Context, id uuid.UUID) (Entry, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM delivery_queue WHERE id = $1`, id)

	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrEntryNotFound
		}
		return Entry{}, fmt.Errorf("failed to load delivery entry %s: %w", id, err)
	}
	return entry, nil
}

// PendingCount implements Repository.
func (s *PostgresStorage) PendingCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM delivery_queue WHERE status = 'pending'`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending entries: %w", err)
	}
	return n, nil
}

// ClaimDue implements WorkerRepository. The inner SELECT picks due
// pending entries plus expired-lease processing entries in priority
// order; SKIP LOCKED keeps racing workers on disjoint rows.
func (s *PostgresStorage) ClaimDue(ctx context.Context, workerID uuid.UUID, limit int, lockFor time.Duration) ([]Entry, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, `
		UPDATE delivery_queue
		SET status = 'processing', locked_until = now() + $3, locked_by = $2
		WHERE id IN (
			SELECT id FROM delivery_queue
			WHERE (status = 'pending'
			       AND scheduled_at <= now()
			       AND (next_retry_at IS NULL OR next_retry_at <= now()))
			   OR (status = 'processing' AND locked_until < now())
			ORDER BY priority DESC, scheduled_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+entryColumns,
		limit, workerID, lockFor,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to claim delivery entries: %w", err)
	}
	defer rows.Close()

	var claimed []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan delivery entry: %w", err)
		}
		claimed = append(claimed, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(claimed) == 0 {
		return nil, ErrNoEntryToClaim
	}
	return claimed, nil
}

// ExtendLease implements WorkerRepository.
func (s *PostgresStorage) ExtendLease(ctx context.Context, id, workerID uuid.UUID, lockFor time.Duration) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE delivery_queue
		SET locked_until = now() + $3
		WHERE id = $1 AND status = 'processing' AND locked_by = $2`,
		id, workerID, lockFor,
	)
	if err != nil {
		return fmt.Errorf("failed to extend lease on %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotProcessing
	}
	return nil
}

// MarkSent implements WorkerRepository.
func (s *PostgresStorage) MarkSent(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE delivery_queue
		SET status = 'sent', attempts = attempts + 1, last_attempt_at = now(),
		    next_retry_at = NULL, locked_until = NULL, locked_by = NULL, error = NULL
		WHERE id = $1 AND status = 'processing'`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark delivery entry %s sent: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotProcessing
	}
	return nil
}

// Reschedule implements WorkerRepository.
func (s *PostgresStorage) Reschedule(ctx context.Context, id uuid.UUID, errMsg string, nextRetryAt time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE delivery_queue
		SET status = 'pending', attempts = attempts + 1, last_attempt_at = now(),
		    next_retry_at = $2, locked_until = NULL, locked_by = NULL, error = $3
		WHERE id = $1 AND status = 'processing'`,
		id, nextRetryAt, errMsg,
	)
	if err != nil {
		return fmt.Errorf("failed to reschedule delivery entry %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotProcessing
	}
	return nil
}

// MarkFailed implements WorkerRepository.
func (s *PostgresStorage) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE delivery_queue
		SET status = 'failed', attempts = attempts + 1, last_attempt_at = now(),
		    next_retry_at = NULL, locked_until = NULL, locked_by = NULL, error = $2
		WHERE id = $1 AND status = 'processing'`,
		id, errMsg,
	)
	if err != nil {
		return fmt.Errorf("failed to mark delivery entry %s failed: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotProcessing
	}
	return nil
}

func scanEntry(row pgx.Row) (Entry, error) {
	var (
		entry             Entry
		channel, status   string
		priority          int16
		retry             []byte
		lockedBy          *uuid.UUID
		errMsg            *string
		lastAt, nextAt    *time.Time
		lockedUntil       *time.Time
	)
	err := row.Scan(
		&entry.ID, &entry.TemplateCode, &entry.RecipientID, &channel, &priority,
		&status, &entry.Attempts, &retry, &entry.ScheduledAt,
		&lastAt, &nextAt, &lockedUntil, &lockedBy,
		&entry.Payload, &errMsg, &entry.CreatedAt,
	)
	if err != nil {
		return Entry{}, err
	}

	entry.Channel = notify.Channel(channel)
	entry.Priority = notify.Priority(priority)
	entry.Status = Status(status)
	entry.LastAttemptAt = lastAt
	entry.NextRetryAt = nextAt
	entry.LockedUntil = lockedUntil
	entry.LockedBy = lockedBy
	entry.Error = errMsg
	if err := json.Unmarshal(retry, &entry.Retry); err != nil {
		return Entry{}, fmt.Errorf("failed to unmarshal retry policy: %w", err)
	}
	return entry, nil
}
