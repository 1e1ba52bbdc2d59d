package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/notifykit/pkg/notify"
)

// PostgresStorage persists notifications and preferences in the
// notifications and notification_preferences tables created by the
// bundled migrations.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage creates a Postgres-backed notification storage.
func NewPostgresStorage(pool *pgxpool.Pool) *PostgresStorage {
	return &PostgresStorage{pool: pool}
}

const notificationColumns = `id, recipient_id, type, title, content, priority, is_read, read_at, metadata, created_at`

func (s *PostgresStorage) Create(ctx context.Context, notif Notification) error {
	if notif.ID == uuid.Nil {
		return ErrIDEmpty
	}
	if notif.RecipientID == "" {
		return ErrRecipientEmpty
	}

	metadata, err := json.Marshal(notif.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO notifications (id, recipient_id, type, title, content, priority, is_read, read_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		notif.ID, notif.RecipientID, string(notif.Type), notif.Title, notif.Content,
		int16(notif.Priority), notif.IsRead, notif.ReadAt, metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification %s: %w", notif.ID, err)
	}
	return nil
}

func (s *PostgresStorage) Get(ctx context.Context, recipientID string, id uuid.UUID) (*Notification, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE recipient_id = $1 AND id = $2`,
		recipientID, id)

	notif, err := scanNotification(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load notification %s: %w", id, err)
	}
	return notif, nil
}

func (s *PostgresStorage) List(ctx context.Context, recipientID string, opts ListOptions) ([]Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE recipient_id = $1`
	args := []any{recipientID}

	if opts.OnlyUnread {
		query += " AND is_read = FALSE"
	}
	if len(opts.Types) > 0 {
		types := make([]string, len(opts.Types))
		for i, t := range opts.Types {
			types[i] = string(t)
		}
		args = append(args, types)
		query += fmt.Sprintf(" AND type = ANY($%d)", len(args))
	}
	if opts.Since != nil {
		args = append(args, *opts.Since)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	query += " ORDER BY created_at DESC"
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		notif, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, *notif)
	}
	return out, rows.Err()
}

func (s *PostgresStorage) MarkRead(ctx context.Context, recipientID string, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE, read_at = now()
		WHERE recipient_id = $1 AND id = ANY($2) AND is_read = FALSE`,
		recipientID, ids,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

func (s *PostgresStorage) MarkAllRead(ctx context.Context, recipientID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE, read_at = now()
		WHERE recipient_id = $1 AND is_read = FALSE`,
		recipientID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark all notifications read: %w", err)
	}
	return nil
}

func (s *PostgresStorage) Delete(ctx context.Context, recipientID string, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`DELETE FROM notifications WHERE recipient_id = $1 AND id = ANY($2)`,
		recipientID, ids,
	)
	if err != nil {
		return fmt.Errorf("failed to delete notifications: %w", err)
	}
	return nil
}

func (s *PostgresStorage) CountUnread(ctx context.Context, recipientID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM notifications WHERE recipient_id = $1 AND is_read = FALSE`,
		recipientID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return n, nil
}

func (s *PostgresStorage) GetPreferences(ctx context.Context, recipientID string) (Preferences, error) {
	if recipientID == "" {
		return Preferences{}, ErrRecipientEmpty
	}

	var (
		prefs    Preferences
		channels []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT recipient_id, channels, updated_at FROM notification_preferences WHERE recipient_id = $1`,
		recipientID,
	).Scan(&prefs.RecipientID, &channels, &prefs.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DefaultPreferences(recipientID), nil
		}
		return Preferences{}, fmt.Errorf("failed to load preferences for %q: %w", recipientID, err)
	}

	if err := json.Unmarshal(channels, &prefs.Channels); err != nil {
		return Preferences{}, fmt.Errorf("failed to unmarshal preference channels: %w", err)
	}
	return prefs, nil
}

func (s *PostgresStorage) UpdatePreferences(ctx context.Context, prefs Preferences) (Preferences, error) {
	if prefs.RecipientID == "" {
		return Preferences{}, ErrRecipientEmpty
	}

	channels, err := json.Marshal(prefs.Channels)
	if err != nil {
		return Preferences{}, fmt.Errorf("failed to marshal preference channels: %w", err)
	}

	err = s.pool.QueryRow(ctx, `
		INSERT INTO notification_preferences (recipient_id, channels)
		VALUES ($1, $2)
		ON CONFLICT (recipient_id) DO UPDATE SET channels = $2, updated_at = now()
		RETURNING updated_at`,
		prefs.RecipientID, channels,
	).Scan(&prefs.UpdatedAt)
	if err != nil {
		return Preferences{}, fmt.Errorf("failed to update preferences for %q: %w", prefs.RecipientID, err)
	}
	return prefs, nil
}

func scanNotification(row pgx.Row) (*Notification, error) {
	var (
		notif    Notification
		typ      string
		priority int16
		metadata []byte
	)
	err := row.Scan(
		&notif.ID, &notif.RecipientID, &typ, &notif.Title, &notif.Content,
		&priority, &notif.IsRead, &notif.ReadAt, &metadata, &notif.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	notif.Type = Type(typ)
	notif.Priority = notify.Priority(priority)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &notif.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &notif, nil
}
