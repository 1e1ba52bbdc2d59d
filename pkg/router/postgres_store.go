package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/notifykit/pkg/queue"
)

// PostgresBindingStore persists event bindings in the
// notification_bindings table created by the bundled migrations.
// Conditions and the retry policy override are stored as JSONB.
type PostgresBindingStore struct {
	pool *pgxpool.Pool
}

// NewPostgresBindingStore creates a Postgres-backed binding store.
func NewPostgresBindingStore(pool *pgxpool.Pool) *PostgresBindingStore {
	return &PostgresBindingStore{pool: pool}
}

const bindingColumns = `id, event_type, entity_type, template_code, conditions, delay_seconds, retry, is_active, created_at, updated_at`

func (s *PostgresBindingStore) Create(ctx context.Context, binding Binding) error {
	if err := binding.Validate(); err != nil {
		return err
	}
	if binding.ID == uuid.Nil {
		binding.ID = uuid.New()
	}

	conditions, retry, err := marshalBindingJSON(binding)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO notification_bindings (id, event_type, entity_type, template_code, conditions, delay_seconds, retry, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		binding.ID, binding.EventType, binding.EntityType, binding.TemplateCode,
		conditions, int64(binding.Delay/time.Second), retry, binding.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to create binding %s: %w", binding.ID, err)
	}
	return nil
}

func (s *PostgresBindingStore) Get(ctx context.Context, id uuid.UUID) (*Binding, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+bindingColumns+` FROM notification_bindings WHERE id = $1`, id)

	binding, err := scanBinding(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBindingNotFound
		}
		return nil, fmt.Errorf("failed to load binding %s: %w", id, err)
	}
	return binding, nil
}

func (s *PostgresBindingStore) List(ctx context.Context) ([]Binding, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+bindingColumns+` FROM notification_bindings ORDER BY event_type, entity_type, created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list bindings: %w", err)
	}
	defer rows.Close()

	return collectBindings(rows)
}

func (s *PostgresBindingStore) Update(ctx context.Context, binding Binding) (*Binding, error) {
	if err := binding.Validate(); err != nil {
		return nil, err
	}

	conditions, retry, err := marshalBindingJSON(binding)
	if err != nil {
		return nil, err
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE notification_bindings
		SET event_type = $2, entity_type = $3, template_code = $4, conditions = $5,
		    delay_seconds = $6, retry = $7, is_active = $8, updated_at = now()
		WHERE id = $1
		RETURNING `+bindingColumns,
		binding.ID, binding.EventType, binding.EntityType, binding.TemplateCode,
		conditions, int64(binding.Delay/time.Second), retry, binding.IsActive,
	)

	updated, err := scanBinding(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBindingNotFound
		}
		return nil, fmt.Errorf("failed to update binding %s: %w", binding.ID, err)
	}
	return updated, nil
}

func (s *PostgresBindingStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM notification_bindings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete binding %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBindingNotFound
	}
	return nil
}

func (s *PostgresBindingStore) FindActive(ctx context.Context, eventType, entityType string) ([]Binding, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+bindingColumns+` FROM notification_bindings
		WHERE event_type = $1 AND entity_type = $2 AND is_active = TRUE
		ORDER BY created_at`,
		eventType, entityType,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find bindings for %s/%s: %w", eventType, entityType, err)
	}
	defer rows.Close()

	return collectBindings(rows)
}

func marshalBindingJSON(binding Binding) (conditions, retry []byte, err error) {
	conditions, err = json.Marshal(binding.Conditions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal conditions: %w", err)
	}
	if binding.Retry != nil {
		retry, err = json.Marshal(binding.Retry)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal retry policy: %w", err)
		}
	}
	return conditions, retry, nil
}

func scanBinding(row pgx.Row) (*Binding, error) {
	var (
		binding      Binding
		conditions   []byte
		retry        []byte
		delaySeconds int64
	)
	err := row.Scan(
		&binding.ID, &binding.EventType, &binding.EntityType, &binding.TemplateCode,
		&conditions, &delaySeconds, &retry, &binding.IsActive,
		&binding.CreatedAt, &binding.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	binding.Delay = time.Duration(delaySeconds) * time.Second
	if len(conditions) > 0 {
		if err := json.Unmarshal(conditions, &binding.Conditions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal conditions: %w", err)
		}
	}
	if len(retry) > 0 {
		var policy queue.RetryPolicy
		if err := json.Unmarshal(retry, &policy); err != nil {
			return nil, fmt.Errorf("failed to unmarshal retry policy: %w", err)
		}
		binding.Retry = &policy
	}
	return &binding, nil
}

func collectBindings(rows pgx.Rows) ([]Binding, error) {
	var out []Binding
	for rows.Next() {
		binding, err := scanBinding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan binding: %w", err)
		}
		out = append(out, *binding)
	}
	return out, rows.Err()
}
