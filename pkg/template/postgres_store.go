package template

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/notifykit/pkg/notify"
	"github.com/dmitrymomot/notifykit/pkg/pg"
)

// PostgresStore persists templates in the notification_templates table
// created by the bundled migrations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed template store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const templateColumns = `code, name, description, category, priority, channels, variables, content, version, is_active, is_system, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, tmpl Template) error {
	channels, variables, content, err := marshalTemplateFields(tmpl)
	if err != nil {
		return err
	}

	if tmpl.Version == 0 {
		tmpl.Version = 1
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO notification_templates (code, name, description, category, priority, channels, variables, content, version, is_active, is_system)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		tmpl.Code, tmpl.Name, tmpl.Description, tmpl.Category, int16(tmpl.Priority),
		channels, variables, content, tmpl.Version, tmpl.IsActive, tmpl.IsSystem,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %q", ErrAlreadyExists, tmpl.Code)
		}
		return fmt.Errorf("failed to create template %q: %w", tmpl.Code, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, code string) (*Template, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+templateColumns+` FROM notification_templates WHERE code = $1`, code)

	tmpl, err := scanTemplate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, code)
		}
		return nil, fmt.Errorf("failed to load template %q: %w", code, err)
	}
	return tmpl, nil
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]Template, error) {
	query := `SELECT ` + templateColumns + ` FROM notification_templates WHERE TRUE`
	args := []any{}

	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		query += fmt.Sprintf(" AND is_active = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		query += fmt.Sprintf(" AND (code ILIKE $%d OR name ILIKE $%d OR description ILIKE $%d)", n, n, n)
	}
	query += " ORDER BY category, name"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var out []Template
	for rows.Next() {
		tmpl, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		out = append(out, *tmpl)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, tmpl Template) (*Template, error) {
	channels, variables, content, err := marshalTemplateFields(tmpl)
	if err != nil {
		return nil, err
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE notification_templates
		SET name = $2, description = $3, category = $4, priority = $5,
		    channels = $6, variables = $7, content = $8,
		    is_active = $9, is_system = $10,
		    version = version + 1, updated_at = now()
		WHERE code = $1
		RETURNING `+templateColumns,
		tmpl.Code, tmpl.Name, tmpl.Description, tmpl.Category, int16(tmpl.Priority),
		channels, variables, content, tmpl.IsActive, tmpl.IsSystem,
	)

	updated, err := scanTemplate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, tmpl.Code)
		}
		return nil, fmt.Errorf("failed to update template %q: %w", tmpl.Code, err)
	}
	return updated, nil
}

func (s *PostgresStore) Delete(ctx context.Context, code string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM notification_templates WHERE code = $1`, code)
	if err != nil {
		return fmt.Errorf("failed to delete template %q: %w", code, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, code)
	}
	return nil
}

func marshalTemplateFields(tmpl Template) (channels, variables, content []byte, err error) {
	if channels, err = json.Marshal(tmpl.Channels); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal channels: %w", err)
	}
	if variables, err = json.Marshal(tmpl.Variables); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal variables: %w", err)
	}
	if content, err = json.Marshal(tmpl.Content); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal content: %w", err)
	}
	return channels, variables, content, nil
}

func scanTemplate(row pgx.Row) (*Template, error) {
	var (
		tmpl                         Template
		priority                     int16
		channels, variables, content []byte
	)
	err := row.Scan(
		&tmpl.Code, &tmpl.Name, &tmpl.Description, &tmpl.Category, &priority,
		&channels, &variables, &content,
		&tmpl.Version, &tmpl.IsActive, &tmpl.IsSystem, &tmpl.CreatedAt, &tmpl.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	tmpl.Priority = notify.Priority(priority)
	if err := json.Unmarshal(channels, &tmpl.Channels); err != nil {
		return nil, fmt.Errorf("failed to unmarshal channels: %w", err)
	}
	if err := json.Unmarshal(variables, &tmpl.Variables); err != nil {
		return nil, fmt.Errorf("failed to unmarshal variables: %w", err)
	}
	if err := json.Unmarshal(content, &tmpl.Content); err != nil {
		return nil, fmt.Errorf("failed to unmarshal content: %w", err)
	}
	return &tmpl, nil
}
