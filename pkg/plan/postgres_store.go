package plan

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is a pgx-backed Store, CustomerIndex and
// ProcessedEventStore. The version column mirrors the record's version
// field so the conditional write is a single guarded UPDATE.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an established pgx pool. Schema comes from the
// goose migrations under migrations/.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("plan: pgx pool is required")
	}
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM plan_records WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrRecordNotFound
	}
	return value, err
}

func (s *PostgresStore) Set(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO plan_records (key, value, version, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, version = EXCLUDED.version, updated_at = now()`,
		key, value, storedVersion(value))
	return err
}

func (s *PostgresStore) SetVersioned(ctx context.Context, key, value string, expectedVersion int64) error {
	newVersion := storedVersion(value)

	if expectedVersion == 0 {
		tag, err := s.pool.Exec(ctx, `
			INSERT INTO plan_records (key, value, version, updated_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (key) DO NOTHING`,
			key, value, newVersion)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrVersionConflict
		}
		return nil
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE plan_records
		SET value = $2, version = $3, updated_at = now()
		WHERE key = $1 AND version = $4`,
		key, value, newVersion, expectedVersion)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (s *PostgresStore) Remove(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM plan_records WHERE key = $1`, key)
	return err
}

func (s *PostgresStore) LinkCustomer(ctx context.Context, customerID, tenantID string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO billing_customers (customer_id, tenant_id)
		VALUES ($1, $2)
		ON CONFLICT (customer_id) DO UPDATE SET tenant_id = EXCLUDED.tenant_id`,
		customerID, tenantID)
	return err
}

func (s *PostgresStore) TenantByCustomer(ctx context.Context, customerID string) (string, error) {
	var tenantID string
	err := s.pool.QueryRow(ctx,
		`SELECT tenant_id FROM billing_customers WHERE customer_id = $1`, customerID).Scan(&tenantID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrRecordNotFound
	}
	return tenantID, err
}

func (s *PostgresStore) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO processed_events (event_id)
		VALUES ($1)
		ON CONFLICT (event_id) DO NOTHING`,
		eventID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) Forget(ctx context.Context, eventID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM processed_events WHERE event_id = $1`, eventID)
	return err
}
