package orderstore

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore reads orders from a PostgreSQL table. Records are kept as
// JSONB and decoded in Go so corrupt rows surface as List errors.
type PostgresStore struct {
	pool *pgxpool.Pool
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS market_orders (
    order_id TEXT PRIMARY KEY,
    record JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// NewPostgresStore connects to Postgres using the DSN and ensures the table exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is empty")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func (p *PostgresStore) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresStore) List(ctx context.Context) ([]Order, error) {
	rows, err := p.pool.Query(ctx, `SELECT order_id, record FROM market_orders ORDER BY order_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var (
			key string
			raw []byte
		)
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, err
		}
		o, err := decodeOrder(key, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (p *PostgresStore) Save(ctx context.Context, order Order) error {
	raw, err := encodeOrder(order)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, `
INSERT INTO market_orders (order_id, record, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (order_id) DO UPDATE
SET record = EXCLUDED.record,
    updated_at = EXCLUDED.updated_at
`, order.OrderID, raw)
	return err
}
