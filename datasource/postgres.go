package datasource

import (
	"context"
	"fmt"

	"github.com/aouyang1/go-demandcast/timedataset"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres loads observations through a pgx connection pool
type Postgres struct {
	pool *pgxpool.Pool
	tbl  *TableOptions
}

// NewPostgres connects to the database and verifies the connection with a ping
func NewPostgres(ctx context.Context, connStr string, tbl *TableOptions) (*Postgres, error) {
	if tbl == nil {
		tbl = NewDefaultTableOptions()
	}
	if err := tbl.Validate(); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool, %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping postgres, %w", err)
	}
	return &Postgres{pool: pool, tbl: tbl}, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) Load(ctx context.Context, q Query) ([]timedataset.Observation, error) {
	query, args, err := buildQuery(p.tbl, q, postgresDialect)
	if err != nil {
		return nil, err
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("unable to query %s, %w", p.tbl.Table, err)
	}
	defer rows.Close()

	var obs []timedataset.Observation
	for rows.Next() {
		var o timedataset.Observation
		if err := rows.Scan(&o.Time, &o.Year, &o.Value); err != nil {
			return nil, fmt.Errorf("unable to scan row, %w", err)
		}
		o.Time = o.Time.UTC()
		obs = append(obs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("unable to read rows, %w", err)
	}
	return obs, nil
}
