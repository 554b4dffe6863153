package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aouyang1/go-demandcast/timedataset"
	_ "github.com/marcboeker/go-duckdb"
)

// DuckDB loads observations from a duckdb database file. An empty data source name opens an
// in-memory database.
type DuckDB struct {
	dataSourceName string
	tbl            *TableOptions
	db             *sql.DB
}

func NewDuckDB(dataSourceName string, tbl *TableOptions) (*DuckDB, error) {
	if tbl == nil {
		tbl = NewDefaultTableOptions()
	}
	if err := tbl.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open("duckdb", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("unable to open duckdb %q, %w", dataSourceName, err)
	}
	return &DuckDB{
		dataSourceName: dataSourceName,
		tbl:            tbl,
		db:             db,
	}, nil
}

// DB exposes the underlying handle, e.g. to seed a table
func (d *DuckDB) DB() *sql.DB {
	return d.db
}

func (d *DuckDB) Close() error {
	return d.db.Close()
}

func (d *DuckDB) Load(ctx context.Context, q Query) ([]timedataset.Observation, error) {
	query, args, err := buildQuery(d.tbl, q, duckdbDialect)
	if err != nil {
		return nil, err
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("unable to query %s, %w", d.tbl.Table, err)
	}
	defer rows.Close()

	var obs []timedataset.Observation
	for rows.Next() {
		var o timedataset.Observation
		var ts time.Time
		if err := rows.Scan(&ts, &o.Year, &o.Value); err != nil {
			return nil, fmt.Errorf("unable to scan row, %w", err)
		}
		o.Time = ts.UTC()
		obs = append(obs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("unable to read rows, %w", err)
	}
	return obs, nil
}
