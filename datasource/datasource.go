// Package datasource loads rental count observations from databases, files, or a simulated
// generator.
package datasource

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aouyang1/go-demandcast/timedataset"
)

var (
	ErrInvalidIdentifier = errors.New("invalid sql identifier")
	ErrMissingColumn     = errors.New("missing column")
)

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Query filters observations to [From, To). Zero times leave that side unbounded.
type Query struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Contains reports whether t falls within the query range
func (q Query) Contains(t time.Time) bool {
	if !q.From.IsZero() && t.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && !t.Before(q.To) {
		return false
	}
	return true
}

func (q Query) filter(obs []timedataset.Observation) []timedataset.Observation {
	out := make([]timedataset.Observation, 0, len(obs))
	for _, o := range obs {
		if q.Contains(o.Time) {
			out = append(out, o)
		}
	}
	return out
}

// TableOptions names the table and columns holding the observations
type TableOptions struct {
	Table       string `json:"table"`
	TimeColumn  string `json:"time_column"`
	YearColumn  string `json:"year_column"`
	ValueColumn string `json:"value_column"`
}

func NewDefaultTableOptions() *TableOptions {
	return &TableOptions{
		Table:       "rentals",
		TimeColumn:  "rental_date",
		YearColumn:  "year",
		ValueColumn: "total_rentals",
	}
}

// Validate rejects names that are not plain sql identifiers since they are interpolated into
// the query text
func (t *TableOptions) Validate() error {
	for _, name := range []string{t.Table, t.TimeColumn, t.YearColumn, t.ValueColumn} {
		if !identifierRe.MatchString(name) {
			return fmt.Errorf("%q, %w", name, ErrInvalidIdentifier)
		}
	}
	return nil
}

type dialect struct {
	double      string
	placeholder func(i int) string
}

var (
	duckdbDialect = dialect{
		double:      "DOUBLE",
		placeholder: func(int) string { return "?" },
	}
	postgresDialect = dialect{
		double:      "DOUBLE PRECISION",
		placeholder: func(i int) string { return fmt.Sprintf("$%d", i) },
	}
)

// buildQuery selects time, year, and value ordered by time with the query bounds as arguments
func buildQuery(tbl *TableOptions, q Query, d dialect) (string, []any, error) {
	if err := tbl.Validate(); err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s, CAST(%s AS %s), CAST(%s AS %s) FROM %s",
		tbl.TimeColumn,
		tbl.YearColumn, d.double,
		tbl.ValueColumn, d.double,
		tbl.Table,
	)

	var conds []string
	var args []any
	if !q.From.IsZero() {
		args = append(args, q.From)
		conds = append(conds, fmt.Sprintf("%s >= %s", tbl.TimeColumn, d.placeholder(len(args))))
	}
	if !q.To.IsZero() {
		args = append(args, q.To)
		conds = append(conds, fmt.Sprintf("%s < %s", tbl.TimeColumn, d.placeholder(len(args))))
	}
	if len(conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}
	fmt.Fprintf(&sb, " ORDER BY %s", tbl.TimeColumn)
	return sb.String(), args, nil
}
