package datasource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aouyang1/go-demandcast/timedataset"
)

var dateLayouts = []string{time.DateOnly, time.RFC3339, time.DateTime}

// CSV loads observations from a comma separated file with a header row naming the time, year,
// and value columns of the table options
type CSV struct {
	path string
	tbl  *TableOptions
}

func NewCSV(path string, tbl *TableOptions) *CSV {
	if tbl == nil {
		tbl = NewDefaultTableOptions()
	}
	return &CSV{path: path, tbl: tbl}
}

func (c *CSV) Load(ctx context.Context, q Query) ([]timedataset.Observation, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("unable to open %s, %w", c.path, err)
	}
	defer f.Close()

	obs, err := ReadCSV(ctx, f, c.tbl)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s, %w", c.path, err)
	}
	return q.filter(obs), nil
}

// ReadCSV parses observations in file order
func ReadCSV(ctx context.Context, r io.Reader, tbl *TableOptions) ([]timedataset.Observation, error) {
	if tbl == nil {
		tbl = NewDefaultTableOptions()
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("unable to read header, %w", err)
	}
	timeIdx, yearIdx, valueIdx := -1, -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case tbl.TimeColumn:
			timeIdx = i
		case tbl.YearColumn:
			yearIdx = i
		case tbl.ValueColumn:
			valueIdx = i
		}
	}
	if timeIdx < 0 || yearIdx < 0 || valueIdx < 0 {
		return nil, fmt.Errorf(
			"header %v needs %s, %s, and %s, %w",
			header, tbl.TimeColumn, tbl.YearColumn, tbl.ValueColumn, ErrMissingColumn,
		)
	}

	var obs []timedataset.Observation
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d, %w", line, err)
		}

		t, err := parseTime(record[timeIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d, %w", line, err)
		}
		year, err := strconv.ParseFloat(strings.TrimSpace(record[yearIdx]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d year, %w", line, err)
		}
		val, err := strconv.ParseFloat(strings.TrimSpace(record[valueIdx]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d value, %w", line, err)
		}
		if !timedataset.Finite(val) {
			return nil, fmt.Errorf("line %d value %q is not finite, %w", line, record[valueIdx], timedataset.ErrInvalidData)
		}
		obs = append(obs, timedataset.Observation{Time: t, Year: year, Value: val})
	}
	return obs, nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse time %q, %w", s, timedataset.ErrInvalidData)
}
