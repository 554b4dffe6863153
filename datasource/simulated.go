package datasource

import (
	"context"
	"time"

	"github.com/aouyang1/go-demandcast/timedataset"
)

// Simulated generates a daily rental series with weekly and yearly seasonality
type Simulated struct {
	Start  time.Time
	Days   int
	Rental *timedataset.RentalOptions
}

// NewSimulated returns two years of daily rentals starting 2011-01-01 as the bike sharing
// dataset does
func NewSimulated() *Simulated {
	return &Simulated{
		Start:  time.Date(2011, 1, 1, 0, 0, 0, 0, time.UTC),
		Days:   731,
		Rental: timedataset.NewDefaultRentalOptions(),
	}
}

func (s *Simulated) Load(ctx context.Context, q Query) ([]timedataset.Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t := make([]time.Time, s.Days)
	for i := range t {
		t[i] = s.Start.AddDate(0, 0, i)
	}
	buf, err := timedataset.FromSeries(t, timedataset.GenerateRentals(t, s.Rental))
	if err != nil {
		return nil, err
	}
	return q.filter(buf.Observations()), nil
}
