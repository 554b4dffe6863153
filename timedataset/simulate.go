package timedataset

import (
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/floats"
)

// GenerateT returns n evenly spaced times ending one interval before the minute-truncated
// time returned by nowFunc.
func GenerateT(n int, interval time.Duration, nowFunc func() time.Time) []time.Time {
	t := make([]time.Time, 0, n)
	ct := time.Unix(nowFunc().Unix()/60*60, 0).Add(-time.Duration(n) * interval).UTC()
	for i := 0; i < n; i++ {
		t = append(t, ct.Add(interval*time.Duration(i)))
	}
	return t
}

type Series []float64

func (s Series) Add(src Series) Series {
	floats.Add(s, src)
	return s
}

// MaskWithWeekend zeroes every point that does not fall on a Saturday or Sunday
func (s Series) MaskWithWeekend(t []time.Time) Series {
	n := len(s)
	for i := 0; i < n; i++ {
		switch t[i].Weekday() {
		case time.Saturday, time.Sunday:
			continue
		default:
			s[i] = 0.0
		}
	}
	return s
}

// Floor raises every point below val up to val
func (s Series) Floor(val float64) Series {
	for i, v := range s {
		if v < val {
			s[i] = val
		}
	}
	return s
}

func GenerateConstY(n int, val float64) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, val)
	}
	return Series(y)
}

func GenerateWaveY(t []time.Time, amp, periodSec, order, timeOffset float64) Series {
	n := len(t)
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		val := amp * math.Sin(2.0*math.Pi*order/periodSec*(float64(t[i].Unix())+timeOffset))
		y = append(y, val)
	}
	return Series(y)
}

// GenerateNoise draws gaussian noise with the given scale. A nil rng uses the global source.
func GenerateNoise(t []time.Time, noiseScale float64, rng *rand.Rand) Series {
	n := len(t)
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		z := rand.NormFloat64()
		if rng != nil {
			z = rng.NormFloat64()
		}
		y = append(y, z*noiseScale)
	}
	return Series(y)
}

// GenerateChange adds a level shift of bias and a per-day slope starting at chpt
func GenerateChange(t []time.Time, chpt time.Time, bias, slope float64) Series {
	n := len(t)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		if t[i].After(chpt) || t[i].Equal(chpt) {
			y[i] = bias + slope*t[i].Sub(chpt).Hours()/24.0
		}
	}
	return Series(y)
}

// RentalOptions shapes a synthetic daily rental count series
type RentalOptions struct {
	Base        float64
	WeeklyAmp   float64
	WeekendLift float64
	YearlyAmp   float64
	TrendPerDay float64
	Noise       float64
	Seed        uint64
}

func NewDefaultRentalOptions() *RentalOptions {
	return &RentalOptions{
		Base:        4500,
		WeeklyAmp:   600,
		WeekendLift: 900,
		YearlyAmp:   1800,
		TrendPerDay: 2.5,
		Noise:       250,
		Seed:        1,
	}
}

// GenerateRentals produces a non-negative daily demand series with weekly and yearly cycles,
// a weekend lift, a linear trend, and seeded gaussian noise.
func GenerateRentals(t []time.Time, opt *RentalOptions) Series {
	if opt == nil {
		opt = NewDefaultRentalOptions()
	}
	n := len(t)
	if n == 0 {
		return Series{}
	}
	week := float64(7 * 24 * 60 * 60)
	year := float64(365 * 24 * 60 * 60)
	rng := rand.New(rand.NewPCG(opt.Seed, opt.Seed^0x9e3779b97f4a7c15))

	y := GenerateConstY(n, opt.Base)
	y.Add(GenerateWaveY(t, opt.WeeklyAmp, week, 1.0, 0.0)).
		Add(GenerateWaveY(t, opt.YearlyAmp, year, 1.0, -year/4.0)).
		Add(GenerateConstY(n, opt.WeekendLift).MaskWithWeekend(t)).
		Add(GenerateChange(t, t[0], 0.0, opt.TrendPerDay)).
		Add(GenerateNoise(t, opt.Noise, rng)).
		Floor(0.0)
	return y
}
