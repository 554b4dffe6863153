package forecast

// Result holds the point forecast with its lower and upper confidence bounds, one value per
// step ahead
type Result struct {
	Point []float64 `json:"forecast"`
	Lower []float64 `json:"lower"`
	Upper []float64 `json:"upper"`
}

// Len is the forecast horizon
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Point)
}

// Width returns the interval width at each step
func (r *Result) Width() []float64 {
	if r == nil {
		return nil
	}
	width := make([]float64, len(r.Point))
	for i := range width {
		width[i] = r.Upper[i] - r.Lower[i]
	}
	return width
}
