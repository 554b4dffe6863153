package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aouyang1/go-demandcast"
	"github.com/aouyang1/go-demandcast/score"
	"github.com/goccy/go-json"
	"github.com/rickar/cal/v2"
)

// Document is the machine readable outcome of a run
type Document struct {
	RunID            string        `json:"run_id"`
	TrainEndTime     time.Time     `json:"training_end_time"`
	LastTime         time.Time     `json:"last_observed_time"`
	Rank             int           `json:"rank"`
	ResidualVariance float64       `json:"residual_variance"`
	Evaluation       *score.Report `json:"evaluation,omitempty"`
	InSample         *score.Report `json:"in_sample,omitempty"`
	Rows             []Row         `json:"rows"`
}

// JSON writes one document per outcome
type JSON struct {
	w        io.Writer
	indent   string
	holidays []*cal.Holiday
}

// NewJSON writes to w, or standard out if w is nil. A non-empty indent pretty prints.
func NewJSON(w io.Writer, indent string, holidays ...*cal.Holiday) *JSON {
	if w == nil {
		w = os.Stdout
	}
	return &JSON{w: w, indent: indent, holidays: holidays}
}

// NewDocument flattens the outcome
func NewDocument(out *demandcast.Outcome, holidays ...*cal.Holiday) (*Document, error) {
	rows, err := Rows(out, holidays...)
	if err != nil {
		return nil, err
	}
	return &Document{
		RunID:            out.RunID,
		TrainEndTime:     out.Model.TrainEndTime,
		LastTime:         out.Model.LastTime,
		Rank:             out.Model.Basis.Rank,
		ResidualVariance: out.Model.Residual.Variance(),
		Evaluation:       out.Evaluation,
		InSample:         out.Model.Scores,
		Rows:             rows,
	}, nil
}

func (j *JSON) Emit(ctx context.Context, out *demandcast.Outcome) error {
	doc, err := NewDocument(out, j.holidays...)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(j.w)
	if j.indent != "" {
		enc.SetIndent("", j.indent)
	}
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("unable to encode outcome, %w", err)
	}
	return nil
}
