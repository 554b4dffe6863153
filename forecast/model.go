package forecast

import (
	"bytes"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/aouyang1/go-demandcast/forecast/util"
	"github.com/aouyang1/go-demandcast/score"
	"github.com/aouyang1/go-demandcast/ssa"
	"github.com/aouyang1/go-demandcast/stats"
	"github.com/goccy/go-json"
	"github.com/golang/snappy"
	"gonum.org/v1/gonum/mat"
)

const checkpointVersion byte = 1

var checkpointMagic = []byte("DCSS")

// Model represents a serializeable format of a forecast storing the options, fit scores, the
// retained window, and the fitted subspace
type Model struct {
	TrainEndTime time.Time     `json:"train_end_time"`
	LastTime     time.Time     `json:"last_time"`
	Interval     time.Duration `json:"interval"`
	Options      *Options      `json:"options"`
	Scores       *score.Report `json:"scores"`

	Window         []float64 `json:"window"`
	Reconstruction []float64 `json:"reconstruction"`

	Basis        BasisWeights          `json:"basis"`
	Coefficients []float64             `json:"coefficients"`
	Residual     stats.RunningVariance `json:"residual"`

	Redecompositions int `json:"redecompositions"`
}

// BasisWeights stores the retained eigenvectors row major, one row per lag and one column per
// component
type BasisWeights struct {
	Window  int       `json:"window"`
	Rank    int       `json:"rank"`
	Values  []float64 `json:"eigenvalues"`
	Vectors []float64 `json:"eigenvectors"`
}

func newBasisWeights(b *ssa.Basis) BasisWeights {
	l, r := b.Vectors.Dims()
	vecs := make([]float64, 0, l*r)
	for i := 0; i < l; i++ {
		vecs = append(vecs, b.Vectors.RawRowView(i)...)
	}
	return BasisWeights{
		Window:  l,
		Rank:    r,
		Values:  append([]float64(nil), b.Values...),
		Vectors: vecs,
	}
}

func (bw BasisWeights) toBasis() (*ssa.Basis, error) {
	if bw.Window < ssa.MinWindow || bw.Rank < 1 || bw.Rank > bw.Window {
		return nil, fmt.Errorf("basis window %d rank %d, %w", bw.Window, bw.Rank, ErrCorruptCheckpoint)
	}
	if len(bw.Values) != bw.Rank || len(bw.Vectors) != bw.Window*bw.Rank {
		return nil, fmt.Errorf(
			"basis has %d eigenvalues and %d vector entries for window %d rank %d, %w",
			len(bw.Values), len(bw.Vectors), bw.Window, bw.Rank, ErrCorruptCheckpoint,
		)
	}
	return &ssa.Basis{
		Vectors: mat.NewDense(bw.Window, bw.Rank, append([]float64(nil), bw.Vectors...)),
		Values:  append([]float64(nil), bw.Values...),
	}, nil
}

// Model returns a snapshot of the fitted forecast
func (f *Forecast) Model() (Model, error) {
	if !f.fitted() {
		return Model{}, ErrUnfit
	}
	opt := *f.opt
	scores := f.Scores()
	return Model{
		TrainEndTime:     f.trainEndTime,
		LastTime:         f.lastTime,
		Interval:         f.interval,
		Options:          &opt,
		Scores:           &scores,
		Window:           f.Window(),
		Reconstruction:   append([]float64(nil), f.recon...),
		Basis:            newBasisWeights(f.basis),
		Coefficients:     f.Coefficients(),
		Residual:         f.residual,
		Redecompositions: f.redecompositions,
	}, nil
}

// NewFromModel creates a fitted forecast from a model snapshot
func NewFromModel(model Model) (*Forecast, error) {
	if model.Options == nil {
		return nil, fmt.Errorf("model has no options, %w", ErrCorruptCheckpoint)
	}
	if err := model.Options.Validate(); err != nil {
		return nil, fmt.Errorf("%w, %w", ErrCorruptCheckpoint, err)
	}
	opt := *model.Options

	basis, err := model.Basis.toBasis()
	if err != nil {
		return nil, err
	}
	if basis.Window() != opt.WindowSize {
		return nil, fmt.Errorf(
			"basis window %d does not match window size %d, %w",
			basis.Window(), opt.WindowSize, ErrCorruptCheckpoint,
		)
	}
	if len(model.Window) != opt.SeriesLength || len(model.Reconstruction) != opt.SeriesLength {
		return nil, fmt.Errorf(
			"window of %d and reconstruction of %d values for series length %d, %w",
			len(model.Window), len(model.Reconstruction), opt.SeriesLength, ErrCorruptCheckpoint,
		)
	}
	if len(model.Coefficients) != opt.WindowSize-1 {
		return nil, fmt.Errorf(
			"%d coefficients for window size %d, %w",
			len(model.Coefficients), opt.WindowSize, ErrCorruptCheckpoint,
		)
	}
	if model.Interval < 0 {
		return nil, fmt.Errorf("negative interval %s, %w", model.Interval, ErrCorruptCheckpoint)
	}
	if model.Residual.N < 0 || model.Residual.M2 < 0 {
		return nil, fmt.Errorf("invalid residual statistics, %w", ErrCorruptCheckpoint)
	}

	f := &Forecast{
		opt:              &opt,
		state:            StateFitted,
		basis:            basis,
		coef:             append([]float64(nil), model.Coefficients...),
		window:           append([]float64(nil), model.Window...),
		recon:            append([]float64(nil), model.Reconstruction...),
		residual:         model.Residual,
		trainEndTime:     model.TrainEndTime,
		lastTime:         model.LastTime,
		interval:         model.Interval,
		redecompositions: model.Redecompositions,
	}
	if model.Scores != nil {
		scores := *model.Scores
		f.scores = &scores
	}
	return f, nil
}

// Checkpoint serializes the fitted forecast and marks it as checkpointed. The blob is a magic
// header and version byte followed by snappy compressed json.
func (f *Forecast) Checkpoint() ([]byte, error) {
	model, err := f.Model()
	if err != nil {
		return nil, err
	}
	out, err := json.Marshal(model)
	if err != nil {
		return nil, fmt.Errorf("unable to encode model, %w", err)
	}

	blob := make([]byte, 0, len(checkpointMagic)+1+snappy.MaxEncodedLen(len(out)))
	blob = append(blob, checkpointMagic...)
	blob = append(blob, checkpointVersion)
	blob = append(blob, snappy.Encode(nil, out)...)

	f.state = StateCheckpointed
	return blob, nil
}

// Restore creates a fitted forecast from a checkpoint blob
func Restore(blob []byte) (*Forecast, error) {
	header := len(checkpointMagic) + 1
	if len(blob) < header || !bytes.Equal(blob[:len(checkpointMagic)], checkpointMagic) {
		return nil, fmt.Errorf("missing checkpoint header, %w", ErrCorruptCheckpoint)
	}
	if v := blob[len(checkpointMagic)]; v != checkpointVersion {
		return nil, fmt.Errorf("unsupported checkpoint version %d, %w", v, ErrCorruptCheckpoint)
	}

	out, err := snappy.Decode(nil, blob[header:])
	if err != nil {
		return nil, fmt.Errorf("%w, %w", ErrCorruptCheckpoint, err)
	}
	var model Model
	if err := json.Unmarshal(out, &model); err != nil {
		return nil, fmt.Errorf("%w, %w", ErrCorruptCheckpoint, err)
	}
	return NewFromModel(model)
}

func (m Model) TablePrint(w io.Writer, prefix, indent string) error {
	if _, err := fmt.Fprintf(w, "%s%sForecast:\n", prefix, util.IndentExpand(indent, 0)); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "%s%sTraining End Time: %s\n", prefix, util.IndentExpand(indent, 1), m.TrainEndTime); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%sLast Observed Time: %s    Interval: %s\n",
		prefix, util.IndentExpand(indent, 1), m.LastTime, m.Interval); err != nil {
		return err
	}

	if m.Options != nil {
		if err := m.Options.TablePrint(w, prefix, indent, 1); err != nil {
			return err
		}
	}

	if m.Scores != nil {
		if _, err := fmt.Fprintf(w, "%s%sScores:\n", prefix, util.IndentExpand(indent, 0)); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s%sMAE: %.3f    RMSE: %.3f    MAPE: %.3f\n",
			prefix, util.IndentExpand(indent, 1),
			m.Scores.MAE,
			m.Scores.RMSE,
			m.Scores.MAPE,
		); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(w, "%s%sResidual:\n", prefix, util.IndentExpand(indent, 0)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%sN: %d    Variance: %.3f    Redecompositions: %d\n",
		prefix, util.IndentExpand(indent, 1),
		m.Residual.N, m.Residual.Variance(), m.Redecompositions); err != nil {
		return err
	}

	return m.tablePrintComponents(w, prefix, indent, 0)
}

func (m Model) tablePrintComponents(wr io.Writer, prefix, indent string, indentGrowth int) error {
	if _, err := fmt.Fprintf(wr, "%s%sComponents:\n", prefix, util.IndentExpand(indent, indentGrowth)); err != nil {
		return err
	}
	tbl := tabwriter.NewWriter(wr, 0, 0, 1, ' ', tabwriter.AlignRight)
	if _, err := fmt.Fprintf(tbl, "%s%sLag\tCoefficient\t\n", prefix, util.IndentExpand(indent, indentGrowth+1)); err != nil {
		return err
	}
	for i, c := range m.Coefficients {
		// lag counts back from the forecast step, oldest first
		if _, err := fmt.Fprintf(tbl, "%s%s%d\t%.3f\t\n",
			prefix, util.IndentExpand(indent, indentGrowth+1),
			len(m.Coefficients)-i, c); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(tbl, "%s%sEigenvalue\t\t\n", prefix, util.IndentExpand(indent, indentGrowth+1)); err != nil {
		return err
	}
	for _, v := range m.Basis.Values {
		if _, err := fmt.Fprintf(tbl, "%s%s\t%.3f\t\n", prefix, util.IndentExpand(indent, indentGrowth+1), v); err != nil {
			return err
		}
	}
	return tbl.Flush()
}
