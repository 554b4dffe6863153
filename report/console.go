package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/aouyang1/go-demandcast"
	"github.com/rickar/cal/v2"
)

const DefaultFloor = 0.0

// ConsoleOptions configures the console table
type ConsoleOptions struct {
	// Floor clamps the displayed lower bound, demand cannot go negative. Clamping only applies
	// to what is printed, never to the stored forecast.
	Floor   float64
	NoFloor bool

	DateLayout string
	Holidays   []*cal.Holiday
}

func NewDefaultConsoleOptions() *ConsoleOptions {
	return &ConsoleOptions{
		Floor:      DefaultFloor,
		DateLayout: time.DateOnly,
	}
}

// Console prints the forecast as an aligned table
type Console struct {
	w   io.Writer
	opt *ConsoleOptions
}

// NewConsole writes to w, or standard out if w is nil
func NewConsole(w io.Writer, opt *ConsoleOptions) *Console {
	if w == nil {
		w = os.Stdout
	}
	if opt == nil {
		opt = NewDefaultConsoleOptions()
	}
	if opt.DateLayout == "" {
		opt.DateLayout = time.DateOnly
	}
	return &Console{w: w, opt: opt}
}

func (c *Console) Emit(ctx context.Context, out *demandcast.Outcome) error {
	rows, err := Rows(out, c.opt.Holidays...)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.w, "Run: %s\n", out.RunID)
	fmt.Fprintf(c.w, "  Training End Time: %s    Last Observed Time: %s\n",
		out.Model.TrainEndTime.Format(c.opt.DateLayout),
		out.Model.LastTime.Format(c.opt.DateLayout),
	)
	if ev := out.Evaluation; ev != nil {
		fmt.Fprintf(c.w, "  Holdout MAE: %.3f    RMSE: %.3f    MAPE: %.3f\n", ev.MAE, ev.RMSE, ev.MAPE)
	}

	w := tabwriter.NewWriter(c.w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "date\tactual\tlower\tforecast\tupper\tholiday\t")
	for _, row := range rows {
		actual := "-"
		if row.Actual != nil {
			actual = fmt.Sprintf("%.2f", *row.Actual)
		}
		lower := row.Lower
		if !c.opt.NoFloor {
			lower = max(lower, c.opt.Floor)
		}
		holiday := row.Holiday
		if holiday == "" {
			holiday = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%.2f\t%.2f\t%s\t\n",
			row.Time.Format(c.opt.DateLayout), actual, lower, row.Forecast, row.Upper, holiday,
		)
	}
	return w.Flush()
}
