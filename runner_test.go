package demandcast

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/aouyang1/go-demandcast/checkpoint"
	"github.com/aouyang1/go-demandcast/datasource"
	"github.com/aouyang1/go-demandcast/forecast"
	"github.com/aouyang1/go-demandcast/metrics"
	"github.com/aouyang1/go-demandcast/timedataset"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var errBoom = errors.New("boom")

type staticSource struct {
	obs []timedataset.Observation
	err error
}

func (s staticSource) Load(ctx context.Context, q datasource.Query) ([]timedataset.Observation, error) {
	return s.obs, s.err
}

type memStore struct {
	mu       sync.Mutex
	blobs    map[string][]byte
	writeErr error
}

func newMemStore() *memStore {
	return &memStore{blobs: make(map[string][]byte)}
}

func (m *memStore) Write(ctx context.Context, blob []byte, dest string) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[dest] = append([]byte(nil), blob...)
	return nil
}

func (m *memStore) Read(ctx context.Context, dest string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	blob, ok := m.blobs[dest]
	if !ok {
		return nil, checkpoint.ErrNotFound
	}
	return blob, nil
}

type captureSink struct {
	outcomes []*Outcome
	err      error
}

func (c *captureSink) Emit(ctx context.Context, out *Outcome) error {
	if c.err != nil {
		return c.err
	}
	c.outcomes = append(c.outcomes, out)
	return nil
}

func simulatedObservations(t *testing.T) []timedataset.Observation {
	t.Helper()

	obs, err := datasource.NewSimulated().Load(context.Background(), datasource.Query{})
	require.NoError(t, err)
	return obs
}

func TestNew(t *testing.T) {
	src := staticSource{}
	store := newMemStore()
	sink := &captureSink{}

	badForecast := NewDefaultOptions()
	badForecast.Forecast.WindowSize = 1

	noDest := NewDefaultOptions()
	noDest.CheckpointDest = ""

	badQuery := NewDefaultOptions()
	badQuery.Query = datasource.Query{
		From: time.Date(2012, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2011, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	testData := map[string]struct {
		opt   *Options
		src   Source
		store Store
		sink  Sink
		err   error
	}{
		"defaults":       {src: src, store: store, sink: sink},
		"no source":      {store: store, sink: sink, err: ErrNoSource},
		"no store":       {src: src, sink: sink, err: ErrNoStore},
		"no sink":        {src: src, store: store, err: ErrNoSink},
		"bad forecast":   {opt: badForecast, src: src, store: store, sink: sink, err: forecast.ErrInvalidConfig},
		"no forecast":    {opt: &Options{CheckpointDest: "x"}, src: src, store: store, sink: sink, err: forecast.ErrInvalidConfig},
		"no checkpoint":  {opt: noDest, src: src, store: store, sink: sink, err: forecast.ErrInvalidConfig},
		"inverted query": {opt: badQuery, src: src, store: store, sink: sink, err: forecast.ErrInvalidConfig},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := New(td.opt, td.src, td.store, td.sink)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRun(t *testing.T) {
	obs := simulatedObservations(t)
	store := newMemStore()
	sink := &captureSink{}
	m := metrics.New()

	core, logs := observer.New(zap.InfoLevel)
	opt := NewDefaultOptions()
	opt.Logger = zap.New(core)
	opt.Metrics = m

	r, err := New(opt, staticSource{obs: obs}, store, sink)
	require.NoError(t, err)

	out, err := r.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, sink.outcomes, 1)
	assert.Same(t, out, sink.outcomes[0])
	assert.NotEmpty(t, out.RunID)

	// forecast starts the day after the first year of training
	require.Equal(t, 7, out.Forecast.Len())
	require.Len(t, out.T, 7)
	assert.Equal(t, time.Date(2012, 1, 1, 0, 0, 0, 0, time.UTC), out.T[0])
	assert.Equal(t, time.Date(2012, 1, 7, 0, 0, 0, 0, time.UTC), out.T[6])
	assert.Equal(t, time.Date(2011, 12, 31, 0, 0, 0, 0, time.UTC), out.Model.TrainEndTime)

	// the first week of the holdout lines up with the forecast
	require.Len(t, out.Actual, 7)
	assert.True(t, out.HasActual())
	for i := range out.Actual {
		assert.Equal(t, obs[365+i].Value, out.Actual[i])
	}

	require.NotNil(t, out.Evaluation)
	assert.Greater(t, out.Evaluation.MAE, 0.0)
	assert.GreaterOrEqual(t, out.Evaluation.RMSE, out.Evaluation.MAE)
	assert.Equal(t, out.Evaluation.MAE, testutil.ToFloat64(m.HoldoutMAE))
	assert.Equal(t, 365.0, testutil.ToFloat64(m.TrainPoints))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("ok")))

	blob, err := store.Read(context.Background(), DefaultCheckpointDest)
	require.NoError(t, err)
	restored, err := forecast.Restore(blob)
	require.NoError(t, err)
	assert.Equal(t, out.Model.TrainEndTime, restored.TrainEndTime())

	entries := logs.FilterMessage("evaluated holdout").All()
	require.Len(t, entries, 1)
	assert.Equal(t, out.RunID, entries[0].ContextMap()["run_id"])
}

func TestRunThenForecast(t *testing.T) {
	store := newMemStore()
	sink := &captureSink{}

	r, err := New(nil, staticSource{obs: simulatedObservations(t)}, store, sink)
	require.NoError(t, err)

	trained, err := r.Run(context.Background())
	require.NoError(t, err)

	restored, err := r.Forecast(context.Background())
	require.NoError(t, err)
	require.Len(t, sink.outcomes, 2)

	assert.NotEqual(t, trained.RunID, restored.RunID)
	assert.Equal(t, trained.T, restored.T)
	assert.InDeltaSlice(t, trained.Forecast.Point, restored.Forecast.Point, 1e-6)
	assert.InDeltaSlice(t, trained.Forecast.Lower, restored.Forecast.Lower, 1e-6)
	assert.InDeltaSlice(t, trained.Forecast.Upper, restored.Forecast.Upper, 1e-6)
	assert.Nil(t, restored.Evaluation)
	assert.False(t, restored.HasActual())
}

func TestRunUpdateWithHoldout(t *testing.T) {
	obs := simulatedObservations(t)

	opt := NewDefaultOptions()
	opt.UpdateWithHoldout = true
	r, err := New(opt, staticSource{obs: obs}, newMemStore(), &captureSink{})
	require.NoError(t, err)

	out, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, time.Date(2013, 1, 1, 0, 0, 0, 0, time.UTC), out.T[0])
	assert.Equal(t, obs[len(obs)-1].Time, out.Model.LastTime)
	assert.Equal(t, time.Date(2011, 12, 31, 0, 0, 0, 0, time.UTC), out.Model.TrainEndTime)
	assert.False(t, out.HasActual())
	for _, v := range out.Actual {
		assert.True(t, math.IsNaN(v))
	}
	assert.NotNil(t, out.Evaluation)
}

func TestRunNoHoldout(t *testing.T) {
	obs := simulatedObservations(t)[:365]

	r, err := New(nil, staticSource{obs: obs}, newMemStore(), &captureSink{})
	require.NoError(t, err)

	out, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Nil(t, out.Evaluation)
	assert.Equal(t, 7, out.Forecast.Len())
}

func TestRunErrors(t *testing.T) {
	obs := simulatedObservations(t)

	unordered := append([]timedataset.Observation(nil), obs...)
	unordered[10], unordered[11] = unordered[11], unordered[10]

	testData := map[string]struct {
		opt   *Options
		src   Source
		store *memStore
		sink  *captureSink
		err   error
	}{
		"source error": {
			src: staticSource{err: errBoom},
			err: errBoom,
		},
		"unordered observations": {
			src: staticSource{obs: unordered},
			err: timedataset.ErrInvalidData,
		},
		"no training data": {
			opt: func() *Options {
				opt := NewDefaultOptions()
				opt.SplitYear = 0
				return opt
			}(),
			src: staticSource{obs: obs},
			err: forecast.ErrInsufficientData,
		},
		"store error": {
			src:   staticSource{obs: obs},
			store: &memStore{blobs: map[string][]byte{}, writeErr: errBoom},
			err:   errBoom,
		},
		"sink error": {
			src:  staticSource{obs: obs},
			sink: &captureSink{err: errBoom},
			err:  errBoom,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			store := td.store
			if store == nil {
				store = newMemStore()
			}
			sink := td.sink
			if sink == nil {
				sink = &captureSink{}
			}
			opt := td.opt
			if opt == nil {
				opt = NewDefaultOptions()
			}
			m := metrics.New()
			opt.Metrics = m

			r, err := New(opt, td.src, store, sink)
			require.NoError(t, err)

			_, err = r.Run(context.Background())
			assert.ErrorIs(t, err, td.err)
			assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("error")))
		})
	}
}

func TestForecastErrors(t *testing.T) {
	store := newMemStore()
	r, err := New(nil, staticSource{}, store, &captureSink{})
	require.NoError(t, err)

	_, err = r.Forecast(context.Background())
	assert.ErrorIs(t, err, checkpoint.ErrNotFound)

	require.NoError(t, store.Write(context.Background(), []byte("not a checkpoint"), DefaultCheckpointDest))
	_, err = r.Forecast(context.Background())
	assert.ErrorIs(t, err, forecast.ErrCorruptCheckpoint)
}
