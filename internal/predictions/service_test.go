package predictions

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	preds  []Prediction
	getErr error
	runErr error
	gets   int
	runs   int
}

func (f *fakeEngine) Get(ctx context.Context, id string) (Prediction, error) {
	if f.getErr != nil {
		return Prediction{}, f.getErr
	}
	idx := f.gets
	if idx >= len(f.preds) {
		idx = len(f.preds) - 1
	}
	f.gets++
	return f.preds[idx], nil
}

func (f *fakeEngine) Run(ctx context.Context, id string) error {
	f.runs++
	return f.runErr
}

func TestEnsureResultAlreadyPresent(t *testing.T) {
	engine := &fakeEngine{preds: []Prediction{
		{ID: "p1", Result: &Result{Profile: "Analyste"}},
	}}
	svc := NewService(engine, zerolog.Nop())

	pred, err := svc.EnsureResult(context.Background(), "p1")
	require.NoError(t, err)
	require.True(t, pred.HasResult())
	require.Zero(t, engine.runs)
	require.Equal(t, 1, engine.gets)
}

func TestEnsureResultTriggersRun(t *testing.T) {
	engine := &fakeEngine{preds: []Prediction{
		{ID: "p1"},
		{ID: "p1", Result: &Result{Profile: "Analyste"}},
	}}
	svc := NewService(engine, zerolog.Nop())

	pred, err := svc.EnsureResult(context.Background(), "p1")
	require.NoError(t, err)
	require.True(t, pred.HasResult())
	require.Equal(t, 1, engine.runs)
	require.Equal(t, 2, engine.gets)
}

func TestEnsureResultRunFailure(t *testing.T) {
	engine := &fakeEngine{
		preds:  []Prediction{{ID: "p1"}},
		runErr: errors.New("run rejected"),
	}
	svc := NewService(engine, zerolog.Nop())

	_, err := svc.EnsureResult(context.Background(), "p1")
	require.Error(t, err)
	require.Equal(t, 1, engine.runs)
}
