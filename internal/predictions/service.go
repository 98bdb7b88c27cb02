package predictions

import (
	"context"

	"github.com/rs/zerolog"
)

// Engine is the subset of the engine client the result flow needs.
type Engine interface {
	Get(ctx context.Context, id string) (Prediction, error)
	Run(ctx context.Context, id string) error
}

// Service orchestrates result retrieval. Generation is lazy: the engine only
// produces a result when asked, so a paid order without one gets a run
// triggered and is fetched again.
type Service struct {
	api Engine
	log zerolog.Logger
}

func NewService(api Engine, log zerolog.Logger) *Service {
	return &Service{api: api, log: log}
}

// Get returns the order as the engine sees it.
func (s *Service) Get(ctx context.Context, id string) (Prediction, error) {
	return s.api.Get(ctx, id)
}

// EnsureResult returns the prediction with its analysis attached, triggering
// generation when the engine has not produced one yet.
func (s *Service) EnsureResult(ctx context.Context, id string) (Prediction, error) {
	pred, err := s.api.Get(ctx, id)
	if err != nil {
		return Prediction{}, err
	}
	if pred.HasResult() {
		return pred, nil
	}
	s.log.Info().Str("prediction_id", id).Msg("result missing, triggering generation")
	if err := s.api.Run(ctx, id); err != nil {
		return Prediction{}, err
	}
	return s.api.Get(ctx, id)
}
