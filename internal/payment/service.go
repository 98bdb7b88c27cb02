package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/predictly-ai/gateway/internal/common"
	"github.com/predictly-ai/gateway/internal/currency"
	"github.com/predictly-ai/gateway/internal/obs"
)

// CreateSessionInput is the normalised request to open a checkout session.
type CreateSessionInput struct {
	PredictionID string
	Amount       float64
	Currency     string
	Origin       string
}

// Service validates checkout requests and drives the configured provider.
type Service struct {
	Provider   Provider
	Configured bool
	log        zerolog.Logger
}

func NewService(provider Provider, configured bool, log zerolog.Logger) *Service {
	return &Service{Provider: provider, Configured: configured, log: log}
}

// CreateSession validates the input, converts the amount to minor units and
// opens a hosted session. Configuration is checked before anything else so a
// misconfigured deployment never reaches the provider.
func (s *Service) CreateSession(ctx context.Context, in CreateSessionInput) (Session, error) {
	ctx, span := otel.Tracer("payment").Start(ctx, "payment.CreateSession",
		trace.WithAttributes(attribute.String("prediction.id", in.PredictionID)))
	defer span.End()

	if !s.Configured {
		obs.CountCheckoutSession("config_missing")
		return Session{}, common.ConfigError("payment provider key is not configured")
	}

	in.PredictionID = strings.TrimSpace(in.PredictionID)
	in.Currency = strings.ToLower(strings.TrimSpace(in.Currency))
	if in.PredictionID == "" {
		obs.CountCheckoutSession("invalid_params")
		return Session{}, common.ValidationError("predictionId is required")
	}

	unitAmount, err := currency.MinorUnits(in.Amount, in.Currency)
	if err != nil {
		obs.CountCheckoutSession("invalid_params")
		return Session{}, common.ValidationError(err.Error())
	}

	origin := strings.TrimRight(in.Origin, "/")
	req := SessionRequest{
		PredictionID: in.PredictionID,
		Currency:     in.Currency,
		UnitAmount:   unitAmount,
		SuccessURL:   fmt.Sprintf("%s/result/%s?payment=success", origin, in.PredictionID),
		CancelURL:    fmt.Sprintf("%s/checkout/%s?payment=cancelled", origin, in.PredictionID),
	}

	session, err := s.Provider.CreateSession(ctx, req)
	if err != nil {
		obs.CountCheckoutSession("error")
		s.log.Error().Err(err).Str("prediction_id", in.PredictionID).Msg("checkout session creation failed")
		return Session{}, err
	}

	obs.CountCheckoutSession("ok")
	s.log.Info().
		Str("prediction_id", in.PredictionID).
		Str("currency", in.Currency).
		Int64("unit_amount", unitAmount).
		Msg("checkout session created")
	return session, nil
}
