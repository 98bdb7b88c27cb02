// Package checkout orchestrates the paid upgrade of a prediction order:
// prepare the order on the engine, then open a hosted payment session. The
// two steps are strictly ordered and guarded by a per-order single-flight
// lock so a double click can never produce two sessions.
package checkout

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/predictly-ai/gateway/internal/common"
	"github.com/predictly-ai/gateway/internal/lock"
	"github.com/predictly-ai/gateway/internal/obs"
	"github.com/predictly-ai/gateway/internal/payment"
	"github.com/predictly-ai/gateway/internal/predictions"
)

// Engine is the subset of the engine client the pay flow needs.
type Engine interface {
	Get(ctx context.Context, id string) (predictions.Prediction, error)
	Checkout(ctx context.Context, id string) error
}

// Sessions opens hosted payment sessions.
type Sessions interface {
	CreateSession(ctx context.Context, in payment.CreateSessionInput) (payment.Session, error)
}

// Service drives the pay flow for a single prediction order.
type Service struct {
	API      Engine
	Payments Sessions
	Locks    lock.Locker
	log      zerolog.Logger
}

func NewService(api Engine, payments Sessions, locks lock.Locker, log zerolog.Logger) *Service {
	return &Service{API: api, Payments: payments, Locks: locks, log: log}
}

// Pay prepares the order and opens a payment session, returning the hosted
// page URL. A concurrent attempt for the same order is refused with a 409.
// When preparation fails no session is created.
func (s *Service) Pay(ctx context.Context, id, origin string) (payment.Session, error) {
	var session payment.Session
	err := s.Locks.Try(ctx, "checkout:"+id, func(ctx context.Context) error {
		pred, err := s.API.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := pred.Payable(); err != nil {
			return err
		}

		if err := s.API.Checkout(ctx, id); err != nil {
			obs.CountCheckoutPrepare("error")
			s.log.Warn().Err(err).Str("prediction_id", id).Msg("order preparation failed")
			return err
		}
		obs.CountCheckoutPrepare("ok")

		session, err = s.Payments.CreateSession(ctx, payment.CreateSessionInput{
			PredictionID: id,
			Amount:       pred.TotalAmount,
			Currency:     pred.Currency,
			Origin:       origin,
		})
		return err
	})
	if errors.Is(err, lock.ErrHeld) {
		return payment.Session{}, common.NewAppError(common.CodeCheckoutInFlight, "a payment attempt for this order is already in progress", http.StatusConflict, err)
	}
	if err != nil {
		return payment.Session{}, err
	}
	return session, nil
}
