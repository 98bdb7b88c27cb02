// Package fakepay drives end-to-end payment simulations against the engine's
// sandbox endpoints. It exists for development and demo deployments; real
// payments never touch it.
package fakepay

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/predictly-ai/gateway/internal/common"
	"github.com/predictly-ai/gateway/internal/obs"
	"github.com/predictly-ai/gateway/internal/predictions"
)

// Outcome is the terminal status of a simulated payment.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// Test card numbers with fixed outcomes, mirroring the usual sandbox cards.
const (
	CardSuccess = "4242424242424242"
	CardFailure = "4000000000000002"
)

// State of a simulation for one order.
type State string

const (
	StateIdle       State = "idle"
	StateProcessing State = "processing"
	StateDone       State = "done"
)

// DetermineOutcome maps a card number to its fixed outcome. Unknown cards use
// the caller's requested outcome, succeeding by default.
func DetermineOutcome(card string, requested Outcome) Outcome {
	switch strings.ReplaceAll(strings.TrimSpace(card), " ", "") {
	case CardSuccess:
		return OutcomeSucceeded
	case CardFailure:
		return OutcomeFailed
	}
	if requested == OutcomeFailed {
		return OutcomeFailed
	}
	return OutcomeSucceeded
}

// Engine is the subset of the engine client the simulator needs.
type Engine interface {
	FakeInitiate(ctx context.Context, predictionID string) (string, error)
	FakeWebhook(ctx context.Context, txRef, status, signature string) error
}

// Result describes a finished simulation and where the buyer should land.
type Result struct {
	Outcome     Outcome
	TxRef       string
	RedirectURL string
}

type transaction struct {
	State   State
	Outcome Outcome
	TxRef   string
}

// Simulator runs the initiate-then-webhook sequence and tracks per-order
// state. A simulation that reached done stays done; a failed step resets the
// order to idle so it can be retried.
type Simulator struct {
	API         Engine
	Signer      Signer
	SettleDelay time.Duration
	log         zerolog.Logger

	mu   sync.Mutex
	txns map[string]*transaction
}

func NewSimulator(api Engine, signer Signer, settleDelay time.Duration, log zerolog.Logger) *Simulator {
	return &Simulator{
		API:         api,
		Signer:      signer,
		SettleDelay: settleDelay,
		log:         log,
		txns:        make(map[string]*transaction),
	}
}

// Status returns the recorded simulation state for an order.
func (s *Simulator) Status(predictionID string) (State, Outcome, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	txn, ok := s.txns[predictionID]
	if !ok {
		return StateIdle, "", ""
	}
	return txn.State, txn.Outcome, txn.TxRef
}

// Run executes a full simulated payment for the order. The webhook is only
// ever delivered after a successful initiate, and a settle delay between the
// two mimics real provider latency.
func (s *Simulator) Run(ctx context.Context, predictionID, card string, requested Outcome) (Result, error) {
	if err := s.begin(predictionID); err != nil {
		return Result{}, err
	}

	txRef, err := s.API.FakeInitiate(ctx, predictionID)
	if err != nil {
		s.reset(predictionID)
		return Result{}, err
	}

	outcome := DetermineOutcome(card, requested)

	if s.SettleDelay > 0 {
		timer := time.NewTimer(s.SettleDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.reset(predictionID)
			return Result{}, ctx.Err()
		case <-timer.C:
		}
	}

	body, err := predictions.WebhookPayload(txRef, string(outcome))
	if err != nil {
		s.reset(predictionID)
		return Result{}, common.NewAppError(common.CodeSimulationFailed, "could not build webhook payload", http.StatusInternalServerError, err)
	}
	if err := s.API.FakeWebhook(ctx, txRef, string(outcome), s.Signer.Sign(body)); err != nil {
		s.reset(predictionID)
		return Result{}, err
	}

	s.finish(predictionID, outcome, txRef)
	obs.CountFakepaySimulation(string(outcome))
	s.log.Info().
		Str("prediction_id", predictionID).
		Str("tx_ref", txRef).
		Str("outcome", string(outcome)).
		Msg("payment simulation settled")

	redirect := "/history"
	if outcome == OutcomeSucceeded {
		redirect = "/result/" + predictionID
	}
	return Result{Outcome: outcome, TxRef: txRef, RedirectURL: redirect}, nil
}

func (s *Simulator) begin(predictionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	txn, ok := s.txns[predictionID]
	if !ok {
		s.txns[predictionID] = &transaction{State: StateProcessing}
		return nil
	}
	switch txn.State {
	case StateProcessing:
		return common.NewAppError(common.CodeCheckoutInFlight, "a simulation for this order is already running", http.StatusConflict, nil)
	case StateDone:
		return common.NewAppError(common.CodeSimulationReplay, "this order has already been settled", http.StatusConflict, nil)
	}
	txn.State = StateProcessing
	return nil
}

func (s *Simulator) reset(predictionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if txn, ok := s.txns[predictionID]; ok && txn.State == StateProcessing {
		txn.State = StateIdle
	}
}

func (s *Simulator) finish(predictionID string, outcome Outcome, txRef string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txns[predictionID] = &transaction{State: StateDone, Outcome: outcome, TxRef: txRef}
}
