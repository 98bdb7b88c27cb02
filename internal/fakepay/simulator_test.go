package fakepay

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/predictly-ai/gateway/internal/common"
	"github.com/predictly-ai/gateway/internal/predictions"
)

type fakeSandbox struct {
	initiateErr error
	webhookErr  error
	initiates   int
	webhooks    int
	lastStatus  string
	lastSig     string
}

func (f *fakeSandbox) FakeInitiate(ctx context.Context, predictionID string) (string, error) {
	f.initiates++
	if f.initiateErr != nil {
		return "", f.initiateErr
	}
	return "txn-123", nil
}

func (f *fakeSandbox) FakeWebhook(ctx context.Context, txRef, status, signature string) error {
	f.webhooks++
	f.lastStatus = status
	f.lastSig = signature
	return f.webhookErr
}

func newSimulator(api Engine, secret string) *Simulator {
	return NewSimulator(api, Signer{Secret: secret}, 0, zerolog.Nop())
}

func TestDetermineOutcome(t *testing.T) {
	require.Equal(t, OutcomeSucceeded, DetermineOutcome("4242424242424242", ""))
	require.Equal(t, OutcomeSucceeded, DetermineOutcome("4242 4242 4242 4242", OutcomeFailed))
	require.Equal(t, OutcomeFailed, DetermineOutcome("4000000000000002", OutcomeSucceeded))
	require.Equal(t, OutcomeFailed, DetermineOutcome("5555555555554444", OutcomeFailed))
	require.Equal(t, OutcomeSucceeded, DetermineOutcome("5555555555554444", ""))
	require.Equal(t, OutcomeSucceeded, DetermineOutcome("", ""))
}

func TestRunSuccessRedirectsToResult(t *testing.T) {
	api := &fakeSandbox{}
	sim := newSimulator(api, "")

	result, err := sim.Run(context.Background(), "pred-1", CardSuccess, "")
	require.NoError(t, err)
	require.Equal(t, OutcomeSucceeded, result.Outcome)
	require.Equal(t, "txn-123", result.TxRef)
	require.Equal(t, "/result/pred-1", result.RedirectURL)
	require.Equal(t, 1, api.initiates)
	require.Equal(t, 1, api.webhooks)
	require.Equal(t, "succeeded", api.lastStatus)
	require.Equal(t, PlaceholderSignature, api.lastSig)

	state, outcome, txRef := sim.Status("pred-1")
	require.Equal(t, StateDone, state)
	require.Equal(t, OutcomeSucceeded, outcome)
	require.Equal(t, "txn-123", txRef)
}

func TestRunFailureRedirectsToHistory(t *testing.T) {
	api := &fakeSandbox{}
	sim := newSimulator(api, "")

	result, err := sim.Run(context.Background(), "pred-1", CardFailure, "")
	require.NoError(t, err)
	require.Equal(t, OutcomeFailed, result.Outcome)
	require.Equal(t, "/history", result.RedirectURL)
	require.Equal(t, "failed", api.lastStatus)
}

func TestRunSignsWithSecret(t *testing.T) {
	api := &fakeSandbox{}
	sim := newSimulator(api, "s3cret")

	_, err := sim.Run(context.Background(), "pred-1", CardSuccess, "")
	require.NoError(t, err)

	body, err := predictions.WebhookPayload("txn-123", "succeeded")
	require.NoError(t, err)
	require.Equal(t, Signer{Secret: "s3cret"}.Sign(body), api.lastSig)
	require.True(t, Signer{Secret: "s3cret"}.Verify(body, api.lastSig))
}

func TestRunInitiateFailureResetsState(t *testing.T) {
	api := &fakeSandbox{initiateErr: errors.New("initiate rejected")}
	sim := newSimulator(api, "")

	_, err := sim.Run(context.Background(), "pred-1", CardSuccess, "")
	require.Error(t, err)
	require.Zero(t, api.webhooks, "webhook must not fire when initiate fails")

	state, _, _ := sim.Status("pred-1")
	require.Equal(t, StateIdle, state)

	// retry is allowed after reset
	api.initiateErr = nil
	_, err = sim.Run(context.Background(), "pred-1", CardSuccess, "")
	require.NoError(t, err)
}

func TestRunWebhookFailureResetsState(t *testing.T) {
	api := &fakeSandbox{webhookErr: errors.New("webhook rejected")}
	sim := newSimulator(api, "")

	_, err := sim.Run(context.Background(), "pred-1", CardSuccess, "")
	require.Error(t, err)

	state, _, _ := sim.Status("pred-1")
	require.Equal(t, StateIdle, state)
}

func TestRunDoneIsTerminal(t *testing.T) {
	api := &fakeSandbox{}
	sim := newSimulator(api, "")

	_, err := sim.Run(context.Background(), "pred-1", CardSuccess, "")
	require.NoError(t, err)

	_, err = sim.Run(context.Background(), "pred-1", CardSuccess, "")
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, common.CodeSimulationReplay, appErr.Code)
	require.Equal(t, http.StatusConflict, appErr.HTTPStatus)
	require.Equal(t, 1, api.initiates)
}
