package payment

import "context"

// SessionRequest carries everything a provider needs to open a hosted
// checkout session. UnitAmount is already converted to the currency's
// minor units.
type SessionRequest struct {
	PredictionID string
	Currency     string
	UnitAmount   int64
	SuccessURL   string
	CancelURL    string
}

// Session is the provider's answer: a hosted page the buyer is redirected to.
type Session struct {
	URL string
}

// Provider creates hosted checkout sessions with an external payment service.
type Provider interface {
	CreateSession(ctx context.Context, req SessionRequest) (Session, error)
}
