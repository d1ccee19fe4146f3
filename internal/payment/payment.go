// Package payment talks to the hosted checkout provider. The rest of the
// service sees only Provider, CheckoutRequest and Event.
package payment

import (
	"context"
	"errors"
)

const EventCheckoutCompleted = "checkout.session.completed"

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrMissingSignature = errors.New("missing webhook signature")
	// ErrWebhookNotConfigured is returned when no signing secret is set; an
	// empty HMAC key would accept signatures anyone can compute.
	ErrWebhookNotConfigured = errors.New("webhook signing secret not configured")
)

type CheckoutRequest struct {
	UserID      string
	Email       string
	AmountCents int64
	Currency    string
	ProductName string
	Description string
	SuccessURL  string
	CancelURL   string
	Metadata    map[string]string
}

type CheckoutSession struct {
	ID  string
	URL string
}

// Event is a verified webhook notification. Object holds the raw JSON of the
// object the event refers to, for example a checkout session.
type Event struct {
	ID     string
	Type   string
	Object []byte
}

type Provider interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
	ConstructEvent(payload []byte, signature string) (Event, error)
}
