package payments

import (
	"context"

	"github.com/stripe/stripe-go/v84"

	pkgstripe "github.com/soltanba/shoplane-backend/pkg/stripe"
)

// StripeCheckoutClient exposes the subset of Stripe operations required by
// the payment service.
type StripeCheckoutClient interface {
	CreateSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type stripeClientWrapper struct {
	api *pkgstripe.Client
}

// NewStripeClient wraps the provided Stripe client so the payment service
// can be tested.
func NewStripeClient(api *pkgstripe.Client) StripeCheckoutClient {
	if api == nil {
		return nil
	}
	return &stripeClientWrapper{api: api}
}

func (w *stripeClientWrapper) CreateSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return w.api.NewCheckoutSession(ctx, params)
}
