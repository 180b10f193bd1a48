package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/soltanba/shoplane-backend/internal/orders"
	"github.com/soltanba/shoplane-backend/pkg/config"
	"github.com/soltanba/shoplane-backend/pkg/enums"
	pkgerrors "github.com/soltanba/shoplane-backend/pkg/errors"
	"github.com/soltanba/shoplane-backend/pkg/logger"
	"github.com/soltanba/shoplane-backend/pkg/money"
)

// MetadataOrderIDKey is the session metadata key carrying the order
// correlation id back through provider webhooks.
const MetadataOrderIDKey = "order_id"

// SessionResponse returns the provider's hosted session handle.
type SessionResponse struct {
	ID  string `json:"id"`
	URL string `json:"url,omitempty"`
}

// SessionURLs carries the redirect targets embedded into each session.
type SessionURLs struct {
	Success  string
	Cancel   string
	Currency string
}

// Service creates hosted payment sessions for orders.
type Service interface {
	CreateCheckoutSession(ctx context.Context, userID, orderID uuid.UUID) (*SessionResponse, error)
}

type orderStatusWriter interface {
	MarkPaymentStatus(ctx context.Context, orderID uuid.UUID, target enums.PaymentStatus) error
}

type service struct {
	repo     *orders.Repository
	statuses orderStatusWriter
	gateway  StripeCheckoutClient
	urls     SessionURLs
	timeout  time.Duration
	logg     *logger.Logger
}

// ServiceParams bundles the payment service dependencies. URLs carries the
// redirect targets and currency the configured Stripe client resolved.
type ServiceParams struct {
	Orders        *orders.Repository
	OrderStatuses orderStatusWriter
	Gateway       StripeCheckoutClient
	URLs          SessionURLs
	Checkout      config.CheckoutConfig
	Logger        *logger.Logger
}

// NewService builds a payment gateway adapter.
func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.OrderStatuses == nil {
		return nil, fmt.Errorf("order status writer required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("stripe gateway required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	timeout := params.Checkout.GatewayTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	urls := params.URLs
	if urls.Currency == "" {
		urls.Currency = "usd"
	}
	return &service{
		repo:     params.Orders,
		statuses: params.OrderStatuses,
		gateway:  params.Gateway,
		urls:     urls,
		timeout:  timeout,
		logg:     params.Logger,
	}, nil
}

// CreateCheckoutSession asks the provider for a hosted payment session
// covering the order total. The order id travels as opaque session metadata
// so the provider's webhook can be correlated back. Provider failures are
// surfaced as gateway errors and never retried here; the client re-initiates
// session creation.
func (s *service) CreateCheckoutSession(ctx context.Context, userID, orderID uuid.UUID) (*SessionResponse, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.PaymentStatus == enums.PaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order is already paid")
	}

	cents, err := money.ToMinorUnits(order.TotalAmount)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "convert order total")
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(s.urls.Success),
		CancelURL:  stripe.String(s.urls.Cancel),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(s.urls.Currency),
					UnitAmount: stripe.Int64(cents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(fmt.Sprintf("Order %s", order.ID)),
					},
				},
			},
		},
	}
	params.AddMetadata(MetadataOrderIDKey, order.ID.String())

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	sess, err := s.gateway.CreateSession(callCtx, params)
	if err != nil {
		s.logg.Error(s.logg.WithOrderID(ctx, order.ID.String()), "stripe session creation failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodePaymentGateway, err, "create checkout session")
	}

	if err := s.repo.SetStripeSession(ctx, order.ID, sess.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record session id")
	}

	// a failed payment retries through a fresh session
	if order.PaymentStatus == enums.PaymentStatusFailed {
		if err := s.statuses.MarkPaymentStatus(ctx, order.ID, enums.PaymentStatusPending); err != nil {
			return nil, err
		}
	}

	return &SessionResponse{ID: sess.ID, URL: sess.URL}, nil
}
