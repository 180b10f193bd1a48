package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/soltanba/shoplane-backend/internal/payments"
	"github.com/soltanba/shoplane-backend/pkg/enums"
	pkgerrors "github.com/soltanba/shoplane-backend/pkg/errors"
	"github.com/soltanba/shoplane-backend/pkg/logger"
)

type orderStatusWriter interface {
	MarkPaymentStatus(ctx context.Context, orderID uuid.UUID, target enums.PaymentStatus) error
}

type ServiceParams struct {
	OrderStatuses orderStatusWriter
	Logger        *logger.Logger
}

// Service reconciles Stripe checkout session events onto order payment
// status. Replayed events land on an already-settled order and resolve as
// no-ops through the status writer.
type Service struct {
	statuses orderStatusWriter
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.OrderStatuses == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order status writer required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{statuses: params.OrderStatuses, logg: params.Logger}, nil
}

// HandleEvent applies a verified Stripe event. Event types outside the
// checkout session lifecycle are acknowledged and ignored.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	var target enums.PaymentStatus
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		target = enums.PaymentStatusPaid
	case stripe.EventTypeCheckoutSessionAsyncPaymentFailed,
		stripe.EventTypeCheckoutSessionExpired:
		target = enums.PaymentStatusFailed
	default:
		return nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode checkout session event")
	}

	orderID, err := orderIDFromSession(&session)
	if err != nil {
		return err
	}

	if err := s.statuses.MarkPaymentStatus(ctx, orderID, target); err != nil {
		// A settled order refuses the transition, and redelivery of the
		// same event can never change that. Acknowledge it so the provider
		// stops retrying.
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeConflict {
			s.logg.Warn(s.logg.WithOrderID(ctx, orderID.String()),
				fmt.Sprintf("payment status transition rejected: %v", err))
			return nil
		}
		return err
	}

	s.logg.Info(s.logg.WithOrderID(ctx, orderID.String()), "payment status reconciled: "+string(target))
	return nil
}

func orderIDFromSession(session *stripe.CheckoutSession) (uuid.UUID, error) {
	raw, ok := session.Metadata[payments.MetadataOrderIDKey]
	if !ok || raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id missing from session metadata")
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse order id metadata")
	}
	return orderID, nil
}
