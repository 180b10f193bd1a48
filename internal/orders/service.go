package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soltanba/shoplane-backend/pkg/enums"
	pkgerrors "github.com/soltanba/shoplane-backend/pkg/errors"
	"github.com/soltanba/shoplane-backend/pkg/pagination"
)

// Service exposes order reads and payment-status reconciliation.
type Service interface {
	GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*OrderResponse, error)
	ListUserOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderPage, error)
	MarkPaymentStatus(ctx context.Context, orderID uuid.UUID, target enums.PaymentStatus) error
}

type service struct {
	repo *Repository
}

// NewService builds an order service around the orders repository.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*OrderResponse, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	// a foreign order is indistinguishable from a missing one
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	resp := FromModel(order)
	return &resp, nil
}

func (s *service) ListUserOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderPage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListByUser(ctx, userID, cursor, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	page := &OrderPage{Orders: make([]OrderResponse, 0, len(rows))}
	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	for i := range rows {
		page.Orders = append(page.Orders, FromModel(&rows[i]))
	}
	if hasMore {
		last := rows[len(rows)-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return page, nil
}

// MarkPaymentStatus advances an order's payment status. The write is
// conditional on the current status, so concurrent duplicate deliveries
// settle on a single effective transition. Re-applying the status an order
// already carries is a no-op, and nothing transitions out of a settled
// payment.
func (s *service) MarkPaymentStatus(ctx context.Context, orderID uuid.UUID, target enums.PaymentStatus) error {
	if !target.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment status %q", target))
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	current := order.PaymentStatus
	if current == target {
		return nil
	}
	if !current.CanTransitionTo(target) {
		return pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("payment status cannot move from %s to %s", current, target))
	}

	affected, err := s.repo.UpdatePaymentStatusIf(ctx, orderID, current, target)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
	}
	if affected > 0 {
		return nil
	}

	// lost a race; accept if the winner applied the same transition
	latest, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	if latest.PaymentStatus == target {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeConflict,
		fmt.Sprintf("payment status cannot move from %s to %s", latest.PaymentStatus, target))
}
