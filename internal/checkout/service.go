package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/soltanba/shoplane-backend/internal/cart"
	"github.com/soltanba/shoplane-backend/internal/inventory"
	"github.com/soltanba/shoplane-backend/internal/orders"
	"github.com/soltanba/shoplane-backend/internal/products"
	"github.com/soltanba/shoplane-backend/pkg/db/models"
	"github.com/soltanba/shoplane-backend/pkg/enums"
	pkgerrors "github.com/soltanba/shoplane-backend/pkg/errors"
	"github.com/soltanba/shoplane-backend/pkg/logger"
	"github.com/soltanba/shoplane-backend/pkg/metrics"
	"github.com/soltanba/shoplane-backend/pkg/money"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// depleteFunc matches inventory.Deplete; swappable in tests.
type depleteFunc func(ctx context.Context, tx *gorm.DB, demands []inventory.Demand) error

// Service converts a user's cart into a durable order and voids orders
// that never reached payment.
type Service interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID) (*orders.OrderResponse, error)
	CancelOrder(ctx context.Context, userID, orderID uuid.UUID) (*orders.OrderResponse, error)
}

type service struct {
	tx       txRunner
	carts    *cart.Repository
	orders   *orders.Repository
	products *products.Repository
	deplete  depleteFunc
	logg     *logger.Logger
	metrics  *metrics.CheckoutMetrics
}

// ServiceParams bundles the checkout orchestrator's dependencies.
type ServiceParams struct {
	Tx       txRunner
	Carts    *cart.Repository
	Orders   *orders.Repository
	Products *products.Repository
	Logger   *logger.Logger
	Metrics  *metrics.CheckoutMetrics
}

// NewService builds the checkout orchestrator.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:       params.Tx,
		carts:    params.Carts,
		orders:   params.Orders,
		products: params.Products,
		deplete:  inventory.Deplete,
		logg:     params.Logger,
		metrics:  params.Metrics,
	}, nil
}

// PlaceOrder runs the whole checkout as one transaction: stock check and
// decrement, order creation with frozen lines, and clearing the cart's
// items. Any failure rolls the whole unit back, so a losing concurrent
// checkout leaves no partial state behind. The cart row itself survives so
// the account can keep shopping.
func (s *service) PlaceOrder(ctx context.Context, userID uuid.UUID) (*orders.OrderResponse, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	var result *orders.OrderResponse
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		carts := s.carts.WithTx(tx)
		ordersRepo := s.orders.WithTx(tx)
		products := s.products.WithTx(tx)

		userCart, err := carts.FindByUserID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if len(userCart.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
		}

		demands := make([]inventory.Demand, len(userCart.Items))
		for i, item := range userCart.Items {
			demands[i] = inventory.Demand{ProductID: item.ProductID, Quantity: item.Quantity}
		}
		if err := s.deplete(ctx, tx, demands); err != nil {
			return err
		}

		order := &models.Order{
			UserID:        userID,
			OrderDate:     time.Now().UTC(),
			Status:        enums.OrderStatusPending,
			PaymentStatus: enums.PaymentStatusPending,
			Items:         make([]models.OrderItem, 0, len(userCart.Items)),
		}

		for _, item := range userCart.Items {
			product, err := products.FindByID(ctx, item.ProductID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
			}
			order.Items = append(order.Items, models.OrderItem{
				ProductID:   item.ProductID,
				ProductName: product.Name,
				Quantity:    item.Quantity,
				UnitPrice:   item.UnitPrice,
			})
		}

		totals := make([]decimal.Decimal, 0, len(order.Items))
		for _, item := range order.Items {
			totals = append(totals, money.LineTotal(item.UnitPrice, item.Quantity))
		}
		order.TotalAmount = money.Sum(totals...)

		if _, err := ordersRepo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		cleared, err := carts.ClearItems(ctx, userCart.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart items")
		}
		// A concurrent checkout of the same cart already consumed these
		// lines; committing here would press the cart into a second order.
		if cleared != int64(len(userCart.Items)) {
			return pkgerrors.New(pkgerrors.CodeConflict, "cart changed during checkout")
		}
		if err := carts.UpdateTotal(ctx, userCart.ID, decimal.Zero); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset cart total")
		}

		resp := orders.FromModel(order)
		result = &resp
		return nil
	})
	if err != nil {
		s.recordFailure(ctx, userID, err)
		return nil, err
	}

	ctx = s.logg.WithOrderID(s.logg.WithUserID(ctx, userID.String()), result.ID.String())
	s.logg.Info(ctx, "order placed")
	if s.metrics != nil {
		s.metrics.IncPlaced()
	}
	return result, nil
}

// CancelOrder voids a pending, unpaid order owned by the user and returns
// its units to stock. Cancellation and restock commit together.
func (s *service) CancelOrder(ctx context.Context, userID, orderID uuid.UUID) (*orders.OrderResponse, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	var result *orders.OrderResponse
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.orders.WithTx(tx)

		order, err := ordersRepo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.UserID != userID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.PaymentStatus == enums.PaymentStatusPaid {
			return pkgerrors.New(pkgerrors.CodeConflict, "paid orders cannot be cancelled")
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("order in status %s cannot be cancelled", order.Status))
		}

		for _, item := range order.Items {
			if err := inventory.Restock(ctx, tx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		if err := ordersRepo.UpdateStatus(ctx, order.ID, enums.OrderStatusCancelled); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		order.Status = enums.OrderStatusCancelled

		resp := orders.FromModel(order)
		result = &resp
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(s.logg.WithUserID(ctx, userID.String()), orderID.String())
	s.logg.Info(ctx, "order cancelled")
	return result, nil
}

func (s *service) recordFailure(ctx context.Context, userID uuid.UUID, err error) {
	reason := "internal"
	if typed := pkgerrors.As(err); typed != nil {
		reason = string(typed.Code())
	}
	if s.metrics != nil {
		s.metrics.IncFailure(reason)
	}
	s.logg.Warn(s.logg.WithUserID(ctx, userID.String()), fmt.Sprintf("checkout failed: %v", err))
}
