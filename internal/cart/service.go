package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/soltanba/shoplane-backend/pkg/db/models"
	pkgerrors "github.com/soltanba/shoplane-backend/pkg/errors"
	"github.com/soltanba/shoplane-backend/pkg/money"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service exposes the cart aggregate operations.
type Service interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*CartResponse, error)
	GetTotal(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	AddItem(ctx context.Context, userID uuid.UUID, req AddItemRequest) (*CartResponse, error)
	UpdateItemQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (*CartResponse, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*CartResponse, error)
}

type service struct {
	repo     *Repository
	products productReader
	tx       txRunner
}

// NewService builds a cart service with the provided dependencies.
func NewService(repo *Repository, products productReader, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository is required")
	}
	if products == nil {
		return nil, fmt.Errorf("product reader is required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	return &service{repo: repo, products: products, tx: tx}, nil
}

func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (*CartResponse, error) {
	cart, err := s.loadCart(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}
	resp := FromModel(cart)
	return &resp, nil
}

func (s *service) GetTotal(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	cart, err := s.loadCart(ctx, s.repo, userID)
	if err != nil {
		return decimal.Zero, err
	}

	// The cached total must always agree with the line totals; a drift
	// means a bug elsewhere, so treat it as an internal error rather than
	// silently repairing it.
	computed := sumItems(cart.Items)
	if !computed.Equal(cart.TotalAmount) {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeInternal,
			fmt.Sprintf("cart total %s does not match line totals %s", cart.TotalAmount, computed))
	}
	return cart.TotalAmount, nil
}

func (s *service) AddItem(ctx context.Context, userID uuid.UUID, req AddItemRequest) (*CartResponse, error) {
	if req.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var result *CartResponse
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cart, err := s.loadCart(ctx, repo, userID)
		if err != nil {
			return err
		}

		product, err := s.products.FindByID(ctx, req.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}

		item, err := repo.FindItem(ctx, cart.ID, req.ProductID)
		switch {
		case err == nil:
			// existing line accumulates quantity and keeps its price snapshot
			item.Quantity += req.Quantity
			item.TotalPrice = money.LineTotal(item.UnitPrice, item.Quantity)
			if err := repo.UpdateItem(ctx, item); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			item = &models.CartItem{
				CartID:     cart.ID,
				ProductID:  product.ID,
				Quantity:   req.Quantity,
				UnitPrice:  product.Price,
				TotalPrice: money.LineTotal(product.Price, req.Quantity),
			}
			if err := repo.CreateItem(ctx, item); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart item")
			}
		default:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
		}

		result, err = s.refreshTotal(ctx, repo, cart.ID, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) UpdateItemQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (*CartResponse, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var result *CartResponse
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cart, err := s.loadCart(ctx, repo, userID)
		if err != nil {
			return err
		}

		item, err := repo.FindItem(ctx, cart.ID, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
		}

		product, err := s.products.FindByID(ctx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}

		// replacing the quantity re-snapshots the current catalog price
		item.Quantity = quantity
		item.UnitPrice = product.Price
		item.TotalPrice = money.LineTotal(product.Price, quantity)
		if err := repo.UpdateItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
		}

		result, err = s.refreshTotal(ctx, repo, cart.ID, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*CartResponse, error) {
	var result *CartResponse
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cart, err := s.loadCart(ctx, repo, userID)
		if err != nil {
			return err
		}

		item, err := repo.FindItem(ctx, cart.ID, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
		}

		if err := repo.DeleteItem(ctx, item.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item")
		}

		result, err = s.refreshTotal(ctx, repo, cart.ID, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) loadCart(ctx context.Context, repo *Repository, userID uuid.UUID) (*models.Cart, error) {
	cart, err := repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return cart, nil
}

// refreshTotal recomputes the cached cart total from the surviving lines and
// returns the updated view.
func (s *service) refreshTotal(ctx context.Context, repo *Repository, cartID, userID uuid.UUID) (*CartResponse, error) {
	cart, err := repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload cart")
	}

	total := sumItems(cart.Items)
	if err := repo.UpdateTotal(ctx, cartID, total); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart total")
	}
	cart.TotalAmount = total

	resp := FromModel(cart)
	return &resp, nil
}

func sumItems(items []models.CartItem) decimal.Decimal {
	totals := make([]decimal.Decimal, 0, len(items))
	for _, item := range items {
		totals = append(totals, item.TotalPrice)
	}
	return money.Sum(totals...)
}
