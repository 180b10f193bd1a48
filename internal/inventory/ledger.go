package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soltanba/shoplane-backend/pkg/db/models"
	pkgerrors "github.com/soltanba/shoplane-backend/pkg/errors"
)

// Demand asks for a quantity of one product to be taken from stock.
type Demand struct {
	ProductID uuid.UUID
	Quantity  int
}

// Shortfall reports a product whose stock could not cover the demand.
type Shortfall struct {
	ProductID uuid.UUID `json:"product_id"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

// Deplete atomically decrements product stock for every demand, inside the
// caller's transaction. Rows are visited in product-id order so concurrent
// checkouts acquire locks deterministically. The decrement is conditional on
// sufficient stock, so two racing transactions can never drive a count
// negative: the loser's conditional update matches zero rows and the whole
// batch fails. Any failure leaves the transaction poisoned for rollback.
func Deplete(ctx context.Context, tx *gorm.DB, demands []Demand) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for inventory depletion")
	}
	if len(demands) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "no inventory demands provided")
	}

	merged, err := mergeDemands(demands)
	if err != nil {
		return err
	}

	for _, demand := range merged {
		res := tx.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ? AND inventory >= ?", demand.ProductID, demand.Quantity).
			UpdateColumn("inventory", gorm.Expr("inventory - ?", demand.Quantity))
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "decrement inventory")
		}
		if res.RowsAffected == 0 {
			return insufficientError(ctx, tx, demand)
		}
	}
	return nil
}

// Restock adds stock back to a product, typically after a rejected or
// cancelled order line.
func Restock(ctx context.Context, tx *gorm.DB, productID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "restock quantity must be positive")
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for restock")
	}

	res := tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("inventory", gorm.Expr("inventory + ?", quantity))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "restock inventory")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

// mergeDemands folds duplicate product references together and fixes the
// visit order.
func mergeDemands(demands []Demand) ([]Demand, error) {
	byProduct := make(map[uuid.UUID]int, len(demands))
	for _, demand := range demands {
		if demand.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "demand product id required")
		}
		if demand.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("demand quantity must be positive for product %s", demand.ProductID))
		}
		byProduct[demand.ProductID] += demand.Quantity
	}

	merged := make([]Demand, 0, len(byProduct))
	for id, qty := range byProduct {
		merged = append(merged, Demand{ProductID: id, Quantity: qty})
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].ProductID.String() < merged[j].ProductID.String()
	})
	return merged, nil
}

func insufficientError(ctx context.Context, tx *gorm.DB, demand Demand) error {
	var product models.Product
	err := tx.WithContext(ctx).
		Select("id", "inventory").
		First(&product, "id = ?", demand.ProductID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product stock")
	}

	return pkgerrors.New(pkgerrors.CodeInsufficientInventory, "insufficient inventory").
		WithDetails([]Shortfall{{
			ProductID: demand.ProductID,
			Requested: demand.Quantity,
			Available: product.Inventory,
		}})
}
