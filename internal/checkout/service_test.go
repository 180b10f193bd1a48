package checkout

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/soltanba/shoplane-backend/internal/cart"
	"github.com/soltanba/shoplane-backend/internal/inventory"
	"github.com/soltanba/shoplane-backend/internal/orders"
	"github.com/soltanba/shoplane-backend/internal/products"
	"github.com/soltanba/shoplane-backend/pkg/db/models"
	"github.com/soltanba/shoplane-backend/pkg/enums"
	pkgerrors "github.com/soltanba/shoplane-backend/pkg/errors"
	"github.com/soltanba/shoplane-backend/pkg/logger"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupCheckoutTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  brand TEXT NOT NULL,
  category TEXT NOT NULL,
  description TEXT,
  price NUMERIC NOT NULL,
  inventory INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS carts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  total_amount NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price NUMERIC NOT NULL,
  total_price NUMERIC NOT NULL,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (cart_id, product_id)
);`, `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  order_date DATETIME NOT NULL,
  total_amount NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'PENDING',
  payment_status TEXT NOT NULL DEFAULT 'pending',
  stripe_session_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price NUMERIC NOT NULL,
  created_at DATETIME
);`}

	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type checkoutFixture struct {
	db  *gorm.DB
	svc Service
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()

	db := setupCheckoutTestDB(t)
	logg := logger.New(logger.Options{ServiceName: "checkout-test", Output: io.Discard})

	svc, err := NewService(ServiceParams{
		Tx:       gormTxRunner{db: db},
		Carts:    cart.NewRepository(db),
		Orders:   orders.NewRepository(db),
		Products: products.NewRepository(db),
		Logger:   logg,
	})
	require.NoError(t, err)

	return &checkoutFixture{db: db, svc: svc}
}

func (f *checkoutFixture) seedUserWithCart(t *testing.T) (uuid.UUID, *models.Cart) {
	t.Helper()
	userID := uuid.New()
	userCart := &models.Cart{UserID: userID}
	require.NoError(t, f.db.Create(userCart).Error)
	return userID, userCart
}

func (f *checkoutFixture) seedProduct(t *testing.T, name, price string, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:      name,
		Brand:     "Peakline",
		Category:  "misc",
		Price:     decimal.RequireFromString(price),
		Inventory: stock,
	}
	require.NoError(t, f.db.Create(product).Error)
	return product
}

func (f *checkoutFixture) seedCartItem(t *testing.T, cartID uuid.UUID, product *models.Product, qty int) {
	t.Helper()
	unit := product.Price
	item := &models.CartItem{
		CartID:     cartID,
		ProductID:  product.ID,
		Quantity:   qty,
		UnitPrice:  unit,
		TotalPrice: unit.Mul(decimal.NewFromInt(int64(qty))),
	}
	require.NoError(t, f.db.Create(item).Error)

	var total decimal.Decimal
	var items []models.CartItem
	require.NoError(t, f.db.Find(&items, "cart_id = ?", cartID).Error)
	for _, it := range items {
		total = total.Add(it.TotalPrice)
	}
	require.NoError(t, f.db.Model(&models.Cart{}).
		Where("id = ?", cartID).
		UpdateColumn("total_amount", total).Error)
}

func (f *checkoutFixture) stockOf(t *testing.T, productID uuid.UUID) int {
	t.Helper()
	var product models.Product
	require.NoError(t, f.db.First(&product, "id = ?", productID).Error)
	return product.Inventory
}

func TestPlaceOrder(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	userID, userCart := f.seedUserWithCart(t)
	productA := f.seedProduct(t, "Trail Runner", "10.00", 2)
	productB := f.seedProduct(t, "Summit Jacket", "5.00", 4)
	f.seedCartItem(t, userCart.ID, productA, 2)
	f.seedCartItem(t, userCart.ID, productB, 1)

	order, err := f.svc.PlaceOrder(ctx, userID)
	require.NoError(t, err)

	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("25.00")))
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)
	require.Len(t, order.Items, 2)

	assert.Equal(t, 0, f.stockOf(t, productA.ID))
	assert.Equal(t, 3, f.stockOf(t, productB.ID))

	// the cart survives, its items do not
	var storedCart models.Cart
	require.NoError(t, f.db.Preload("Items").First(&storedCart, "id = ?", userCart.ID).Error)
	assert.Empty(t, storedCart.Items)
	assert.True(t, storedCart.TotalAmount.IsZero())

	// the order row exists with frozen lines
	var storedOrder models.Order
	require.NoError(t, f.db.Preload("Items").First(&storedOrder, "id = ?", order.ID).Error)
	assert.Equal(t, userID, storedOrder.UserID)
	require.Len(t, storedOrder.Items, 2)
}

func TestPlaceOrderInsufficientInventoryRollsBack(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	userID, userCart := f.seedUserWithCart(t)
	productA := f.seedProduct(t, "Trail Runner", "10.00", 5)
	productB := f.seedProduct(t, "Summit Jacket", "5.00", 1)
	f.seedCartItem(t, userCart.ID, productA, 2)
	f.seedCartItem(t, userCart.ID, productB, 3)

	_, err := f.svc.PlaceOrder(ctx, userID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeInsufficientInventory, pkgerrors.As(err).Code())

	// nothing changed: stock, cart, order store
	assert.Equal(t, 5, f.stockOf(t, productA.ID))
	assert.Equal(t, 1, f.stockOf(t, productB.ID))

	var storedCart models.Cart
	require.NoError(t, f.db.Preload("Items").First(&storedCart, "id = ?", userCart.ID).Error)
	assert.Len(t, storedCart.Items, 2)

	var orderCount int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Zero(t, orderCount)
}

func TestPlaceOrderRaceOnLastUnit(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	product := f.seedProduct(t, "Trail Runner", "10.00", 1)

	firstUser, firstCart := f.seedUserWithCart(t)
	secondUser, secondCart := f.seedUserWithCart(t)
	f.seedCartItem(t, firstCart.ID, product, 1)
	f.seedCartItem(t, secondCart.ID, product, 1)

	_, err := f.svc.PlaceOrder(ctx, firstUser)
	require.NoError(t, err)

	// the second cart references the same unit; the conditional decrement
	// refuses to oversell
	_, err = f.svc.PlaceOrder(ctx, secondUser)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeInsufficientInventory, pkgerrors.As(err).Code())

	assert.Equal(t, 0, f.stockOf(t, product.ID))

	var orderCount int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Equal(t, int64(1), orderCount)
}

func TestPlaceOrderCartConsumedConcurrently(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	userID, userCart := f.seedUserWithCart(t)
	product := f.seedProduct(t, "Trail Runner", "10.00", 4)
	f.seedCartItem(t, userCart.ID, product, 2)

	// a rival checkout of the same cart commits between the cart read and
	// the clear, so the lines are gone by the time this transaction clears
	impl := f.svc.(*service)
	impl.deplete = func(ctx context.Context, tx *gorm.DB, demands []inventory.Demand) error {
		if err := inventory.Deplete(ctx, tx, demands); err != nil {
			return err
		}
		return tx.WithContext(ctx).Delete(&models.CartItem{}, "cart_id = ?", userCart.ID).Error
	}

	_, err := f.svc.PlaceOrder(ctx, userID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())

	// the whole unit rolled back: stock intact, lines back, no order
	assert.Equal(t, 4, f.stockOf(t, product.ID))

	var items []models.CartItem
	require.NoError(t, f.db.Find(&items, "cart_id = ?", userCart.ID).Error)
	assert.Len(t, items, 1)

	var orderCount int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Zero(t, orderCount)
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	f := newCheckoutFixture(t)

	userID, _ := f.seedUserWithCart(t)
	_, err := f.svc.PlaceOrder(context.Background(), userID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestPlaceOrderMissingCart(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.svc.PlaceOrder(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestCancelOrderRestoresStock(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	userID, userCart := f.seedUserWithCart(t)
	product := f.seedProduct(t, "Trail Runner", "10.00", 5)
	f.seedCartItem(t, userCart.ID, product, 3)

	order, err := f.svc.PlaceOrder(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, f.stockOf(t, product.ID))

	cancelled, err := f.svc.CancelOrder(ctx, userID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, 5, f.stockOf(t, product.ID))

	var stored models.Order
	require.NoError(t, f.db.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusCancelled, stored.Status)
}

func TestCancelOrderRejectsPaidOrder(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	userID, userCart := f.seedUserWithCart(t)
	product := f.seedProduct(t, "Trail Runner", "10.00", 5)
	f.seedCartItem(t, userCart.ID, product, 3)

	order, err := f.svc.PlaceOrder(ctx, userID)
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&models.Order{}).
		Where("id = ?", order.ID).
		UpdateColumn("payment_status", enums.PaymentStatusPaid).Error)

	_, err = f.svc.CancelOrder(ctx, userID, order.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())

	// nothing came back to stock
	assert.Equal(t, 2, f.stockOf(t, product.ID))
}

func TestCancelOrderForeignOrder(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	userID, userCart := f.seedUserWithCart(t)
	product := f.seedProduct(t, "Trail Runner", "10.00", 5)
	f.seedCartItem(t, userCart.ID, product, 1)

	order, err := f.svc.PlaceOrder(ctx, userID)
	require.NoError(t, err)

	_, err = f.svc.CancelOrder(ctx, uuid.New(), order.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestOrderItemsKeepCheckoutTimePrice(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	userID, userCart := f.seedUserWithCart(t)
	product := f.seedProduct(t, "Trail Runner", "10.00", 5)
	f.seedCartItem(t, userCart.ID, product, 2)

	order, err := f.svc.PlaceOrder(ctx, userID)
	require.NoError(t, err)

	// raise the catalog price after the fact
	require.NoError(t, f.db.Model(&models.Product{}).
		Where("id = ?", product.ID).
		UpdateColumn("price", decimal.RequireFromString("42.00")).Error)

	var items []models.OrderItem
	require.NoError(t, f.db.Find(&items, "order_id = ?", order.ID).Error)
	require.Len(t, items, 1)
	assert.True(t, items[0].UnitPrice.Equal(decimal.RequireFromString("10.00")))
}
