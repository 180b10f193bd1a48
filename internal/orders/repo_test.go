package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/soltanba/shoplane-backend/pkg/db/models"
	"github.com/soltanba/shoplane-backend/pkg/enums"
	pkgerrors "github.com/soltanba/shoplane-backend/pkg/errors"
	"github.com/soltanba/shoplane-backend/pkg/pagination"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
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

func seedOrder(t *testing.T, db *gorm.DB, userID uuid.UUID, total string) *models.Order {
	t.Helper()
	order := &models.Order{
		UserID:        userID,
		OrderDate:     time.Now().UTC(),
		TotalAmount:   decimal.RequireFromString(total),
		Status:        enums.OrderStatusPending,
		PaymentStatus: enums.PaymentStatusPending,
		Items: []models.OrderItem{
			{ProductID: uuid.New(), ProductName: "Trail Runner", Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
		},
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func newOrdersService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc
}

func TestGetOrderOwnership(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newOrdersService(t, db)
	ctx := context.Background()

	owner := uuid.New()
	order := seedOrder(t, db, owner, "20.00")

	got, err := svc.GetOrder(ctx, owner, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
	require.Len(t, got.Items, 1)
	assert.True(t, got.Items[0].LineTotal.Equal(decimal.RequireFromString("20.00")))

	// someone else's order looks like a missing one
	_, err = svc.GetOrder(ctx, uuid.New(), order.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	_, err = svc.GetOrder(ctx, owner, uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestListUserOrdersPagination(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newOrdersService(t, db)
	ctx := context.Background()

	userID := uuid.New()
	for i := 0; i < 3; i++ {
		seedOrder(t, db, userID, "10.00")
		time.Sleep(5 * time.Millisecond)
	}
	seedOrder(t, db, uuid.New(), "99.00") // other user's order stays invisible

	page, err := svc.ListUserOrders(ctx, userID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Orders, 2)
	require.NotEmpty(t, page.NextCursor)

	rest, err := svc.ListUserOrders(ctx, userID, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Orders, 1)
	assert.Empty(t, rest.NextCursor)
}

func TestMarkPaymentStatusTransitions(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newOrdersService(t, db)
	ctx := context.Background()

	order := seedOrder(t, db, uuid.New(), "20.00")

	require.NoError(t, svc.MarkPaymentStatus(ctx, order.ID, enums.PaymentStatusPaid))

	// replay is a silent no-op
	require.NoError(t, svc.MarkPaymentStatus(ctx, order.ID, enums.PaymentStatusPaid))

	// a settled payment never becomes failed
	err := svc.MarkPaymentStatus(ctx, order.ID, enums.PaymentStatusFailed)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())

	var stored models.Order
	require.NoError(t, db.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, enums.PaymentStatusPaid, stored.PaymentStatus)
}

func TestMarkPaymentStatusFailedRetry(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newOrdersService(t, db)
	ctx := context.Background()

	order := seedOrder(t, db, uuid.New(), "20.00")

	require.NoError(t, svc.MarkPaymentStatus(ctx, order.ID, enums.PaymentStatusFailed))
	// a failed payment may retry through pending to paid
	require.NoError(t, svc.MarkPaymentStatus(ctx, order.ID, enums.PaymentStatusPending))
	require.NoError(t, svc.MarkPaymentStatus(ctx, order.ID, enums.PaymentStatusPaid))

	var stored models.Order
	require.NoError(t, db.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, enums.PaymentStatusPaid, stored.PaymentStatus)
}

func TestMarkPaymentStatusUnknownOrder(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newOrdersService(t, db)

	err := svc.MarkPaymentStatus(context.Background(), uuid.New(), enums.PaymentStatusPaid)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestSetStripeSession(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, uuid.New(), "20.00")
	require.NoError(t, repo.SetStripeSession(ctx, order.ID, "cs_test_123"))

	stored, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.StripeSessionID)
	assert.Equal(t, "cs_test_123", *stored.StripeSessionID)

	assert.ErrorIs(t, repo.SetStripeSession(ctx, uuid.New(), "cs_x"), gorm.ErrRecordNotFound)
}
