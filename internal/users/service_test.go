package users

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/soltanba/shoplane-backend/pkg/db/models"
	pkgerrors "github.com/soltanba/shoplane-backend/pkg/errors"
)

func setupUsersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
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
);`}

	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type usersFixture struct {
	db  *gorm.DB
	svc Service
}

func newUsersFixture(t *testing.T) *usersFixture {
	t.Helper()

	db := setupUsersTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return &usersFixture{db: db, svc: svc}
}

func (f *usersFixture) seedUser(t *testing.T, email string) *models.User {
	t.Helper()
	user, err := NewRepository(f.db).Create(context.Background(), CreateUserDTO{
		Email:        email,
		PasswordHash: "x",
		FirstName:    "Pat",
		LastName:     "Doe",
	})
	require.NoError(t, err)
	return user
}

func TestGetProfile(t *testing.T) {
	f := newUsersFixture(t)
	user := f.seedUser(t, "buyer@example.com")

	profile, err := f.svc.GetProfile(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, profile.ID)
	assert.Equal(t, "buyer@example.com", profile.Email)
	assert.Equal(t, "Pat", profile.FirstName)
}

func TestGetProfileUnknownUser(t *testing.T) {
	f := newUsersFixture(t)

	_, err := f.svc.GetProfile(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestUpdateProfile(t *testing.T) {
	f := newUsersFixture(t)
	user := f.seedUser(t, "buyer@example.com")

	profile, err := f.svc.UpdateProfile(context.Background(), user.ID, UpdateProfileRequest{
		FirstName: "  Sam ",
		LastName:  "Rivera",
	})
	require.NoError(t, err)
	assert.Equal(t, "Sam", profile.FirstName)
	assert.Equal(t, "Rivera", profile.LastName)
	// email is not part of the profile update surface
	assert.Equal(t, "buyer@example.com", profile.Email)
}

func TestUpdateProfileRejectsBlankNames(t *testing.T) {
	f := newUsersFixture(t)
	user := f.seedUser(t, "buyer@example.com")

	_, err := f.svc.UpdateProfile(context.Background(), user.ID, UpdateProfileRequest{FirstName: "  ", LastName: "Doe"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestUpdateProfileUnknownUser(t *testing.T) {
	f := newUsersFixture(t)

	_, err := f.svc.UpdateProfile(context.Background(), uuid.New(), UpdateProfileRequest{FirstName: "Pat", LastName: "Doe"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestDeleteAccountRemovesCart(t *testing.T) {
	f := newUsersFixture(t)
	user := f.seedUser(t, "buyer@example.com")

	item := &models.CartItem{
		CartID:    user.Cart.ID,
		ProductID: uuid.New(),
		Quantity:  1,
	}
	require.NoError(t, f.db.Create(item).Error)

	require.NoError(t, f.svc.DeleteAccount(context.Background(), user.ID))

	var userCount, cartCount, itemCount int64
	require.NoError(t, f.db.Model(&models.User{}).Count(&userCount).Error)
	require.NoError(t, f.db.Model(&models.Cart{}).Count(&cartCount).Error)
	require.NoError(t, f.db.Model(&models.CartItem{}).Count(&itemCount).Error)
	assert.Zero(t, userCount)
	assert.Zero(t, cartCount)
	assert.Zero(t, itemCount)
}

func TestDeleteAccountUnknownUser(t *testing.T) {
	f := newUsersFixture(t)

	err := f.svc.DeleteAccount(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
