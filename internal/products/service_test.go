package products

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/soltanba/shoplane-backend/pkg/errors"
	"github.com/soltanba/shoplane-backend/pkg/pagination"
)

func newCatalog(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(NewRepository(setupProductsTestDB(t)))
	require.NoError(t, err)
	return svc
}

func TestCreateAndGetProduct(t *testing.T) {
	svc := newCatalog(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateProductRequest{
		Name:      "Trail Runner",
		Brand:     "Peakline",
		Category:  "shoes",
		Price:     decimal.RequireFromString("89.99"),
		Inventory: 12,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Trail Runner", got.Name)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("89.99")))
	assert.Equal(t, 12, got.Inventory)
}

func TestCreateProductDuplicateNameBrand(t *testing.T) {
	svc := newCatalog(t)
	ctx := context.Background()

	req := CreateProductRequest{
		Name:     "Trail Runner",
		Brand:    "Peakline",
		Category: "shoes",
		Price:    decimal.RequireFromString("89.99"),
	}
	_, err := svc.Create(ctx, req)
	require.NoError(t, err)

	_, err = svc.Create(ctx, req)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeAlreadyExists, pkgerrors.As(err).Code())

	// same name under another brand is fine
	req.Brand = "Summitwear"
	_, err = svc.Create(ctx, req)
	require.NoError(t, err)
}

func TestUpdateProduct(t *testing.T) {
	svc := newCatalog(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateProductRequest{
		Name:     "Trail Runner",
		Brand:    "Peakline",
		Category: "shoes",
		Price:    decimal.RequireFromString("89.99"),
	})
	require.NoError(t, err)

	newPrice := decimal.RequireFromString("79.99")
	newStock := 5
	updated, err := svc.Update(ctx, created.ID, UpdateProductRequest{Price: &newPrice, Inventory: &newStock})
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(newPrice))
	assert.Equal(t, 5, updated.Inventory)

	_, err = svc.Update(ctx, uuid.New(), UpdateProductRequest{Inventory: &newStock})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	_, err = svc.Update(ctx, created.ID, UpdateProductRequest{})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestDeleteProduct(t *testing.T) {
	svc := newCatalog(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateProductRequest{
		Name:     "Trail Runner",
		Brand:    "Peakline",
		Category: "shoes",
		Price:    decimal.RequireFromString("89.99"),
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))

	_, err = svc.Get(ctx, created.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	err = svc.Delete(ctx, created.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestListProductsFiltersAndPagination(t *testing.T) {
	svc := newCatalog(t)
	ctx := context.Background()

	for i, name := range []string{"Alpha Boot", "Beta Boot", "Gamma Sandal"} {
		inventory := i // Alpha has zero stock
		_, err := svc.Create(ctx, CreateProductRequest{
			Name:      name,
			Brand:     "Peakline",
			Category:  "shoes",
			Price:     decimal.RequireFromString("50.00"),
			Inventory: inventory,
		})
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond) // distinct created_at ordering
	}

	page, err := svc.List(ctx, ListFilter{}, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Products, 2)
	require.NotEmpty(t, page.NextCursor)
	assert.Equal(t, "Gamma Sandal", page.Products[0].Name)

	rest, err := svc.List(ctx, ListFilter{}, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Products, 1)
	assert.Empty(t, rest.NextCursor)
	assert.Equal(t, "Alpha Boot", rest.Products[0].Name)

	inStock, err := svc.List(ctx, ListFilter{InStock: true}, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, inStock.Products, 2)

	search, err := svc.List(ctx, ListFilter{Search: "boot"}, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, search.Products, 2)
}

func TestListCategoriesDistinctSorted(t *testing.T) {
	svc := newCatalog(t)
	ctx := context.Background()

	seed := []struct {
		name     string
		category string
	}{
		{"Trail Runner", "shoes"},
		{"Ridge Boot", "shoes"},
		{"Storm Shell", "jackets"},
		{"Mystery Crate", ""},
	}
	for _, p := range seed {
		_, err := svc.Create(ctx, CreateProductRequest{
			Name:     p.name,
			Brand:    "Peakline",
			Category: p.category,
			Price:    decimal.RequireFromString("50.00"),
		})
		require.NoError(t, err)
	}

	categories, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"jackets", "shoes"}, categories)
}
