package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	productsvc "github.com/soltanba/shoplane-backend/internal/products"
	pkgerrors "github.com/soltanba/shoplane-backend/pkg/errors"
	"github.com/soltanba/shoplane-backend/pkg/pagination"
)

type stubProductService struct {
	product    *productsvc.ProductResponse
	page       *productsvc.ProductPage
	categories []string
	err        error

	lastFilter productsvc.ListFilter
}

func (s *stubProductService) Create(ctx context.Context, req productsvc.CreateProductRequest) (*productsvc.ProductResponse, error) {
	return s.product, s.err
}

func (s *stubProductService) Update(ctx context.Context, id uuid.UUID, req productsvc.UpdateProductRequest) (*productsvc.ProductResponse, error) {
	return s.product, s.err
}

func (s *stubProductService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.err
}

func (s *stubProductService) Get(ctx context.Context, id uuid.UUID) (*productsvc.ProductResponse, error) {
	return s.product, s.err
}

func (s *stubProductService) List(ctx context.Context, filter productsvc.ListFilter, params pagination.Params) (*productsvc.ProductPage, error) {
	s.lastFilter = filter
	return s.page, s.err
}

func (s *stubProductService) ListCategories(ctx context.Context) ([]string, error) {
	return s.categories, s.err
}

func TestCreateProductRejectsMissingFields(t *testing.T) {
	handler := CreateProduct(&stubProductService{}, controllersTestLogger())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/products", []byte(`{"name":"Trail Runner"}`), uuid.New()))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateProductCreated(t *testing.T) {
	svc := &stubProductService{product: &productsvc.ProductResponse{ID: uuid.New()}}
	handler := CreateProduct(svc, controllersTestLogger())

	body := []byte(`{"name":"Trail Runner","brand":"Summit","category":"shoes","price":"79.99","inventory":10}`)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/products", body, uuid.New()))

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateProductDuplicateConflict(t *testing.T) {
	svc := &stubProductService{err: pkgerrors.New(pkgerrors.CodeAlreadyExists, "product already listed")}
	handler := CreateProduct(svc, controllersTestLogger())

	body := []byte(`{"name":"Trail Runner","brand":"Summit","category":"shoes","price":"79.99","inventory":10}`)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/products", body, uuid.New()))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListProductsAppliesFilters(t *testing.T) {
	svc := &stubProductService{page: &productsvc.ProductPage{}}
	handler := ListProducts(svc, controllersTestLogger())

	rec := httptest.NewRecorder()
	target := "/api/v1/products?category=shoes&brand=Summit&search=trail&in_stock=true"
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "shoes", svc.lastFilter.Category)
	assert.Equal(t, "Summit", svc.lastFilter.Brand)
	assert.Equal(t, "trail", svc.lastFilter.Search)
	assert.True(t, svc.lastFilter.InStock)
}

func TestListProductCategories(t *testing.T) {
	svc := &stubProductService{categories: []string{"jackets", "shoes"}}
	handler := ListProductCategories(svc, controllersTestLogger())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products/categories", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data []string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, []string{"jackets", "shoes"}, envelope.Data)
}
