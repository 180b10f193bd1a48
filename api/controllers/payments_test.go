package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	paymentsvc "github.com/soltanba/shoplane-backend/internal/payments"
	pkgerrors "github.com/soltanba/shoplane-backend/pkg/errors"
)

type stubPaymentService struct {
	session *paymentsvc.SessionResponse
	err     error

	lastOrderID uuid.UUID
}

func (s *stubPaymentService) CreateCheckoutSession(ctx context.Context, userID, orderID uuid.UUID) (*paymentsvc.SessionResponse, error) {
	s.lastOrderID = orderID
	return s.session, s.err
}

func paymentRouter(svc paymentsvc.Service) http.Handler {
	router := chi.NewRouter()
	router.Post("/api/v1/payments/checkout-session/{orderId}", CreateCheckoutSession(svc, controllersTestLogger()))
	return router
}

func TestCreateCheckoutSessionReturnsSession(t *testing.T) {
	orderID := uuid.New()
	svc := &stubPaymentService{session: &paymentsvc.SessionResponse{ID: "cs_test_123", URL: "https://checkout.stripe.test"}}

	rec := httptest.NewRecorder()
	paymentRouter(svc).ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/payments/checkout-session/"+orderID.String(), nil, uuid.New()))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, orderID, svc.lastOrderID)
}

func TestCreateCheckoutSessionGatewayFailureMapsTo502(t *testing.T) {
	svc := &stubPaymentService{err: pkgerrors.New(pkgerrors.CodePaymentGateway, "create checkout session")}

	rec := httptest.NewRecorder()
	paymentRouter(svc).ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/payments/checkout-session/"+uuid.NewString(), nil, uuid.New()))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
