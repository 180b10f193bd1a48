package controllers

import (
	"net/http"

	"github.com/soltanba/shoplane-backend/api/responses"
	paymentsvc "github.com/soltanba/shoplane-backend/internal/payments"
	pkgerrors "github.com/soltanba/shoplane-backend/pkg/errors"
	"github.com/soltanba/shoplane-backend/pkg/logger"
)

// CreateCheckoutSession opens a hosted payment session for an order.
func CreateCheckoutSession(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parsePathID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.CreateCheckoutSession(r.Context(), userID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, session)
	}
}
