package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/soltanba/shoplane-backend/pkg/db/models"
	"github.com/soltanba/shoplane-backend/pkg/enums"
	"github.com/soltanba/shoplane-backend/pkg/money"
)

// ItemResponse is the public view of a frozen order line. Internal row ids
// stay private; the product reference and checkout-time pricing are the
// client-facing shape.
type ItemResponse struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// OrderResponse is the public projection of an order.
type OrderResponse struct {
	ID            uuid.UUID           `json:"id"`
	OrderDate     time.Time           `json:"order_date"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	Items         []ItemResponse      `json:"items"`
}

// OrderPage is a cursor-paginated slice of a user's order history.
type OrderPage struct {
	Orders     []OrderResponse `json:"orders"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// FromModel converts a persisted order into its public view.
func FromModel(o *models.Order) OrderResponse {
	resp := OrderResponse{
		ID:            o.ID,
		OrderDate:     o.OrderDate,
		TotalAmount:   o.TotalAmount,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		Items:         make([]ItemResponse, 0, len(o.Items)),
	}
	for _, item := range o.Items {
		resp.Items = append(resp.Items, ItemResponse{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   money.LineTotal(item.UnitPrice, item.Quantity),
		})
	}
	return resp
}
