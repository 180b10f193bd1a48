package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/soltanba/shoplane-backend/pkg/db/models"
)

// AddItemRequest asks for a product to be placed in the cart.
type AddItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

// UpdateItemRequest replaces a line's quantity.
type UpdateItemRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

// ItemResponse is the public view of a cart line.
type ItemResponse struct {
	ProductID  uuid.UUID       `json:"product_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// CartResponse is the public view of a cart.
type CartResponse struct {
	ID    uuid.UUID       `json:"id"`
	Items []ItemResponse  `json:"items"`
	Total decimal.Decimal `json:"total"`
}

// FromModel converts a persisted cart into its public view.
func FromModel(c *models.Cart) CartResponse {
	resp := CartResponse{
		ID:    c.ID,
		Items: make([]ItemResponse, 0, len(c.Items)),
		Total: c.TotalAmount,
	}
	for _, item := range c.Items {
		resp.Items = append(resp.Items, ItemResponse{
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.TotalPrice,
		})
	}
	return resp
}
