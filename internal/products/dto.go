package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/soltanba/shoplane-backend/pkg/db/models"
)

// CreateProductRequest captures a new catalog listing.
type CreateProductRequest struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Brand       string          `json:"brand" validate:"required,max=100"`
	Category    string          `json:"category" validate:"required,max=100"`
	Description string          `json:"description" validate:"max=2000"`
	Price       decimal.Decimal `json:"price" validate:"required"`
	Inventory   int             `json:"inventory" validate:"gte=0"`
}

// UpdateProductRequest carries partial listing updates. Nil fields are left
// untouched.
type UpdateProductRequest struct {
	Name        *string          `json:"name" validate:"omitempty,max=200"`
	Brand       *string          `json:"brand" validate:"omitempty,max=100"`
	Category    *string          `json:"category" validate:"omitempty,max=100"`
	Description *string          `json:"description" validate:"omitempty,max=2000"`
	Price       *decimal.Decimal `json:"price"`
	Inventory   *int             `json:"inventory" validate:"omitempty,gte=0"`
}

// ImageSummary is the public view of an uploaded product image.
type ImageSummary struct {
	ID          uuid.UUID `json:"id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	DownloadURL string    `json:"download_url"`
}

// ProductResponse is the public catalog view of a listing.
type ProductResponse struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Brand       string          `json:"brand"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Inventory   int             `json:"inventory"`
	Images      []ImageSummary  `json:"images,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ProductPage is a cursor-paginated slice of the catalog.
type ProductPage struct {
	Products   []ProductResponse `json:"products"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

// FromModel converts a persisted product into its public view.
func FromModel(p *models.Product) ProductResponse {
	resp := ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Brand:       p.Brand,
		Category:    p.Category,
		Description: p.Description,
		Price:       p.Price,
		Inventory:   p.Inventory,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	for _, img := range p.Images {
		resp.Images = append(resp.Images, ImageSummary{
			ID:          img.ID,
			FileName:    img.FileName,
			ContentType: img.ContentType,
			SizeBytes:   img.SizeBytes,
			DownloadURL: img.DownloadURL,
		})
	}
	return resp
}
