package images

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soltanba/shoplane-backend/pkg/db/models"
)

// Repository persists uploaded product images.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds an images repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create stores a new image row, payload included.
func (r *Repository) Create(ctx context.Context, image *models.ProductImage) (*models.ProductImage, error) {
	if err := r.db.WithContext(ctx).Create(image).Error; err != nil {
		return nil, err
	}
	return image, nil
}

// FindByID loads the image including its payload.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ProductImage, error) {
	var image models.ProductImage
	if err := r.db.WithContext(ctx).First(&image, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &image, nil
}

// Delete removes an image row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.ProductImage{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetDownloadURL records the public path once the image id is known.
func (r *Repository) SetDownloadURL(ctx context.Context, id uuid.UUID, url string) error {
	return r.db.WithContext(ctx).
		Model(&models.ProductImage{}).
		Where("id = ?", id).
		UpdateColumn("download_url", url).Error
}
