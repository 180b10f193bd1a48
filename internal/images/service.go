package images

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soltanba/shoplane-backend/pkg/config"
	"github.com/soltanba/shoplane-backend/pkg/db/models"
	pkgerrors "github.com/soltanba/shoplane-backend/pkg/errors"
)

var allowedImageTypes = map[string]struct{}{
	"image/png":  {},
	"image/jpeg": {},
	"image/webp": {},
	"image/gif":  {},
}

type productFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// UploadInput carries a raw image payload destined for a product.
type UploadInput struct {
	ProductID   uuid.UUID
	FileName    string
	ContentType string
	Data        []byte
}

// Image is the downloadable view of a stored product image.
type Image struct {
	ID          uuid.UUID
	ProductID   uuid.UUID
	FileName    string
	ContentType string
	SizeBytes   int64
	Data        []byte
	DownloadURL string
}

// Service handles product image upload and retrieval.
type Service interface {
	Upload(ctx context.Context, input UploadInput) (*Image, error)
	Download(ctx context.Context, id uuid.UUID) (*Image, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo     *Repository
	products productFinder
	media    config.MediaConfig
}

// NewService builds an image service with the provided dependencies.
func NewService(repo *Repository, products productFinder, media config.MediaConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("images repository is required")
	}
	if products == nil {
		return nil, fmt.Errorf("product finder is required")
	}
	return &service{repo: repo, products: products, media: media}, nil
}

func (s *service) Upload(ctx context.Context, input UploadInput) (*Image, error) {
	if len(input.Data) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image payload is empty")
	}
	if max := s.media.MaxImageBytes; max > 0 && int64(len(input.Data)) > max {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("image exceeds maximum size of %d bytes", max))
	}

	contentType, err := resolveContentType(input.ContentType, input.Data)
	if err != nil {
		return nil, err
	}

	if _, err := s.products.FindByID(ctx, input.ProductID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	image := &models.ProductImage{
		ProductID:   input.ProductID,
		FileName:    sanitizeFileName(input.FileName),
		ContentType: contentType,
		SizeBytes:   int64(len(input.Data)),
		Data:        input.Data,
	}
	if _, err := s.repo.Create(ctx, image); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store image")
	}

	url := fmt.Sprintf("/api/v1/products/%s/images/%s", input.ProductID, image.ID)
	if err := s.repo.SetDownloadURL(ctx, image.ID, url); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record download url")
	}
	image.DownloadURL = url

	return fromModel(image), nil
}

func (s *service) Download(ctx context.Context, id uuid.UUID) (*Image, error) {
	image, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "image not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load image")
	}
	return fromModel(image), nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "image not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete image")
	}
	return nil
}

// resolveContentType prefers the declared type but falls back to payload
// sniffing, and rejects anything outside the image allow list.
func resolveContentType(declared string, data []byte) (string, error) {
	candidate := strings.TrimSpace(declared)
	if candidate == "" {
		candidate = http.DetectContentType(data)
	}
	mediaType, _, err := mime.ParseMediaType(candidate)
	if err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid content type")
	}
	mediaType = strings.ToLower(mediaType)
	if _, ok := allowedImageTypes[mediaType]; !ok {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "content type must be one of image/png, image/jpeg, image/webp, image/gif")
	}
	return mediaType, nil
}

func sanitizeFileName(name string) string {
	clean := strings.TrimSpace(name)
	if clean == "" {
		return "upload"
	}
	clean = strings.ReplaceAll(clean, "/", "_")
	clean = strings.ReplaceAll(clean, "\\", "_")
	return clean
}

func fromModel(m *models.ProductImage) *Image {
	return &Image{
		ID:          m.ID,
		ProductID:   m.ProductID,
		FileName:    m.FileName,
		ContentType: m.ContentType,
		SizeBytes:   m.SizeBytes,
		Data:        m.Data,
		DownloadURL: m.DownloadURL,
	}
}
