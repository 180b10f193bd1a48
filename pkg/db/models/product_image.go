package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductImage stores an uploaded catalog image inline.
type ProductImage struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID   uuid.UUID `gorm:"column:product_id;type:uuid;not null;index"`
	FileName    string    `gorm:"column:file_name;not null"`
	ContentType string    `gorm:"column:content_type;not null"`
	SizeBytes   int64     `gorm:"column:size_bytes;not null"`
	Data        []byte    `gorm:"column:data;type:bytea;not null"`
	DownloadURL string    `gorm:"column:download_url;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (p *ProductImage) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
