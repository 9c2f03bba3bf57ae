package models

import "time"

// Source tags stored in Image.Source. Generic catalogs use their configured name.
const (
	SourceOzon  = "ozon"
	SourceWB    = "wb"
	SourceLocal = "local"
)

// Image is the metadata row for one stored file. Rows written by the sync
// pipeline are never updated; a changed photo produces a new row.
type Image struct {
	ID           uint      `gorm:"primaryKey"                 json:"id"`
	Filename     string    `gorm:"type:text;not null;uniqueIndex" json:"filename"`
	OriginalName string    `gorm:"type:text;not null"         json:"original_name"`
	FilePath     string    `gorm:"type:text;not null"         json:"file_path"`
	FileSize     int64     `gorm:"not null"                   json:"file_size"`
	MimeType     string    `gorm:"type:text"                  json:"mime_type"`
	UploadDate   time.Time `gorm:"not null;autoCreateTime"    json:"upload_date"`
	Description  string    `gorm:"type:text"                  json:"description"`
	Tags         string    `gorm:"type:text"                  json:"tags"`
	IsPublic     bool      `gorm:"default:true"               json:"is_public"`

	Source         string  `gorm:"type:text;not null;index:idx_images_source_sku_hash,priority:1" json:"source"`
	MarketplaceSKU *string `gorm:"type:text;index:idx_images_source_sku_hash,priority:2"          json:"marketplace_sku,omitempty"`
	Hash           string  `gorm:"type:text;index:idx_images_source_sku_hash,priority:3;index:idx_images_hash" json:"hash"`
}

func (Image) TableName() string {
	return "images"
}
