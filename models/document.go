package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Document is the metadata of a file attached to a card. Path is the storage key of the bytes.
type Document struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CardID       string    `gorm:"type:varchar(36);not null;index" json:"cardId"`
	FileName     string    `gorm:"not null" json:"fileName"`
	Path         string    `gorm:"not null" json:"path"`
	Category     string    `gorm:"type:varchar(32);not null" json:"type"`
	ContentType  string    `json:"contentType"`
	Size         int64     `gorm:"not null;default:0" json:"size"`
	UploadDate   time.Time `json:"uploadDate"`
	LastModified time.Time `json:"lastModified"`
	URL          string    `gorm:"-" json:"url,omitempty"` // computed from the file storage
}

// TableName specifies the table name for the Document model
func (Document) TableName() string {
	return "documents"
}

// BeforeCreate assigns a uuid when the document has no id yet
func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}
