package models

import "gorm.io/gorm"

// AutoMigrate creates or updates every table the API uses
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Customer{}, &Card{}, &IntegrationDetail{}, &Document{})
}
