package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Card is the flat persisted form of every pipeline card. Columns that do not apply to a
// card's type keep their zero values.
type Card struct {
	ID              string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Type            string     `gorm:"type:varchar(20);not null;index" json:"type"`
	CustomerID      string     `gorm:"type:varchar(36);not null;index" json:"customerId"`
	Customer        *Customer  `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	ProjectNumber   string     `gorm:"type:varchar(64);index" json:"projectNumber"`
	Title           string     `gorm:"not null" json:"title"`
	Description     string     `gorm:"type:text" json:"description"`
	Stage           string     `gorm:"type:varchar(64);not null;index" json:"stage"`
	Status          string     `gorm:"type:varchar(32);not null;default:'open'" json:"status"`
	DueDate         *time.Time `gorm:"index" json:"dueDate"`
	CreatedAt       time.Time  `json:"createdAt"`
	LastModified    time.Time  `json:"lastModified"`
	LastInteraction time.Time  `json:"lastInteraction"`

	EmailLogged        bool `gorm:"not null;default:false" json:"emailLogged"`
	AlertsSent         bool `gorm:"not null;default:false" json:"alertsSent"`
	DocumentsGenerated bool `gorm:"not null;default:false" json:"documentsGenerated"`

	// Design and integration cards point back at the sales card that spawned them
	SalesCardID *string `gorm:"type:varchar(36);index" json:"salesCardId,omitempty"`

	// sales
	EstimateValue    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"estimateValue"`
	AppointmentDate  *time.Time      `json:"appointmentDate,omitempty"`
	ProposalSentDate *time.Time      `json:"proposalSentDate,omitempty"`

	// design
	DesignRequirements string  `gorm:"type:text" json:"designRequirements"`
	EstimatedHours     float64 `gorm:"not null;default:0" json:"estimatedHours"`
	ActualHours        float64 `gorm:"not null;default:0" json:"actualHours"`

	// integration
	EquipmentOrdered  bool               `gorm:"not null;default:false" json:"equipmentOrdered"`
	EquipmentReceived bool               `gorm:"not null;default:false" json:"equipmentReceived"`
	InstalledDate     *time.Time         `json:"installedDate,omitempty"`
	InstallationDate  *time.Time         `json:"installationDate,omitempty"`
	IntegrationDetail *IntegrationDetail `gorm:"foreignKey:CardID" json:"integrationDetail,omitempty"`

	// service
	ServiceType   string                      `gorm:"type:varchar(20)" json:"serviceType"`
	RMANumber     string                      `gorm:"column:rma_number" json:"rmaNumber"`
	PartsRequired datatypes.JSONSlice[string] `gorm:"default:'[]'" json:"partsRequired"`

	// rental
	EventDate     *time.Time                  `json:"eventDate,omitempty"`
	EquipmentList datatypes.JSONSlice[string] `gorm:"default:'[]'" json:"equipmentList"`
	QuoteValue    decimal.Decimal             `gorm:"type:decimal(12,2);not null;default:0" json:"quoteValue"`

	// repair
	EquipmentDescription string `json:"equipmentDescription"`
	SerialNumber         string `json:"serialNumber"`

	Documents []Document `gorm:"foreignKey:CardID" json:"documents"`
}

// TableName specifies the table name for the Card model
func (Card) TableName() string {
	return "cards"
}

// BeforeCreate assigns a uuid when the card has no id yet
func (c *Card) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// IntegrationDetail holds the contract figures of an integration card.
type IntegrationDetail struct {
	ID                    uint            `gorm:"primaryKey" json:"id"`
	CardID                string          `gorm:"type:varchar(36);uniqueIndex;not null" json:"cardId"`
	ApprovedProposalValue decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"approvedProposalValue"`
	DepositAmount         decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"depositAmount"`
	SiteReadinessComplete bool            `gorm:"not null;default:false" json:"siteReadinessComplete"`
	CreatedAt             time.Time       `json:"createdAt"`
	UpdatedAt             time.Time       `json:"updatedAt"`
}

// TableName specifies the table name for the IntegrationDetail model
func (IntegrationDetail) TableName() string {
	return "integration_details"
}
