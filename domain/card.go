package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kendall-kelly/av-pipeline-api/models"
	"github.com/shopspring/decimal"
)

// AutomationStatus records which follow-up automations already ran for a card.
type AutomationStatus struct {
	EmailLogged        bool `json:"emailLogged"`
	AlertsSent         bool `json:"alertsSent"`
	DocumentsGenerated bool `json:"documentsGenerated"`
}

// Card is a pipeline card. Type is the only discriminator: exactly the details pointer that
// matches Type is set, all others are nil.
type Card struct {
	ID               string            `json:"id"`
	Type             PipelineType      `json:"type"`
	CustomerID       string            `json:"customerId"`
	ProjectNumber    string            `json:"projectNumber"`
	Title            string            `json:"title"`
	Description      string            `json:"description"`
	Stage            Stage             `json:"stage"`
	Status           Status            `json:"status"`
	CreatedAt        time.Time         `json:"createdAt"`
	LastModified     time.Time         `json:"lastModified"`
	LastInteraction  time.Time         `json:"lastInteraction"`
	DueDate          *time.Time        `json:"dueDate"`
	AutomationStatus AutomationStatus  `json:"automationStatus"`
	Documents        []models.Document `json:"documents"`
	Customer         *models.Customer  `json:"customer,omitempty"`

	Sales       *SalesDetails       `json:"-"`
	Design      *DesignDetails      `json:"-"`
	Integration *IntegrationDetails `json:"-"`
	Service     *ServiceDetails     `json:"-"`
	Rental      *RentalDetails      `json:"-"`
	Repair      *RepairDetails      `json:"-"`
}

type SalesDetails struct {
	EstimateValue    decimal.Decimal `json:"estimateValue"`
	AppointmentDate  *time.Time      `json:"appointmentDate,omitempty"`
	ProposalSentDate *time.Time      `json:"proposalSentDate,omitempty"`
}

type DesignDetails struct {
	SalesCardID        string  `json:"salesCardId,omitempty"`
	DesignRequirements string  `json:"designRequirements"`
	EstimatedHours     float64 `json:"estimatedHours"`
	ActualHours        float64 `json:"actualHours"`
}

type EquipmentStatus struct {
	Ordered       bool       `json:"ordered"`
	Received      bool       `json:"received"`
	InstalledDate *time.Time `json:"installedDate,omitempty"`
}

// Contract is the commercial side of an integration job.
type Contract struct {
	ApprovedProposalValue decimal.Decimal `json:"approvedProposalValue"`
	DepositAmount         decimal.Decimal `json:"depositAmount"`
	SiteReadinessComplete bool            `json:"siteReadinessComplete"`
}

type IntegrationDetails struct {
	SalesCardID      string          `json:"salesCardId,omitempty"`
	EquipmentStatus  EquipmentStatus `json:"equipmentStatus"`
	InstallationDate *time.Time      `json:"installationDate,omitempty"`
	Contract         Contract        `json:"contract"`
}

type ServiceDetails struct {
	ServiceType   ServiceType `json:"serviceType"`
	RMANumber     string      `json:"rmaNumber,omitempty"`
	PartsRequired []string    `json:"partsRequired"`
}

type RentalDetails struct {
	EventDate     *time.Time      `json:"eventDate,omitempty"`
	EquipmentList []string        `json:"equipmentList"`
	QuoteValue    decimal.Decimal `json:"quoteValue"`
}

type RepairDetails struct {
	EquipmentDescription string `json:"equipmentDescription"`
	SerialNumber         string `json:"serialNumber,omitempty"`
	RMANumber            string `json:"rmaNumber,omitempty"`
}

// ErrVariantMismatch means the details set on a card do not agree with its type.
var ErrVariantMismatch = errors.New("card details do not match card type")

// NewCard returns an empty card of type t with zero-valued details for that type.
func NewCard(t PipelineType) (*Card, error) {
	c := &Card{Type: t, Status: StatusOpen}
	switch t {
	case TypeSales:
		c.Sales = &SalesDetails{}
	case TypeDesign:
		c.Design = &DesignDetails{}
	case TypeIntegration:
		c.Integration = &IntegrationDetails{}
	case TypeService:
		c.Service = &ServiceDetails{ServiceType: ServiceMaintenance, PartsRequired: []string{}}
	case TypeRental:
		c.Rental = &RentalDetails{EquipmentList: []string{}}
	case TypeRepair:
		c.Repair = &RepairDetails{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPipelineType, t)
	}
	return c, nil
}

// Validate checks that the type is known and that exactly its details are present.
func (c *Card) Validate() error {
	if !c.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownPipelineType, c.Type)
	}
	set := map[PipelineType]bool{
		TypeSales:       c.Sales != nil,
		TypeDesign:      c.Design != nil,
		TypeIntegration: c.Integration != nil,
		TypeService:     c.Service != nil,
		TypeRental:      c.Rental != nil,
		TypeRepair:      c.Repair != nil,
	}
	for t, present := range set {
		if present != (t == c.Type) {
			return fmt.Errorf("%w: %s card carries %s details=%t", ErrVariantMismatch, c.Type, t, present)
		}
	}
	if c.Service != nil && c.Service.ServiceType != "" && !c.Service.ServiceType.Valid() {
		return fmt.Errorf("invalid service type %q", c.Service.ServiceType)
	}
	return nil
}

// SalesCardID returns the back-reference of design and integration cards.
func (c *Card) SalesCardID() string {
	switch c.Type {
	case TypeDesign:
		if c.Design != nil {
			return c.Design.SalesCardID
		}
	case TypeIntegration:
		if c.Integration != nil {
			return c.Integration.SalesCardID
		}
	}
	return ""
}

func (c *Card) details() (any, error) {
	switch c.Type {
	case TypeSales:
		return c.Sales, nil
	case TypeDesign:
		return c.Design, nil
	case TypeIntegration:
		return c.Integration, nil
	case TypeService:
		return c.Service, nil
	case TypeRental:
		return c.Rental, nil
	case TypeRepair:
		return c.Repair, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownPipelineType, c.Type)
}

// cardFields has Card's fields without its methods so the codec can reuse the struct tags.
type cardFields Card

// MarshalJSON writes the shared fields and the active details as one flat object.
func (c Card) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(cardFields(c))
	if err != nil {
		return nil, err
	}
	details, err := c.details()
	if err != nil {
		return nil, err
	}
	extra, err := json.Marshal(details)
	if err != nil {
		return nil, err
	}
	if bytes.Equal(extra, []byte("null")) || bytes.Equal(extra, []byte("{}")) {
		return base, nil
	}

	out := make([]byte, 0, len(base)+len(extra))
	out = append(out, base[:len(base)-1]...)
	out = append(out, ',')
	out = append(out, extra[1:]...)
	return out, nil
}

// UnmarshalJSON reads "type" first, in any case, and decodes only the details of that type.
// A missing or unknown type is an error. Date fields also accept plain dates.
func (c *Card) UnmarshalJSON(data []byte) error {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	t, err := ParsePipelineType(head.Type)
	if err != nil {
		return err
	}
	if data, err = coerceDates(data); err != nil {
		return err
	}

	var fields cardFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	card := Card(fields)
	card.Type = t

	switch t {
	case TypeSales:
		card.Sales = &SalesDetails{}
		err = json.Unmarshal(data, card.Sales)
	case TypeDesign:
		card.Design = &DesignDetails{}
		err = json.Unmarshal(data, card.Design)
	case TypeIntegration:
		card.Integration = &IntegrationDetails{}
		err = json.Unmarshal(data, card.Integration)
	case TypeService:
		card.Service = &ServiceDetails{}
		err = json.Unmarshal(data, card.Service)
	case TypeRental:
		card.Rental = &RentalDetails{}
		err = json.Unmarshal(data, card.Rental)
	case TypeRepair:
		card.Repair = &RepairDetails{}
		err = json.Unmarshal(data, card.Repair)
	}
	if err != nil {
		return err
	}

	*c = card
	return nil
}
