package services

import (
	"fmt"
	"time"

	"github.com/kendall-kelly/av-pipeline-api/domain"
	"github.com/kendall-kelly/av-pipeline-api/models"
	"gorm.io/datatypes"
)

// Timestamps are stored in UTC at microsecond precision, the finest postgres keeps.
func normalizeTime(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC().Truncate(time.Microsecond)
}

func normalizeTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	n := normalizeTime(*t)
	return &n
}

// stringList keeps empty lists as [] on both sides of the mapping
func stringList(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ToPersistence flattens a card into its database row.
func ToPersistence(c *domain.Card) (*models.Card, error) {
	if c == nil {
		return nil, fmt.Errorf("nil card")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	rec := &models.Card{
		ID:                 c.ID,
		Type:               string(c.Type),
		CustomerID:         c.CustomerID,
		Customer:           c.Customer,
		ProjectNumber:      c.ProjectNumber,
		Title:              c.Title,
		Description:        c.Description,
		Stage:              string(c.Stage),
		Status:             string(c.Status),
		DueDate:            normalizeTimePtr(c.DueDate),
		CreatedAt:          normalizeTime(c.CreatedAt),
		LastModified:       normalizeTime(c.LastModified),
		LastInteraction:    normalizeTime(c.LastInteraction),
		EmailLogged:        c.AutomationStatus.EmailLogged,
		AlertsSent:         c.AutomationStatus.AlertsSent,
		DocumentsGenerated: c.AutomationStatus.DocumentsGenerated,
		Documents:          c.Documents,
	}

	switch c.Type {
	case domain.TypeSales:
		rec.EstimateValue = c.Sales.EstimateValue
		rec.AppointmentDate = normalizeTimePtr(c.Sales.AppointmentDate)
		rec.ProposalSentDate = normalizeTimePtr(c.Sales.ProposalSentDate)
	case domain.TypeDesign:
		rec.SalesCardID = optionalString(c.Design.SalesCardID)
		rec.DesignRequirements = c.Design.DesignRequirements
		rec.EstimatedHours = c.Design.EstimatedHours
		rec.ActualHours = c.Design.ActualHours
	case domain.TypeIntegration:
		d := c.Integration
		rec.SalesCardID = optionalString(d.SalesCardID)
		rec.EquipmentOrdered = d.EquipmentStatus.Ordered
		rec.EquipmentReceived = d.EquipmentStatus.Received
		rec.InstalledDate = normalizeTimePtr(d.EquipmentStatus.InstalledDate)
		rec.InstallationDate = normalizeTimePtr(d.InstallationDate)
		rec.IntegrationDetail = &models.IntegrationDetail{
			CardID:                c.ID,
			ApprovedProposalValue: d.Contract.ApprovedProposalValue,
			DepositAmount:         d.Contract.DepositAmount,
			SiteReadinessComplete: d.Contract.SiteReadinessComplete,
		}
	case domain.TypeService:
		rec.ServiceType = string(c.Service.ServiceType)
		rec.RMANumber = c.Service.RMANumber
		rec.PartsRequired = datatypes.NewJSONSlice(stringList(c.Service.PartsRequired))
	case domain.TypeRental:
		rec.EventDate = normalizeTimePtr(c.Rental.EventDate)
		rec.EquipmentList = datatypes.NewJSONSlice(stringList(c.Rental.EquipmentList))
		rec.QuoteValue = c.Rental.QuoteValue
	case domain.TypeRepair:
		rec.EquipmentDescription = c.Repair.EquipmentDescription
		rec.SerialNumber = c.Repair.SerialNumber
		rec.RMANumber = c.Repair.RMANumber
	}
	return rec, nil
}

// ToApplication rebuilds the card of type t from its row. Only the columns of type t are read.
func ToApplication(rec *models.Card, t domain.PipelineType) (*domain.Card, error) {
	if rec == nil {
		return nil, fmt.Errorf("nil card record")
	}
	if rec.Type != string(t) {
		return nil, fmt.Errorf("%w: record %s has type %q, expected %q", domain.ErrVariantMismatch, rec.ID, rec.Type, t)
	}
	c, err := domain.NewCard(t)
	if err != nil {
		return nil, err
	}

	c.ID = rec.ID
	c.CustomerID = rec.CustomerID
	c.Customer = rec.Customer
	c.ProjectNumber = rec.ProjectNumber
	c.Title = rec.Title
	c.Description = rec.Description
	c.Stage = domain.Stage(rec.Stage)
	c.Status = domain.Status(rec.Status)
	c.DueDate = normalizeTimePtr(rec.DueDate)
	c.CreatedAt = normalizeTime(rec.CreatedAt)
	c.LastModified = normalizeTime(rec.LastModified)
	c.LastInteraction = normalizeTime(rec.LastInteraction)
	c.AutomationStatus = domain.AutomationStatus{
		EmailLogged:        rec.EmailLogged,
		AlertsSent:         rec.AlertsSent,
		DocumentsGenerated: rec.DocumentsGenerated,
	}
	c.Documents = rec.Documents
	if c.Documents == nil {
		c.Documents = []models.Document{}
	}

	salesCardID := ""
	if rec.SalesCardID != nil {
		salesCardID = *rec.SalesCardID
	}

	switch t {
	case domain.TypeSales:
		c.Sales = &domain.SalesDetails{
			EstimateValue:    rec.EstimateValue,
			AppointmentDate:  normalizeTimePtr(rec.AppointmentDate),
			ProposalSentDate: normalizeTimePtr(rec.ProposalSentDate),
		}
	case domain.TypeDesign:
		c.Design = &domain.DesignDetails{
			SalesCardID:        salesCardID,
			DesignRequirements: rec.DesignRequirements,
			EstimatedHours:     rec.EstimatedHours,
			ActualHours:        rec.ActualHours,
		}
	case domain.TypeIntegration:
		d := &domain.IntegrationDetails{
			SalesCardID: salesCardID,
			EquipmentStatus: domain.EquipmentStatus{
				Ordered:       rec.EquipmentOrdered,
				Received:      rec.EquipmentReceived,
				InstalledDate: normalizeTimePtr(rec.InstalledDate),
			},
			InstallationDate: normalizeTimePtr(rec.InstallationDate),
		}
		if detail := rec.IntegrationDetail; detail != nil {
			d.Contract = domain.Contract{
				ApprovedProposalValue: detail.ApprovedProposalValue,
				DepositAmount:         detail.DepositAmount,
				SiteReadinessComplete: detail.SiteReadinessComplete,
			}
		}
		c.Integration = d
	case domain.TypeService:
		c.Service = &domain.ServiceDetails{
			ServiceType:   domain.ServiceType(rec.ServiceType),
			RMANumber:     rec.RMANumber,
			PartsRequired: stringList(rec.PartsRequired),
		}
	case domain.TypeRental:
		c.Rental = &domain.RentalDetails{
			EventDate:     normalizeTimePtr(rec.EventDate),
			EquipmentList: stringList(rec.EquipmentList),
			QuoteValue:    rec.QuoteValue,
		}
	case domain.TypeRepair:
		c.Repair = &domain.RepairDetails{
			EquipmentDescription: rec.EquipmentDescription,
			SerialNumber:         rec.SerialNumber,
			RMANumber:            rec.RMANumber,
		}
	}
	return c, nil
}
