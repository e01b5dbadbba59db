package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CardPatch is a partial update of a card. Nil fields are left untouched. Identity fields
// (id, type, customer, project number, creation time) and automation flags have no place here.
type CardPatch struct {
	Title           *string    `json:"title"`
	Description     *string    `json:"description"`
	Stage           *string    `json:"stage"`
	Status          *Status    `json:"status"`
	DueDate         *time.Time `json:"dueDate"`
	LastInteraction *time.Time `json:"lastInteraction"`

	EstimateValue    *decimal.Decimal `json:"estimateValue"`
	AppointmentDate  *time.Time       `json:"appointmentDate"`
	ProposalSentDate *time.Time       `json:"proposalSentDate"`

	DesignRequirements *string  `json:"designRequirements"`
	EstimatedHours     *float64 `json:"estimatedHours"`
	ActualHours        *float64 `json:"actualHours"`

	EquipmentStatus  *EquipmentStatusPatch `json:"equipmentStatus"`
	InstallationDate *time.Time            `json:"installationDate"`
	Contract         *ContractPatch        `json:"contract"`

	ServiceType   *ServiceType `json:"serviceType"`
	RMANumber     *string      `json:"rmaNumber"`
	PartsRequired *[]string    `json:"partsRequired"`

	EventDate     *time.Time       `json:"eventDate"`
	EquipmentList *[]string        `json:"equipmentList"`
	QuoteValue    *decimal.Decimal `json:"quoteValue"`

	EquipmentDescription *string `json:"equipmentDescription"`
	SerialNumber         *string `json:"serialNumber"`
}

type EquipmentStatusPatch struct {
	Ordered       *bool      `json:"ordered"`
	Received      *bool      `json:"received"`
	InstalledDate *time.Time `json:"installedDate"`
}

type ContractPatch struct {
	ApprovedProposalValue *decimal.Decimal `json:"approvedProposalValue"`
	DepositAmount         *decimal.Decimal `json:"depositAmount"`
	SiteReadinessComplete *bool            `json:"siteReadinessComplete"`
}

var (
	ErrFieldNotApplicable = errors.New("field does not apply to this card type")
	ErrInvalidValue       = errors.New("invalid field value")
)

// setFields lists, per pipeline type, the type-specific fields present in the patch.
func (p *CardPatch) setFields() map[string][]PipelineType {
	fields := map[string][]PipelineType{}
	mark := func(set bool, name string, types ...PipelineType) {
		if set {
			fields[name] = types
		}
	}
	mark(p.EstimateValue != nil, "estimateValue", TypeSales)
	mark(p.AppointmentDate != nil, "appointmentDate", TypeSales)
	mark(p.ProposalSentDate != nil, "proposalSentDate", TypeSales)
	mark(p.DesignRequirements != nil, "designRequirements", TypeDesign)
	mark(p.EstimatedHours != nil, "estimatedHours", TypeDesign)
	mark(p.ActualHours != nil, "actualHours", TypeDesign)
	mark(p.EquipmentStatus != nil, "equipmentStatus", TypeIntegration)
	mark(p.InstallationDate != nil, "installationDate", TypeIntegration)
	mark(p.Contract != nil, "contract", TypeIntegration)
	mark(p.ServiceType != nil, "serviceType", TypeService)
	mark(p.RMANumber != nil, "rmaNumber", TypeService, TypeRepair)
	mark(p.PartsRequired != nil, "partsRequired", TypeService)
	mark(p.EventDate != nil, "eventDate", TypeRental)
	mark(p.EquipmentList != nil, "equipmentList", TypeRental)
	mark(p.QuoteValue != nil, "quoteValue", TypeRental)
	mark(p.EquipmentDescription != nil, "equipmentDescription", TypeRepair)
	mark(p.SerialNumber != nil, "serialNumber", TypeRepair)
	return fields
}

// Apply merges the patch into c. Fields of another card type are rejected and leave c unchanged.
func (p *CardPatch) Apply(c *Card, policy StagePolicy) error {
	if err := c.Validate(); err != nil {
		return err
	}

	var foreign []string
	for name, types := range p.setFields() {
		if !containsType(types, c.Type) {
			foreign = append(foreign, name)
		}
	}
	if len(foreign) > 0 {
		sort.Strings(foreign)
		return fmt.Errorf("%w: %s (%s card)", ErrFieldNotApplicable, strings.Join(foreign, ", "), c.Type)
	}

	var stage Stage
	if p.Stage != nil {
		resolved, err := ResolveStage(c.Type, *p.Stage, policy)
		if err != nil {
			return err
		}
		stage = resolved
	}
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("%w: status %q", ErrInvalidValue, *p.Status)
	}
	if p.ServiceType != nil && !p.ServiceType.Valid() {
		return fmt.Errorf("%w: serviceType %q", ErrInvalidValue, *p.ServiceType)
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return fmt.Errorf("%w: title must not be empty", ErrInvalidValue)
	}

	if p.Title != nil {
		c.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if stage != "" {
		c.Stage = stage
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.DueDate != nil {
		c.DueDate = p.DueDate
	}
	if p.LastInteraction != nil {
		c.LastInteraction = *p.LastInteraction
	}

	switch c.Type {
	case TypeSales:
		d := c.Sales
		if p.EstimateValue != nil {
			d.EstimateValue = *p.EstimateValue
		}
		if p.AppointmentDate != nil {
			d.AppointmentDate = p.AppointmentDate
		}
		if p.ProposalSentDate != nil {
			d.ProposalSentDate = p.ProposalSentDate
		}
	case TypeDesign:
		d := c.Design
		if p.DesignRequirements != nil {
			d.DesignRequirements = *p.DesignRequirements
		}
		if p.EstimatedHours != nil {
			d.EstimatedHours = *p.EstimatedHours
		}
		if p.ActualHours != nil {
			d.ActualHours = *p.ActualHours
		}
	case TypeIntegration:
		d := c.Integration
		if es := p.EquipmentStatus; es != nil {
			if es.Ordered != nil {
				d.EquipmentStatus.Ordered = *es.Ordered
			}
			if es.Received != nil {
				d.EquipmentStatus.Received = *es.Received
			}
			if es.InstalledDate != nil {
				d.EquipmentStatus.InstalledDate = es.InstalledDate
			}
		}
		if p.InstallationDate != nil {
			d.InstallationDate = p.InstallationDate
		}
		if cp := p.Contract; cp != nil {
			if cp.ApprovedProposalValue != nil {
				d.Contract.ApprovedProposalValue = *cp.ApprovedProposalValue
			}
			if cp.DepositAmount != nil {
				d.Contract.DepositAmount = *cp.DepositAmount
			}
			if cp.SiteReadinessComplete != nil {
				d.Contract.SiteReadinessComplete = *cp.SiteReadinessComplete
			}
		}
	case TypeService:
		d := c.Service
		if p.ServiceType != nil {
			d.ServiceType = *p.ServiceType
		}
		if p.RMANumber != nil {
			d.RMANumber = *p.RMANumber
		}
		if p.PartsRequired != nil {
			d.PartsRequired = append([]string{}, (*p.PartsRequired)...)
		}
	case TypeRental:
		d := c.Rental
		if p.EventDate != nil {
			d.EventDate = p.EventDate
		}
		if p.EquipmentList != nil {
			d.EquipmentList = append([]string{}, (*p.EquipmentList)...)
		}
		if p.QuoteValue != nil {
			d.QuoteValue = *p.QuoteValue
		}
	case TypeRepair:
		d := c.Repair
		if p.EquipmentDescription != nil {
			d.EquipmentDescription = *p.EquipmentDescription
		}
		if p.SerialNumber != nil {
			d.SerialNumber = *p.SerialNumber
		}
		if p.RMANumber != nil {
			d.RMANumber = *p.RMANumber
		}
	}
	return nil
}

// UnmarshalJSON decodes a patch, accepting plain dates in date fields
func (p *CardPatch) UnmarshalJSON(data []byte) error {
	data, err := coerceDates(data)
	if err != nil {
		return err
	}
	type plain CardPatch
	return json.Unmarshal(data, (*plain)(p))
}

// Empty reports whether the patch changes nothing.
func (p *CardPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Stage == nil && p.Status == nil &&
		p.DueDate == nil && p.LastInteraction == nil && len(p.setFields()) == 0
}

func containsType(types []PipelineType, t PipelineType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}
