package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Stage is the machine identifier of a column within a pipeline.
type Stage string

// StageInfo pairs a stage id with its display title.
type StageInfo struct {
	ID    Stage  `json:"id"`
	Title string `json:"title"`
}

const (
	StageNewLead              Stage = "new-lead"
	StageQualified            Stage = "qualified"
	StageAppointmentScheduled Stage = "appointment-scheduled"
	StageAppointmentComplete  Stage = "appointment-complete"
	StageDesign               Stage = "design"
	StageProposal             Stage = "proposal"
	StageProposalSent         Stage = "proposal-sent"
	StageRevisions            Stage = "revisions"
	StageRevisionsSent        Stage = "revisions-sent"
	StageWon                  Stage = "won"
	StageClosedLost           Stage = "closed-lost"

	StageNewDesign          Stage = "new-design"
	StageDesignStarted      Stage = "design-started"
	StageDesignVerification Stage = "design-verification"
	StageDesignComplete     Stage = "design-complete"

	StageApproved          Stage = "approved"
	StageInvoiceSent       Stage = "invoice-sent"
	StagePaid              Stage = "paid"
	StageEquipmentOrdered  Stage = "equipment-ordered"
	StageEquipmentReceived Stage = "equipment-received"
	StageScheduled         Stage = "scheduled"
	StageInstallation      Stage = "installation"
	StageWrapUp            Stage = "wrap-up"
	StageCommission        Stage = "commission"
	StageReadyToInvoice    Stage = "ready-to-invoice"
	StageInvoiced          Stage = "invoiced"

	StageRequestReceived  Stage = "request-received"
	StageContacted        Stage = "contacted"
	StageNeedsPartsQuote  Stage = "needs-parts-quote"
	StageNeedsSystemSales Stage = "needs-system-sales"
	StageNeedsRMA         Stage = "needs-rma"
	StageNeedsRevisit     Stage = "needs-revisit"

	StageQuoting       Stage = "quoting"
	StageQuoteSent     Stage = "quote-sent"
	StageQuoteAccepted Stage = "quote-accepted"

	StageRepairRequest  Stage = "repair-request"
	StageDiagnosing     Stage = "diagnosing"
	StageAwaitingParts  Stage = "awaiting-parts"
	StageInRepair       Stage = "in-repair"
	StageTesting        Stage = "testing"
	StageReadyForPickup Stage = "ready-for-pickup"
	StageReturned       Stage = "returned"
)

// The first stage of every list is the default for new cards of that type.
var catalog = map[PipelineType][]StageInfo{
	TypeSales: {
		{StageNewLead, "New Lead"},
		{StageQualified, "Qualified"},
		{StageAppointmentScheduled, "Appointment Scheduled"},
		{StageAppointmentComplete, "Appointment Complete"},
		{StageDesign, "Design"},
		{StageProposal, "Proposal"},
		{StageProposalSent, "Proposal Sent"},
		{StageRevisions, "Revisions"},
		{StageRevisionsSent, "Revisions Sent"},
		{StageWon, "Won"},
		{StageClosedLost, "Closed Lost"},
	},
	TypeDesign: {
		{StageNewDesign, "New Design"},
		{StageDesignStarted, "Design Started"},
		{StageDesignVerification, "Design Verification"},
		{StageDesignComplete, "Design Complete"},
	},
	TypeIntegration: {
		{StageApproved, "Approved"},
		{StageInvoiceSent, "Invoice Sent"},
		{StagePaid, "Paid"},
		{StageEquipmentOrdered, "Equipment Ordered"},
		{StageEquipmentReceived, "Equipment Received"},
		{StageScheduled, "Scheduled"},
		{StageInstallation, "Installation"},
		{StageWrapUp, "Wrap Up"},
		{StageCommission, "Commission"},
		{StageReadyToInvoice, "Ready To Invoice"},
		{StageInvoiced, "Invoiced"},
	},
	TypeService: {
		{StageRequestReceived, "Request Received"},
		{StageContacted, "Contacted"},
		{StageScheduled, "Scheduled"},
		{StageNeedsPartsQuote, "Needs Parts Quote"},
		{StageNeedsSystemSales, "Needs System Sales"},
		{StageNeedsRMA, "Needs RMA"},
		{StageNeedsRevisit, "Needs Revisit"},
		{StageReadyToInvoice, "Ready To Invoice"},
		{StageInvoiced, "Invoiced"},
	},
	TypeRental: {
		{StageRequestReceived, "Request Received"},
		{StageContacted, "Contacted"},
		{StageQuoting, "Quoting"},
		{StageQuoteSent, "Quote Sent"},
		{StageQuoteAccepted, "Quote Accepted"},
		{StageReadyToInvoice, "Ready To Invoice"},
		{StageInvoiced, "Invoiced"},
	},
	TypeRepair: {
		{StageRepairRequest, "Repair Request"},
		{StageDiagnosing, "Diagnosing"},
		{StageAwaitingParts, "Awaiting Parts"},
		{StageInRepair, "In Repair"},
		{StageTesting, "Testing"},
		{StageReadyForPickup, "Ready For Pickup"},
		{StageReturned, "Returned"},
	},
}

// Stages returns the ordered stage list of a pipeline. Unknown types yield an empty list.
func Stages(t PipelineType) []StageInfo {
	stages := catalog[t]
	out := make([]StageInfo, len(stages))
	copy(out, stages)
	return out
}

// DefaultStage returns the stage new cards of type t start in.
func DefaultStage(t PipelineType) (Stage, bool) {
	stages := catalog[t]
	if len(stages) == 0 {
		return "", false
	}
	return stages[0].ID, true
}

// HasStage reports whether s is a stage of pipeline t.
func HasStage(t PipelineType, s Stage) bool {
	for _, info := range catalog[t] {
		if info.ID == s {
			return true
		}
	}
	return false
}

// StageTitle returns the display title of s, or the raw stage string when t has no such stage.
func StageTitle(t PipelineType, s Stage) string {
	for _, info := range catalog[t] {
		if info.ID == s {
			return info.Title
		}
	}
	return string(s)
}

// StagePolicy decides what happens to a stage value that matches nothing in the catalog.
type StagePolicy string

const (
	StagePolicyReject  StagePolicy = "reject"
	StagePolicyDefault StagePolicy = "default"
)

func (p StagePolicy) Valid() bool {
	return p == StagePolicyReject || p == StagePolicyDefault
}

var ErrUnknownStage = errors.New("unknown stage")

// ResolveStage maps a stage id or display title onto a catalog stage of pipeline t.
// Matching ignores case and treats spaces, underscores and hyphens alike.
func ResolveStage(t PipelineType, value string, policy StagePolicy) (Stage, error) {
	stages, ok := catalog[t]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPipelineType, t)
	}

	key := stageKey(value)
	if key != "" {
		for _, info := range stages {
			if stageKey(string(info.ID)) == key || stageKey(info.Title) == key {
				return info.ID, nil
			}
		}
	}

	if policy == StagePolicyDefault {
		return stages[0].ID, nil
	}
	return "", fmt.Errorf("%w %q for %s pipeline", ErrUnknownStage, value, t)
}

func stageKey(value string) string {
	fields := strings.FieldsFunc(strings.ToLower(value), func(r rune) bool {
		return r == ' ' || r == '-' || r == '_' || r == '\t'
	})
	return strings.Join(fields, "-")
}

// Column is one stage of a rendered board.
type Column struct {
	ID    Stage   `json:"id"`
	Title string  `json:"title"`
	Cards []*Card `json:"cards"`
}

// BuildColumns groups cards into the stage columns of pipeline t. Every catalog stage yields
// exactly one column, in catalog order. Cards whose stored stage is not in the catalog are
// collected into extra trailing columns titled with the raw stage so they stay visible.
func BuildColumns(t PipelineType, cards []*Card) []Column {
	stages := catalog[t]
	columns := make([]Column, 0, len(stages))
	index := make(map[Stage]int, len(stages))
	for i, info := range stages {
		columns = append(columns, Column{ID: info.ID, Title: info.Title, Cards: []*Card{}})
		index[info.ID] = i
	}

	for _, card := range cards {
		i, ok := index[card.Stage]
		if !ok {
			columns = append(columns, Column{ID: card.Stage, Title: string(card.Stage), Cards: []*Card{}})
			i = len(columns) - 1
			index[card.Stage] = i
		}
		columns[i].Cards = append(columns[i].Cards, card)
	}
	return columns
}
