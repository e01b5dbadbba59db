package domain

import (
	"errors"
	"fmt"
	"strings"
)

// PipelineType identifies which board a card lives on.
type PipelineType string

const (
	TypeSales       PipelineType = "sales"
	TypeDesign      PipelineType = "design"
	TypeIntegration PipelineType = "integration"
	TypeService     PipelineType = "service"
	TypeRental      PipelineType = "rental"
	TypeRepair      PipelineType = "repair"
)

var pipelineTypes = []PipelineType{
	TypeSales,
	TypeDesign,
	TypeIntegration,
	TypeService,
	TypeRental,
	TypeRepair,
}

// ErrUnknownPipelineType is returned whenever a value does not name one of the six pipelines.
var ErrUnknownPipelineType = errors.New("unknown pipeline type")

// PipelineTypes returns all pipeline types in board order.
func PipelineTypes() []PipelineType {
	out := make([]PipelineType, len(pipelineTypes))
	copy(out, pipelineTypes)
	return out
}

// Valid reports whether t is one of the known pipeline types.
func (t PipelineType) Valid() bool {
	for _, known := range pipelineTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParsePipelineType accepts a type name in any case and surrounding whitespace.
func ParsePipelineType(value string) (PipelineType, error) {
	t := PipelineType(strings.ToLower(strings.TrimSpace(value)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPipelineType, value)
	}
	return t, nil
}

// Status is the lifecycle flag of a card, independent of its stage.
type Status string

const (
	StatusOpen            Status = "open"
	StatusWaitingOnDesign Status = "waiting_on_design"
	StatusClosed          Status = "closed"
	StatusOnHold          Status = "on_hold"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusWaitingOnDesign, StatusClosed, StatusOnHold:
		return true
	}
	return false
}

// ServiceType classifies service calls.
type ServiceType string

const (
	ServiceMaintenance ServiceType = "maintenance"
	ServiceRepair      ServiceType = "repair"
	ServiceUpgrade     ServiceType = "upgrade"
)

func (s ServiceType) Valid() bool {
	switch s {
	case ServiceMaintenance, ServiceRepair, ServiceUpgrade:
		return true
	}
	return false
}

// DocumentCategory tags an attached file. Each category is stored in its own folder
// under the project directory.
type DocumentCategory string

const (
	CategoryEstimate      DocumentCategory = "estimate"
	CategoryChangeOrder   DocumentCategory = "co"
	CategoryPhoto         DocumentCategory = "photo"
	CategoryDocumentation DocumentCategory = "documentation"
	CategoryProgramming   DocumentCategory = "programming"
)

var categoryFolders = map[DocumentCategory]string{
	CategoryEstimate:      "Signed Original Estimate",
	CategoryChangeOrder:   "Signed COs",
	CategoryPhoto:         "Job Documentation/Progress Photos",
	CategoryDocumentation: "Job Documentation/As-Built Documentation",
	CategoryProgramming:   "Job Documentation/Programming Files",
}

func (c DocumentCategory) Valid() bool {
	_, ok := categoryFolders[c]
	return ok
}

// Folder returns the storage folder for the category, or "" when the category is unknown.
func (c DocumentCategory) Folder() string {
	return categoryFolders[c]
}

// AutomationStep names one of the automation flags on a card.
type AutomationStep string

const (
	StepEmailLogged        AutomationStep = "emailLogged"
	StepAlertsSent         AutomationStep = "alertsSent"
	StepDocumentsGenerated AutomationStep = "documentsGenerated"
)

func (s AutomationStep) Valid() bool {
	switch s {
	case StepEmailLogged, StepAlertsSent, StepDocumentsGenerated:
		return true
	}
	return false
}
