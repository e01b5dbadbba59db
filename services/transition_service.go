package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kendall-kelly/av-pipeline-api/domain"
	"github.com/kendall-kelly/av-pipeline-api/logger"
	"github.com/kendall-kelly/av-pipeline-api/metrics"
	"github.com/kendall-kelly/av-pipeline-api/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Transition names used in logs and metrics
const (
	TransitionRequestDesign     = "request_design"
	TransitionCompleteDesign    = "complete_design"
	TransitionCreateIntegration = "create_integration"
)

// DepositRate is the share of the approved proposal value billed as deposit
var DepositRate = decimal.RequireFromString("0.5")

// TransitionResult holds the cards touched by a transition
type TransitionResult struct {
	SalesCard       *domain.Card `json:"salesCard"`
	DesignCard      *domain.Card `json:"designCard,omitempty"`
	IntegrationCard *domain.Card `json:"integrationCard,omitempty"`
}

// TransitionService moves work between pipelines. Every transition checks its preconditions
// and applies all of its writes in one database transaction.
type TransitionService struct {
	db    *gorm.DB
	cards *CardService
}

func NewTransitionService(db *gorm.DB, cards *CardService) *TransitionService {
	return &TransitionService{db: db, cards: cards}
}

// cardState is what a transition expects a card to look like. Empty fields are not checked.
type cardState struct {
	Type   domain.PipelineType
	Stage  domain.Stage
	Status domain.Status
}

func checkCard(tx *gorm.DB, id string, want cardState) (*models.Card, error) {
	var rec models.Card
	err := tx.Preload("IntegrationDetail").First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, cardNotFound(id)
	}
	if err != nil {
		return nil, err
	}

	if want.Type != "" && rec.Type != string(want.Type) {
		return nil, ConflictError("WRONG_CARD_TYPE",
			fmt.Sprintf("Card %s is a %s card, expected a %s card", id, rec.Type, want.Type))
	}
	if want.Stage != "" && rec.Stage != string(want.Stage) {
		return nil, ConflictError("WRONG_STAGE",
			fmt.Sprintf("Card %s is in stage %q, expected %q", id,
				domain.StageTitle(domain.PipelineType(rec.Type), domain.Stage(rec.Stage)),
				domain.StageTitle(want.Type, want.Stage)))
	}
	if want.Status != "" && rec.Status != string(want.Status) {
		return nil, ConflictError("WRONG_STATUS",
			fmt.Sprintf("Card %s has status %q, expected %q", id, rec.Status, want.Status))
	}
	return &rec, nil
}

// guardedUpdate applies changes only while the card still matches want. A concurrent change
// between the check and the write becomes a Conflict instead of a partial transition.
func guardedUpdate(tx *gorm.DB, id string, want cardState, changes map[string]interface{}) error {
	query := tx.Model(&models.Card{}).Where("id = ?", id)
	if want.Type != "" {
		query = query.Where("type = ?", string(want.Type))
	}
	if want.Stage != "" {
		query = query.Where("stage = ?", string(want.Stage))
	}
	if want.Status != "" {
		query = query.Where("status = ?", string(want.Status))
	}

	result := query.Updates(changes)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected != 1 {
		return ConflictError("CARD_CHANGED", fmt.Sprintf("Card %s changed while the transition was running", id))
	}
	return nil
}

// derivedCard starts a card in another pipeline that points back at the sales card
func derivedCard(t domain.PipelineType, prefix string, sales *models.Card, now time.Time) (*domain.Card, error) {
	card, err := domain.NewCard(t)
	if err != nil {
		return nil, err
	}
	card.CustomerID = sales.CustomerID
	card.ProjectNumber = sales.ProjectNumber
	card.Title = fmt.Sprintf("%s - %s", prefix, sales.Title)
	card.Description = sales.Description
	card.Stage, _ = domain.DefaultStage(t)
	card.Status = domain.StatusOpen
	card.CreatedAt = now
	card.LastModified = now
	card.LastInteraction = now
	card.Documents = []models.Document{}
	return card, nil
}

func (s *TransitionService) finish(ctx context.Context, name string, err error) error {
	log := logger.FromContext(ctx).With(zap.String("transition", name))
	switch {
	case err == nil:
		metrics.ObserveTransition(name, "success")
		log.Info("Transition applied")
		return nil
	case IsKind(err, KindNotFound), IsKind(err, KindConflict), IsKind(err, KindValidation):
		metrics.ObserveTransition(name, "rejected")
		log.Info("Transition rejected", zap.Error(err))
	default:
		metrics.ObserveTransition(name, "error")
		log.Error("Transition failed", zap.Error(err))
	}
	return asServiceError(err, "Transition failed")
}

// RequestDesign hands an open sales card at Appointment Complete to the design team. The sales
// card waits on design and a new design card is created at New Design.
func (s *TransitionService) RequestDesign(ctx context.Context, salesCardID string) (*TransitionResult, error) {
	if salesCardID == "" {
		return nil, s.finish(ctx, TransitionRequestDesign, ValidationError("MISSING_FIELDS", "Sales card id is required"))
	}

	var designID string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		want := cardState{Type: domain.TypeSales, Stage: domain.StageAppointmentComplete, Status: domain.StatusOpen}
		sales, err := checkCard(tx, salesCardID, want)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		err = guardedUpdate(tx, sales.ID, want, map[string]interface{}{
			"status":        string(domain.StatusWaitingOnDesign),
			"last_modified": now,
		})
		if err != nil {
			return err
		}

		design, err := derivedCard(domain.TypeDesign, "DESIGN", sales, now)
		if err != nil {
			return err
		}
		design.Design.SalesCardID = sales.ID
		rec, err := ToPersistence(design)
		if err != nil {
			return err
		}
		if err := tx.Omit("Customer", "Documents").Create(rec).Error; err != nil {
			return err
		}
		designID = rec.ID
		return nil
	})
	if err := s.finish(ctx, TransitionRequestDesign, err); err != nil {
		return nil, err
	}
	return s.result(ctx, salesCardID, designID, "")
}

// CompleteDesign closes a design card at Design Verification and sends its sales card back to
// Proposal, open again.
func (s *TransitionService) CompleteDesign(ctx context.Context, designCardID string) (*TransitionResult, error) {
	if designCardID == "" {
		return nil, s.finish(ctx, TransitionCompleteDesign, ValidationError("MISSING_FIELDS", "Design card id is required"))
	}

	var salesID string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		want := cardState{Type: domain.TypeDesign, Stage: domain.StageDesignVerification}
		design, err := checkCard(tx, designCardID, want)
		if err != nil {
			return err
		}
		if design.SalesCardID == nil || *design.SalesCardID == "" {
			return ConflictError("MISSING_SALES_CARD", fmt.Sprintf("Design card %s has no originating sales card", design.ID))
		}
		salesID = *design.SalesCardID

		salesWant := cardState{Type: domain.TypeSales, Status: domain.StatusWaitingOnDesign}
		if _, err := checkCard(tx, salesID, salesWant); err != nil {
			return err
		}

		now := time.Now().UTC()
		err = guardedUpdate(tx, design.ID, want, map[string]interface{}{
			"stage":         string(domain.StageDesignComplete),
			"status":        string(domain.StatusClosed),
			"last_modified": now,
		})
		if err != nil {
			return err
		}
		return guardedUpdate(tx, salesID, salesWant, map[string]interface{}{
			"stage":            string(domain.StageProposal),
			"status":           string(domain.StatusOpen),
			"last_modified":    now,
			"last_interaction": now,
		})
	})
	if err := s.finish(ctx, TransitionCompleteDesign, err); err != nil {
		return nil, err
	}
	return s.result(ctx, salesID, designCardID, "")
}

// CreateIntegration turns a won, open sales card into an integration job. The sales card is
// closed and the integration contract is seeded from the estimate with a 50% deposit.
func (s *TransitionService) CreateIntegration(ctx context.Context, salesCardID string) (*TransitionResult, error) {
	if salesCardID == "" {
		return nil, s.finish(ctx, TransitionCreateIntegration, ValidationError("MISSING_FIELDS", "Sales card id is required"))
	}

	var integrationID string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		want := cardState{Type: domain.TypeSales, Stage: domain.StageWon, Status: domain.StatusOpen}
		sales, err := checkCard(tx, salesCardID, want)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		err = guardedUpdate(tx, sales.ID, want, map[string]interface{}{
			"status":        string(domain.StatusClosed),
			"last_modified": now,
		})
		if err != nil {
			return err
		}

		integration, err := derivedCard(domain.TypeIntegration, "INTEGRATION", sales, now)
		if err != nil {
			return err
		}
		integration.Integration.SalesCardID = sales.ID
		integration.Integration.Contract = domain.Contract{
			ApprovedProposalValue: sales.EstimateValue,
			DepositAmount:         sales.EstimateValue.Mul(DepositRate).Round(2),
		}
		rec, err := ToPersistence(integration)
		if err != nil {
			return err
		}
		if err := tx.Omit("Customer", "Documents").Create(rec).Error; err != nil {
			return err
		}
		integrationID = rec.ID
		return nil
	})
	if err := s.finish(ctx, TransitionCreateIntegration, err); err != nil {
		return nil, err
	}
	return s.result(ctx, salesCardID, "", integrationID)
}

func (s *TransitionService) result(ctx context.Context, salesID, designID, integrationID string) (*TransitionResult, error) {
	out := &TransitionResult{}
	var err error
	if out.SalesCard, err = s.cards.Get(ctx, salesID); err != nil {
		return nil, err
	}
	if designID != "" {
		if out.DesignCard, err = s.cards.Get(ctx, designID); err != nil {
			return nil, err
		}
	}
	if integrationID != "" {
		if out.IntegrationCard, err = s.cards.Get(ctx, integrationID); err != nil {
			return nil, err
		}
	}
	return out, nil
}
