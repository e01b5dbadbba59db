package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kendall-kelly/av-pipeline-api/domain"
	"github.com/kendall-kelly/av-pipeline-api/logger"
	"github.com/kendall-kelly/av-pipeline-api/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CardFilter narrows List and Pipeline results
type CardFilter struct {
	// Search matches card title, customer name or customer email, case-insensitively
	Search string
	// DueBefore keeps cards with a due date strictly before this instant
	DueBefore *time.Time
}

// CardService is the store for pipeline cards
type CardService struct {
	db          *gorm.DB
	storage     FileStorage
	stagePolicy domain.StagePolicy
}

// NewCardService creates a card service. storage may be nil when no documents are involved.
func NewCardService(db *gorm.DB, storage FileStorage, stagePolicy domain.StagePolicy) *CardService {
	if !stagePolicy.Valid() {
		stagePolicy = domain.StagePolicyReject
	}
	return &CardService{db: db, storage: storage, stagePolicy: stagePolicy}
}

func cardNotFound(id string) *Error {
	return NotFoundError("CARD_NOT_FOUND", fmt.Sprintf("Card %s not found", id))
}

func preloadCard(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Customer").
		Preload("IntegrationDetail").
		Preload("Documents", func(db *gorm.DB) *gorm.DB {
			return db.Order("upload_date ASC, id ASC")
		})
}

// loadRecord reads one card row with its relations
func loadRecord(db *gorm.DB, id string) (*models.Card, error) {
	var rec models.Card
	err := preloadCard(db).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, cardNotFound(id)
	}
	if err != nil {
		return nil, StorageError("DATABASE_ERROR", "Failed to load card", err)
	}
	return &rec, nil
}

func (s *CardService) toCard(ctx context.Context, rec *models.Card) (*domain.Card, error) {
	card, err := ToApplication(rec, domain.PipelineType(rec.Type))
	if err != nil {
		return nil, StorageError("CORRUPT_CARD", "Stored card could not be read", err)
	}
	fillDocumentURLs(ctx, s.storage, card.Documents)
	return card, nil
}

// fillDocumentURLs sets the computed URL of each document. A storage that cannot produce a
// URL leaves it empty.
func fillDocumentURLs(ctx context.Context, storage FileStorage, docs []models.Document) {
	if storage == nil {
		return
	}
	for i := range docs {
		url, err := storage.GetFileURL(ctx, docs[i].Path)
		if err != nil {
			logger.FromContext(ctx).Warn("Failed to build document URL",
				zap.String("document_id", docs[i].ID), zap.Error(err))
			continue
		}
		docs[i].URL = url
	}
}

// Create validates and stores a new card. A customer id that does not exist yet gets a
// placeholder customer in the same transaction.
func (s *CardService) Create(ctx context.Context, card *domain.Card) (*domain.Card, error) {
	if card == nil {
		return nil, ValidationError("INVALID_CARD", "Card is required")
	}
	if !card.Type.Valid() {
		return nil, ValidationError("INVALID_TYPE", fmt.Sprintf("Invalid pipeline type %q", card.Type))
	}
	if err := card.Validate(); err != nil {
		return nil, ValidationError("INVALID_CARD", err.Error())
	}
	card.Title = strings.TrimSpace(card.Title)
	if card.Title == "" {
		return nil, ValidationError("MISSING_FIELDS", "Title is required")
	}
	if strings.TrimSpace(card.CustomerID) == "" {
		return nil, ValidationError("MISSING_FIELDS", "Customer id is required")
	}

	if card.Stage == "" {
		card.Stage, _ = domain.DefaultStage(card.Type)
	} else {
		stage, err := domain.ResolveStage(card.Type, string(card.Stage), s.stagePolicy)
		if err != nil {
			return nil, ValidationError("INVALID_STAGE", err.Error())
		}
		card.Stage = stage
	}
	if card.Status == "" {
		card.Status = domain.StatusOpen
	}
	if !card.Status.Valid() {
		return nil, ValidationError("INVALID_STATUS", fmt.Sprintf("Invalid status %q", card.Status))
	}
	if card.Service != nil && card.Service.ServiceType == "" {
		card.Service.ServiceType = domain.ServiceMaintenance
	}

	now := time.Now().UTC()
	card.ID = ""
	card.CreatedAt = now
	card.LastModified = now
	if card.LastInteraction.IsZero() {
		card.LastInteraction = now
	}
	card.AutomationStatus = domain.AutomationStatus{}
	card.Documents = nil
	card.Customer = nil

	rec, err := ToPersistence(card)
	if err != nil {
		return nil, ValidationError("INVALID_CARD", err.Error())
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customers := NewCustomerService(tx, "")
		_, created, err := customers.FindOrCreatePlaceholder(ctx, card.CustomerID)
		if err != nil {
			return err
		}
		if created {
			logger.FromContext(ctx).Info("Created placeholder customer", zap.String("customer_id", card.CustomerID))
		}
		return tx.Omit("Customer", "Documents").Create(rec).Error
	})
	if err != nil {
		return nil, asServiceError(err, "Failed to create card")
	}

	return s.Get(ctx, rec.ID)
}

// Get returns one card with its documents and customer
func (s *CardService) Get(ctx context.Context, id string) (*domain.Card, error) {
	rec, err := loadRecord(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	return s.toCard(ctx, rec)
}

// List returns the cards of one pipeline ordered by creation time
func (s *CardService) List(ctx context.Context, t domain.PipelineType, filter CardFilter) ([]*domain.Card, error) {
	if !t.Valid() {
		return nil, ValidationError("INVALID_TYPE", fmt.Sprintf("Invalid pipeline type %q", t))
	}

	db := s.db.WithContext(ctx)
	query := preloadCard(db).Where("type = ?", string(t))
	if term := strings.TrimSpace(filter.Search); term != "" {
		pattern := "%" + strings.ToLower(term) + "%"
		matchingCustomers := db.Model(&models.Customer{}).Select("id").
			Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", pattern, pattern)
		query = query.Where("(LOWER(title) LIKE ? OR customer_id IN (?))", pattern, matchingCustomers)
	}
	if filter.DueBefore != nil {
		query = query.Where("due_date IS NOT NULL AND due_date < ?", filter.DueBefore.UTC())
	}

	var recs []models.Card
	if err := query.Order("created_at ASC, id ASC").Find(&recs).Error; err != nil {
		return nil, StorageError("DATABASE_ERROR", "Failed to list cards", err)
	}

	cards := make([]*domain.Card, 0, len(recs))
	for i := range recs {
		card, err := s.toCard(ctx, &recs[i])
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, nil
}

// Pipeline returns the board of one pipeline: one column per stage in catalog order
func (s *CardService) Pipeline(ctx context.Context, t domain.PipelineType, filter CardFilter) ([]domain.Column, error) {
	cards, err := s.List(ctx, t, filter)
	if err != nil {
		return nil, err
	}
	return domain.BuildColumns(t, cards), nil
}

// checkType rejects a request whose declared type disagrees with the stored card
func checkType(rec *models.Card, t domain.PipelineType) error {
	if t != "" && string(t) != rec.Type {
		return ValidationError("CARD_TYPE_MISMATCH",
			fmt.Sprintf("Card %s is a %s card, not %s", rec.ID, rec.Type, t))
	}
	return nil
}

// MoveStage moves a card to another stage of its own pipeline. t may be empty; when set it
// must match the card's type.
func (s *CardService) MoveStage(ctx context.Context, id string, t domain.PipelineType, stage string) (*domain.Card, error) {
	if strings.TrimSpace(stage) == "" {
		return nil, ValidationError("MISSING_FIELDS", "Stage is required")
	}

	db := s.db.WithContext(ctx)
	var rec models.Card
	err := db.Select("id", "type").First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, cardNotFound(id)
	}
	if err != nil {
		return nil, StorageError("DATABASE_ERROR", "Failed to load card", err)
	}
	if err := checkType(&rec, t); err != nil {
		return nil, err
	}

	resolved, err := domain.ResolveStage(domain.PipelineType(rec.Type), stage, s.stagePolicy)
	if err != nil {
		return nil, ValidationError("INVALID_STAGE", err.Error())
	}

	now := time.Now().UTC()
	result := db.Model(&models.Card{}).Where("id = ?", id).Updates(map[string]interface{}{
		"stage":            string(resolved),
		"last_modified":    now,
		"last_interaction": now,
	})
	if result.Error != nil {
		return nil, StorageError("DATABASE_ERROR", "Failed to move card", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, cardNotFound(id)
	}
	return s.Get(ctx, id)
}

// Update merges a patch into a card. t may be empty; when set it must match the card's type.
func (s *CardService) Update(ctx context.Context, id string, t domain.PipelineType, patch *domain.CardPatch) (*domain.Card, error) {
	if patch == nil || patch.Empty() {
		return nil, ValidationError("MISSING_FIELDS", "No fields to update")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := loadRecord(tx, id)
		if err != nil {
			return err
		}
		if err := checkType(rec, t); err != nil {
			return err
		}
		card, err := ToApplication(rec, domain.PipelineType(rec.Type))
		if err != nil {
			return StorageError("CORRUPT_CARD", "Stored card could not be read", err)
		}

		previousStage := card.Stage
		if err := patch.Apply(card, s.stagePolicy); err != nil {
			return ValidationError("INVALID_FIELDS", err.Error())
		}
		now := time.Now().UTC()
		card.LastModified = now
		if card.Stage != previousStage && patch.LastInteraction == nil {
			card.LastInteraction = now
		}

		updated, err := ToPersistence(card)
		if err != nil {
			return ValidationError("INVALID_CARD", err.Error())
		}
		err = tx.Model(&models.Card{ID: id}).
			Select("*").
			Omit("id", "type", "customer_id", "project_number", "created_at",
				"Customer", "Documents", "IntegrationDetail").
			Updates(updated).Error
		if err != nil {
			return err
		}

		if detail := updated.IntegrationDetail; detail != nil {
			detail.CardID = id
			if rec.IntegrationDetail != nil {
				detail.ID = rec.IntegrationDetail.ID
				detail.CreatedAt = rec.IntegrationDetail.CreatedAt
			}
			return tx.Save(detail).Error
		}
		return nil
	})
	if err != nil {
		return nil, asServiceError(err, "Failed to update card")
	}
	return s.Get(ctx, id)
}

var automationColumns = map[domain.AutomationStep]string{
	domain.StepEmailLogged:        "email_logged",
	domain.StepAlertsSent:         "alerts_sent",
	domain.StepDocumentsGenerated: "documents_generated",
}

// RecordAutomation marks one automation step as done. Flags only ever go from false to true.
func (s *CardService) RecordAutomation(ctx context.Context, id string, step domain.AutomationStep) (*domain.Card, error) {
	column, ok := automationColumns[step]
	if !ok {
		return nil, ValidationError("INVALID_STEP", fmt.Sprintf("Unknown automation step %q", step))
	}

	result := s.db.WithContext(ctx).Model(&models.Card{}).Where("id = ?", id).Updates(map[string]interface{}{
		column:          true,
		"last_modified": time.Now().UTC(),
	})
	if result.Error != nil {
		return nil, StorageError("DATABASE_ERROR", "Failed to record automation", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, cardNotFound(id)
	}
	return s.Get(ctx, id)
}

// Delete removes a card together with its documents. Cards that other cards point back to
// cannot be deleted. Stored bytes are removed after the database commit; failures there only
// leave orphaned files and are logged.
func (s *CardService) Delete(ctx context.Context, id string, t domain.PipelineType) error {
	if !t.Valid() {
		return ValidationError("INVALID_TYPE", fmt.Sprintf("Invalid pipeline type %q", t))
	}

	var docs []models.Document
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec models.Card
		err := tx.Select("id", "type").First(&rec, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return cardNotFound(id)
		}
		if err != nil {
			return err
		}
		if err := checkType(&rec, t); err != nil {
			return err
		}

		var dependents int64
		if err := tx.Model(&models.Card{}).Where("sales_card_id = ?", id).Count(&dependents).Error; err != nil {
			return err
		}
		if dependents > 0 {
			return ConflictError("CARD_REFERENCED",
				fmt.Sprintf("Card is referenced by %d other card(s)", dependents))
		}

		if err := tx.Where("card_id = ?", id).Find(&docs).Error; err != nil {
			return err
		}
		if err := tx.Where("card_id = ?", id).Delete(&models.Document{}).Error; err != nil {
			return err
		}
		if err := tx.Where("card_id = ?", id).Delete(&models.IntegrationDetail{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Card{ID: id}).Error
	})
	if err != nil {
		return asServiceError(err, "Failed to delete card")
	}

	if s.storage != nil {
		log := logger.FromContext(ctx)
		for _, doc := range docs {
			if err := s.storage.DeleteFile(ctx, doc.Path); err != nil && !errors.Is(err, ErrFileNotFound) {
				log.Warn("Failed to delete document file", zap.String("path", doc.Path), zap.Error(err))
			}
		}
	}
	return nil
}
