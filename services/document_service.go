package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kendall-kelly/av-pipeline-api/domain"
	"github.com/kendall-kelly/av-pipeline-api/logger"
	"github.com/kendall-kelly/av-pipeline-api/models"
	"github.com/kendall-kelly/av-pipeline-api/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AttachInput describes one uploaded file and the card it belongs to
type AttachInput struct {
	Content       io.Reader
	FileName      string
	Size          int64
	ContentType   string
	ProjectNumber string
	Category      string
	CardID        string
	CardType      string
}

// DocumentService attaches files to cards. Bytes go to the FileStorage, metadata to the database.
type DocumentService struct {
	db             *gorm.DB
	storage        FileStorage
	maxUploadBytes int64
}

func NewDocumentService(db *gorm.DB, storage FileStorage, maxUploadBytes int64) *DocumentService {
	return &DocumentService{db: db, storage: storage, maxUploadBytes: maxUploadBytes}
}

// DocumentKey builds the storage key <project>/<category folder>/<uuid><ext>
func DocumentKey(projectNumber string, category domain.DocumentCategory, fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	return path.Join(utils.SanitizePathSegment(projectNumber), category.Folder(), uuid.NewString()+ext)
}

// Attach validates everything it can before touching storage, writes the bytes, then records
// the metadata and bumps the card's lastModified in one transaction. When the metadata write
// fails the stored bytes are removed again.
func (s *DocumentService) Attach(ctx context.Context, in AttachInput) (*models.Document, error) {
	var missing []string
	if in.Content == nil {
		missing = append(missing, "file")
	}
	for name, value := range map[string]string{
		"projectNumber": in.ProjectNumber,
		"type":          in.Category,
		"cardId":        in.CardID,
		"cardType":      in.CardType,
	} {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, ValidationError("MISSING_FIELDS", "Missing required fields: "+strings.Join(sortedCopy(missing), ", "))
	}

	category := domain.DocumentCategory(strings.ToLower(strings.TrimSpace(in.Category)))
	if !category.Valid() {
		return nil, ValidationError("INVALID_CATEGORY", fmt.Sprintf("Invalid document type %q", in.Category))
	}
	cardType, err := domain.ParsePipelineType(in.CardType)
	if err != nil {
		return nil, ValidationError("INVALID_TYPE", err.Error())
	}
	if err := utils.ValidateDocumentFile(in.FileName, in.Size, s.maxUploadBytes); err != nil {
		var uploadErr *utils.FileUploadError
		if errors.As(err, &uploadErr) {
			return nil, ValidationError(uploadErr.Code, uploadErr.Message)
		}
		return nil, ValidationError("INVALID_FILE", err.Error())
	}

	db := s.db.WithContext(ctx)
	var card models.Card
	err = db.Select("id", "type").First(&card, "id = ?", in.CardID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, cardNotFound(in.CardID)
	}
	if err != nil {
		return nil, StorageError("DATABASE_ERROR", "Failed to load card", err)
	}
	if card.Type != string(cardType) {
		return nil, ValidationError("CARD_TYPE_MISMATCH",
			fmt.Sprintf("Card %s is a %s card, not %s", card.ID, card.Type, cardType))
	}

	fileName := filepath.Base(in.FileName)
	contentType := utils.ContentTypeFor(fileName, in.ContentType)
	key := DocumentKey(in.ProjectNumber, category, fileName)
	if err := s.storage.SaveFile(ctx, key, in.Content, contentType); err != nil {
		return nil, StorageError("FILE_SAVE_FAILED", "Failed to store file", err)
	}

	now := time.Now().UTC()
	doc := &models.Document{
		CardID:       card.ID,
		FileName:     fileName,
		Path:         key,
		Category:     string(category),
		ContentType:  contentType,
		Size:         in.Size,
		UploadDate:   now,
		LastModified: now,
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(doc).Error; err != nil {
			return err
		}
		return tx.Model(&models.Card{}).Where("id = ?", card.ID).Update("last_modified", now).Error
	})
	if err != nil {
		if delErr := s.storage.DeleteFile(ctx, key); delErr != nil {
			logger.FromContext(ctx).Warn("Failed to remove orphaned document file",
				zap.String("path", key), zap.Error(delErr))
		}
		return nil, StorageError("DATABASE_ERROR", "Failed to save document metadata", err)
	}

	if url, err := s.storage.GetFileURL(ctx, doc.Path); err == nil {
		doc.URL = url
	}
	return doc, nil
}

// List returns the documents of a card, oldest first
func (s *DocumentService) List(ctx context.Context, cardID, cardType string) ([]models.Document, error) {
	if strings.TrimSpace(cardID) == "" || strings.TrimSpace(cardType) == "" {
		return nil, ValidationError("MISSING_FIELDS", "cardId and cardType are required")
	}
	t, err := domain.ParsePipelineType(cardType)
	if err != nil {
		return nil, ValidationError("INVALID_TYPE", err.Error())
	}

	db := s.db.WithContext(ctx)
	var card models.Card
	err = db.Select("id", "type").First(&card, "id = ?", cardID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, cardNotFound(cardID)
	}
	if err != nil {
		return nil, StorageError("DATABASE_ERROR", "Failed to load card", err)
	}
	if card.Type != string(t) {
		return nil, ValidationError("CARD_TYPE_MISMATCH",
			fmt.Sprintf("Card %s is a %s card, not %s", card.ID, card.Type, t))
	}

	docs := []models.Document{}
	if err := db.Where("card_id = ?", cardID).Order("upload_date ASC, id ASC").Find(&docs).Error; err != nil {
		return nil, StorageError("DATABASE_ERROR", "Failed to list documents", err)
	}
	fillDocumentURLs(ctx, s.storage, docs)
	return docs, nil
}

// Get returns one document
func (s *DocumentService) Get(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	err := s.db.WithContext(ctx).First(&doc, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFoundError("DOCUMENT_NOT_FOUND", fmt.Sprintf("Document %s not found", id))
	}
	if err != nil {
		return nil, StorageError("DATABASE_ERROR", "Failed to load document", err)
	}
	docs := []models.Document{doc}
	fillDocumentURLs(ctx, s.storage, docs)
	return &docs[0], nil
}

// Detach deletes the stored bytes and then the metadata. Bytes that are already gone count as
// deleted. Any other storage failure keeps the metadata so the delete can be retried.
func (s *DocumentService) Detach(ctx context.Context, id string) error {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.storage.DeleteFile(ctx, doc.Path); err != nil {
		if !errors.Is(err, ErrFileNotFound) {
			return StorageError("FILE_DELETE_FAILED", "Failed to delete file from storage", err)
		}
		logger.FromContext(ctx).Info("Document file already missing", zap.String("path", doc.Path))
	}

	now := time.Now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Document{}, "id = ?", doc.ID).Error; err != nil {
			return err
		}
		return tx.Model(&models.Card{}).Where("id = ?", doc.CardID).Update("last_modified", now).Error
	})
	if err != nil {
		return StorageError("DATABASE_ERROR", "Failed to delete document metadata", err)
	}
	return nil
}

func sortedCopy(values []string) []string {
	out := append([]string{}, values...)
	sort.Strings(out)
	return out
}
