package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kendall-kelly/av-pipeline-api/domain"
	"github.com/kendall-kelly/av-pipeline-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pdfInput(cardID string) AttachInput {
	content := []byte("%PDF-1.4 signed estimate")
	return AttachInput{
		Content:       bytes.NewReader(content),
		FileName:      "Estimate.PDF",
		Size:          int64(len(content)),
		ProjectNumber: "P-100",
		Category:      "estimate",
		CardID:        cardID,
		CardType:      "sales",
	}
}

func TestDocumentKey(t *testing.T) {
	key := DocumentKey("P-100", domain.CategoryEstimate, "Signed Estimate.PDF")
	assert.True(t, strings.HasPrefix(key, "P-100/Signed Original Estimate/"), key)
	assert.True(t, strings.HasSuffix(key, ".pdf"), key)

	photo := DocumentKey("../../etc", domain.CategoryPhoto, "site.jpg")
	assert.True(t, strings.HasPrefix(photo, "-..-etc/Job Documentation/Progress Photos/"), photo)

	assert.NotEqual(t, key, DocumentKey("P-100", domain.CategoryEstimate, "Signed Estimate.PDF"))
}

func TestDocumentService_Attach(t *testing.T) {
	db := setupTestDB(t)
	storage := NewMockFileStorage()
	cards := NewCardService(db, storage, domain.StagePolicyReject)
	svc := NewDocumentService(db, storage, 1<<20)
	ctx := context.Background()

	card := createAtStage(t, cards, "cust-1", "Attach here", "")

	doc, err := svc.Attach(ctx, pdfInput(card.ID))
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, card.ID, doc.CardID)
	assert.Equal(t, "Estimate.PDF", doc.FileName)
	assert.Equal(t, "estimate", doc.Category)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.Equal(t, "https://files.test/"+doc.Path+"?mock=true", doc.URL)
	assert.Equal(t, []byte("%PDF-1.4 signed estimate"), storage.Files()[doc.Path])

	reloaded, err := cards.Get(ctx, card.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Documents, 1)
	assert.Equal(t, doc.ID, reloaded.Documents[0].ID)
	assert.Equal(t, doc.URL, reloaded.Documents[0].URL)
	assert.False(t, reloaded.LastModified.Before(card.LastModified))
}

func TestDocumentService_AttachRejectsBeforeStoring(t *testing.T) {
	db := setupTestDB(t)
	storage := NewMockFileStorage()
	cards := NewCardService(db, storage, domain.StagePolicyReject)
	svc := NewDocumentService(db, storage, 16)
	ctx := context.Background()

	card := createAtStage(t, cards, "cust-1", "Validate", "")

	tests := []struct {
		name   string
		modify func(in *AttachInput)
		kind   ErrorKind
		code   string
	}{
		{"missing everything", func(in *AttachInput) { *in = AttachInput{} }, KindValidation, "MISSING_FIELDS"},
		{"missing file", func(in *AttachInput) { in.Content = nil }, KindValidation, "MISSING_FIELDS"},
		{"unknown category", func(in *AttachInput) { in.Category = "invoice" }, KindValidation, "INVALID_CATEGORY"},
		{"unknown card type", func(in *AttachInput) { in.CardType = "install" }, KindValidation, "INVALID_TYPE"},
		{"too large", func(in *AttachInput) { in.Size = 17 }, KindValidation, "FILE_TOO_LARGE"},
		{"bad extension", func(in *AttachInput) { in.FileName = "run.exe"; in.Size = 4 }, KindValidation, "INVALID_FILE_FORMAT"},
		{"unknown card", func(in *AttachInput) { in.CardID = "missing"; in.Size = 4 }, KindNotFound, "CARD_NOT_FOUND"},
		{"card type mismatch", func(in *AttachInput) { in.CardType = "repair"; in.Size = 4 }, KindValidation, "CARD_TYPE_MISMATCH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := pdfInput(card.ID)
			tt.modify(&in)
			_, err := svc.Attach(ctx, in)
			requireCode(t, err, tt.kind, tt.code)
			assert.Empty(t, storage.Files())
		})
	}

	_, err := svc.Attach(ctx, AttachInput{})
	assert.Contains(t, err.Error(), "cardId, cardType, file, projectNumber, type")
}

func TestDocumentService_AttachRemovesBytesWhenMetadataFails(t *testing.T) {
	db := setupTestDB(t)
	storage := NewMockFileStorage()
	cards := NewCardService(db, storage, domain.StagePolicyReject)
	svc := NewDocumentService(db, storage, 1<<20)
	ctx := context.Background()

	card := createAtStage(t, cards, "cust-1", "Metadata failure", "")
	failOn(t, db, "test:fail_document_create", func(dest interface{}) bool {
		_, ok := dest.(*models.Document)
		return ok
	}, errors.New("constraint failed"))

	_, err := svc.Attach(ctx, pdfInput(card.ID))
	requireCode(t, err, KindStorage, "DATABASE_ERROR")
	assert.Empty(t, storage.Files())
}

func TestDocumentService_AttachStorageFailure(t *testing.T) {
	db := setupTestDB(t)
	storage := NewMockFileStorage()
	storage.SaveErr = errors.New("bucket unavailable")
	cards := NewCardService(db, storage, domain.StagePolicyReject)
	svc := NewDocumentService(db, storage, 1<<20)
	ctx := context.Background()

	card := createAtStage(t, cards, "cust-1", "Storage failure", "")
	_, err := svc.Attach(ctx, pdfInput(card.ID))
	requireCode(t, err, KindStorage, "FILE_SAVE_FAILED")

	var count int64
	db.Model(&models.Document{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestDocumentService_List(t *testing.T) {
	db := setupTestDB(t)
	storage := NewMockFileStorage()
	cards := NewCardService(db, storage, domain.StagePolicyReject)
	svc := NewDocumentService(db, storage, 1<<20)
	ctx := context.Background()

	card := createAtStage(t, cards, "cust-1", "Listed", "")
	other := createAtStage(t, cards, "cust-1", "Other", "")
	first, err := svc.Attach(ctx, pdfInput(card.ID))
	require.NoError(t, err)
	_, err = svc.Attach(ctx, pdfInput(other.ID))
	require.NoError(t, err)

	docs, err := svc.List(ctx, card.ID, "sales")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, first.ID, docs[0].ID)
	assert.NotEmpty(t, docs[0].URL)

	empty := createAtStage(t, cards, "cust-1", "Empty", "")
	docs, err = svc.List(ctx, empty.ID, "sales")
	require.NoError(t, err)
	assert.Equal(t, []models.Document{}, docs)

	_, err = svc.List(ctx, card.ID, "rental")
	requireCode(t, err, KindValidation, "CARD_TYPE_MISMATCH")
	_, err = svc.List(ctx, "", "sales")
	requireCode(t, err, KindValidation, "MISSING_FIELDS")
}

func TestDocumentService_Detach(t *testing.T) {
	db := setupTestDB(t)
	storage := NewMockFileStorage()
	cards := NewCardService(db, storage, domain.StagePolicyReject)
	svc := NewDocumentService(db, storage, 1<<20)
	ctx := context.Background()
	card := createAtStage(t, cards, "cust-1", "Detach", "")

	t.Run("removes bytes and metadata", func(t *testing.T) {
		doc, err := svc.Attach(ctx, pdfInput(card.ID))
		require.NoError(t, err)

		require.NoError(t, svc.Detach(ctx, doc.ID))
		assert.False(t, storage.FileExists(doc.Path))
		_, err = svc.Get(ctx, doc.ID)
		requireCode(t, err, KindNotFound, "DOCUMENT_NOT_FOUND")
	})

	t.Run("storage failure keeps metadata", func(t *testing.T) {
		doc, err := svc.Attach(ctx, pdfInput(card.ID))
		require.NoError(t, err)

		storage.DeleteErr = errors.New("permission denied")
		err = svc.Detach(ctx, doc.ID)
		storage.DeleteErr = nil
		requireCode(t, err, KindStorage, "FILE_DELETE_FAILED")

		kept, err := svc.Get(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, doc.Path, kept.Path)
		assert.True(t, storage.FileExists(doc.Path))
	})

	t.Run("missing bytes still delete", func(t *testing.T) {
		doc, err := svc.Attach(ctx, pdfInput(card.ID))
		require.NoError(t, err)
		storage.Clear()

		require.NoError(t, svc.Detach(ctx, doc.ID))
		_, err = svc.Get(ctx, doc.ID)
		requireCode(t, err, KindNotFound, "DOCUMENT_NOT_FOUND")
	})

	t.Run("unknown document", func(t *testing.T) {
		requireCode(t, svc.Detach(ctx, "missing"), KindNotFound, "DOCUMENT_NOT_FOUND")
	})
}
