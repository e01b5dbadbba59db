package controllers

import (
	"mime/multipart"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/av-pipeline-api/logger"
	"github.com/kendall-kelly/av-pipeline-api/middleware"
	"github.com/kendall-kelly/av-pipeline-api/services"
	"go.uber.org/zap"
)

// UploadDocumentForm holds the non-file fields of POST /documents
type UploadDocumentForm struct {
	ProjectNumber string `form:"projectNumber"`
	Category      string `form:"type" binding:"omitempty,doccategory"`
	CardID        string `form:"cardId"`
	CardType      string `form:"cardType"`
}

// UploadDocument handles POST /api/v1/documents - multipart upload attached to a card
func UploadDocument(c *gin.Context) {
	var form UploadDocumentForm
	if err := c.ShouldBind(&form); err != nil {
		respondFailure(c, http.StatusBadRequest, "INVALID_CATEGORY", "Invalid document type", err.Error())
		return
	}

	in := services.AttachInput{
		ProjectNumber: form.ProjectNumber,
		Category:      form.Category,
		CardID:        form.CardID,
		CardType:      form.CardType,
	}

	header, err := c.FormFile("file")
	if err == nil {
		var file multipart.File
		file, err = header.Open()
		if err != nil {
			respondFailure(c, http.StatusBadRequest, "INVALID_FILE", "Failed to read uploaded file", err.Error())
			return
		}
		defer file.Close()

		in.Content = file
		in.FileName = header.Filename
		in.Size = header.Size
		in.ContentType = header.Header.Get("Content-Type")
	}

	doc, err := documentService().Attach(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}

	logger.FromGin(c).Info("Document attached",
		zap.String("document_id", doc.ID),
		zap.String("card_id", doc.CardID),
		zap.String("path", doc.Path),
		zap.String("actor", middleware.Actor(c)))
	respondOK(c, http.StatusCreated, doc)
}

// GetDocuments handles GET /api/v1/documents?cardId=&cardType=
func GetDocuments(c *gin.Context) {
	docs, err := documentService().List(c.Request.Context(), c.Query("cardId"), c.Query("cardType"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, docs)
}

// DeleteDocument handles DELETE /api/v1/documents?id=
func DeleteDocument(c *gin.Context) {
	id := strings.TrimSpace(c.Query("id"))
	if id == "" {
		respondFailure(c, http.StatusBadRequest, "MISSING_FIELDS", "Document id is required", nil)
		return
	}

	if err := documentService().Detach(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	logger.FromGin(c).Info("Document deleted",
		zap.String("document_id", id), zap.String("actor", middleware.Actor(c)))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Document deleted",
	})
}

// ServeDocumentFile handles GET /api/v1/documents/files/*path for the local storage provider
func ServeDocumentFile(c *gin.Context) {
	local, ok := services.GetFileStorage().(*services.LocalFileStorage)
	if !ok {
		respondFailure(c, http.StatusNotFound, "FILE_NOT_FOUND", "Files are not served by this storage provider", nil)
		return
	}

	key := strings.TrimPrefix(c.Param("path"), "/")
	filePath, err := local.Resolve(key)
	if err != nil {
		respondFailure(c, http.StatusBadRequest, "INVALID_FILENAME", "Invalid file path", nil)
		return
	}

	info, err := os.Stat(filePath)
	if err != nil || info.IsDir() {
		respondFailure(c, http.StatusNotFound, "FILE_NOT_FOUND", "File not found", nil)
		return
	}

	c.Header("Cache-Control", "private, max-age=3600")
	c.File(filePath)
}
