package controllers

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kendall-kelly/av-pipeline-api/models"
	"github.com/kendall-kelly/av-pipeline-api/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createMultipartRequest builds a POST /documents request with the given fields and an
// optional file
func createMultipartRequest(t *testing.T, fields map[string]string, fileName string, content []byte) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if fileName != "" {
		part, err := writer.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func TestUploadDocument(t *testing.T) {
	env := setupControllerTest(t)
	card := env.createCard(t, salesCard("cust-1", "Library"))
	cardID := card["id"].(string)

	validFields := func() map[string]string {
		return map[string]string{
			"projectNumber": "P-100",
			"type":          "estimate",
			"cardId":        cardID,
			"cardType":      "sales",
		}
	}

	tests := []struct {
		name           string
		fields         map[string]string
		fileName       string
		content        []byte
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "Fail with missing file",
			fields:         validFields(),
			expectedStatus: http.StatusBadRequest,
			expectedError:  "MISSING_FIELDS",
		},
		{
			name:           "Fail with unknown category",
			fields:         map[string]string{"projectNumber": "P-100", "type": "invoice", "cardId": cardID, "cardType": "sales"},
			fileName:       "quote.pdf",
			content:        []byte("%PDF-1.4"),
			expectedStatus: http.StatusBadRequest,
			expectedError:  "INVALID_CATEGORY",
		},
		{
			name:           "Fail with disallowed extension",
			fields:         validFields(),
			fileName:       "setup.exe",
			content:        []byte("MZ"),
			expectedStatus: http.StatusBadRequest,
			expectedError:  "INVALID_FILE_FORMAT",
		},
		{
			name:           "Fail with file over the limit",
			fields:         validFields(),
			fileName:       "huge.pdf",
			content:        bytes.Repeat([]byte("a"), 2<<20),
			expectedStatus: http.StatusBadRequest,
			expectedError:  "FILE_TOO_LARGE",
		},
		{
			name:           "Fail with wrong card type",
			fields:         map[string]string{"projectNumber": "P-100", "type": "estimate", "cardId": cardID, "cardType": "rental"},
			fileName:       "quote.pdf",
			content:        []byte("%PDF-1.4"),
			expectedStatus: http.StatusBadRequest,
			expectedError:  "CARD_TYPE_MISMATCH",
		},
		{
			name:           "Fail with unknown card",
			fields:         map[string]string{"projectNumber": "P-100", "type": "estimate", "cardId": "missing", "cardType": "sales"},
			fileName:       "quote.pdf",
			content:        []byte("%PDF-1.4"),
			expectedStatus: http.StatusNotFound,
			expectedError:  "CARD_NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			env.router.ServeHTTP(w, createMultipartRequest(t, tt.fields, tt.fileName, tt.content))

			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.expectedError, errorCode(decode(t, w)))
			assert.Empty(t, env.storage.Files(), "rejected uploads must not write bytes")
		})
	}

	t.Run("Successfully attach a signed estimate", func(t *testing.T) {
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, createMultipartRequest(t, validFields(), "Signed Estimate.PDF", []byte("%PDF-1.4 signed")))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		data := decode(t, w)["data"].(map[string]interface{})
		assert.Equal(t, "Signed Estimate.PDF", data["fileName"])
		assert.Equal(t, "estimate", data["type"])
		assert.Equal(t, cardID, data["cardId"])

		path := data["path"].(string)
		assert.True(t, strings.HasPrefix(path, "P-100/Signed Original Estimate/"), path)
		assert.True(t, strings.HasSuffix(path, ".pdf"), path)
		assert.True(t, env.storage.FileExists(path))
		assert.Contains(t, data["url"], "https://files.test/")

		w, response := env.request(t, http.MethodGet, "/api/v1/pipeline/cards?id="+cardID, nil)
		require.Equal(t, http.StatusOK, w.Code)
		docs := response["data"].(map[string]interface{})["documents"].([]interface{})
		assert.Len(t, docs, 1)
	})
}

func TestGetDocuments(t *testing.T) {
	env := setupControllerTest(t)
	card := env.createCard(t, salesCard("cust-1", "Hotel lobby"))
	cardID := card["id"].(string)
	require.NoError(t, env.db.Create(&models.Document{
		CardID: cardID, FileName: "photo.jpg", Path: "P-100/photo.jpg", Category: "photo",
	}).Error)

	w, response := env.request(t, http.MethodGet, "/api/v1/documents?cardId="+cardID+"&cardType=sales", nil)
	require.Equal(t, http.StatusOK, w.Code)
	docs := response["data"].([]interface{})
	require.Len(t, docs, 1)
	assert.Equal(t, "photo.jpg", docs[0].(map[string]interface{})["fileName"])

	w, response = env.request(t, http.MethodGet, "/api/v1/documents?cardId="+cardID, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "MISSING_FIELDS", errorCode(response))
}

func TestDeleteDocument(t *testing.T) {
	env := setupControllerTest(t)
	card := env.createCard(t, salesCard("cust-1", "Courthouse"))
	cardID := card["id"].(string)

	upload := func() string {
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, createMultipartRequest(t, map[string]string{
			"projectNumber": "P-7", "type": "co", "cardId": cardID, "cardType": "sales",
		}, "co-1.pdf", []byte("%PDF")))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		return decode(t, w)["data"].(map[string]interface{})["id"].(string)
	}

	t.Run("Storage failure keeps the metadata", func(t *testing.T) {
		id := upload()
		env.storage.DeleteErr = errors.New("bucket unavailable")
		defer func() { env.storage.DeleteErr = nil }()

		w, response := env.request(t, http.MethodDelete, "/api/v1/documents?id="+id, nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "FILE_DELETE_FAILED", errorCode(response))

		var count int64
		env.db.Model(&models.Document{}).Where("id = ?", id).Count(&count)
		assert.Equal(t, int64(1), count)
	})

	t.Run("Delete removes bytes and metadata", func(t *testing.T) {
		id := upload()
		var doc models.Document
		require.NoError(t, env.db.First(&doc, "id = ?", id).Error)

		w, _ := env.request(t, http.MethodDelete, "/api/v1/documents?id="+id, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.False(t, env.storage.FileExists(doc.Path))

		var count int64
		env.db.Model(&models.Document{}).Where("id = ?", id).Count(&count)
		assert.Zero(t, count)
	})

	t.Run("Missing bytes still delete the metadata", func(t *testing.T) {
		id := upload()
		env.storage.Clear()

		w, _ := env.request(t, http.MethodDelete, "/api/v1/documents?id="+id, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Fail with missing id", func(t *testing.T) {
		w, response := env.request(t, http.MethodDelete, "/api/v1/documents", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "MISSING_FIELDS", errorCode(response))
	})

	t.Run("Unknown id is not found", func(t *testing.T) {
		w, response := env.request(t, http.MethodDelete, "/api/v1/documents?id=missing", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "DOCUMENT_NOT_FOUND", errorCode(response))
	})
}

func TestServeDocumentFile(t *testing.T) {
	env := setupControllerTest(t)
	RegisterFileRoutes(env.router.Group("/api/v1"))

	t.Run("Not available without local storage", func(t *testing.T) {
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/documents/files/P-1/a.pdf", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	dir := t.TempDir()
	local, err := services.NewLocalFileStorage(dir)
	require.NoError(t, err)
	services.SetFileStorage(local)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "P-1"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "P-1", "a.pdf"), []byte("%PDF local"), 0644))

	t.Run("Serves a stored file", func(t *testing.T) {
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/documents/files/P-1/a.pdf", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "%PDF local", w.Body.String())
	})

	t.Run("Missing file is not found", func(t *testing.T) {
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/documents/files/P-1/b.pdf", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
