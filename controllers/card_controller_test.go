package controllers

import (
	"net/http"
	"testing"

	"github.com/kendall-kelly/av-pipeline-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCards(t *testing.T) {
	env := setupControllerTest(t)
	card := env.createCard(t, salesCard("cust-1", "Worship center"))
	env.createCard(t, map[string]interface{}{
		"type":                 "repair",
		"customerId":           "cust-1",
		"title":                "Mixer repair",
		"equipmentDescription": "32 channel digital mixer",
		"serialNumber":         "SN-0042",
	})

	t.Run("Get by id", func(t *testing.T) {
		w, response := env.request(t, http.MethodGet, "/api/v1/pipeline/cards?id="+card["id"].(string), nil)
		require.Equal(t, http.StatusOK, w.Code)

		data := response["data"].(map[string]interface{})
		assert.Equal(t, "Worship center", data["title"])
		assert.Equal(t, "cust-1", data["customerId"])
	})

	t.Run("List by type", func(t *testing.T) {
		w, response := env.request(t, http.MethodGet, "/api/v1/pipeline/cards?type=repair", nil)
		require.Equal(t, http.StatusOK, w.Code)

		data := response["data"].([]interface{})
		require.Len(t, data, 1)
		repair := data[0].(map[string]interface{})
		assert.Equal(t, "SN-0042", repair["serialNumber"])
		assert.Equal(t, "repair-request", repair["stage"])
	})

	t.Run("Unknown id is not found", func(t *testing.T) {
		w, response := env.request(t, http.MethodGet, "/api/v1/pipeline/cards?id=missing", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "CARD_NOT_FOUND", errorCode(response))
	})

	t.Run("Fail without id or type", func(t *testing.T) {
		w, response := env.request(t, http.MethodGet, "/api/v1/pipeline/cards", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "MISSING_FIELDS", errorCode(response))
	})
}

func TestUpdateCard(t *testing.T) {
	env := setupControllerTest(t)
	card := env.createCard(t, map[string]interface{}{
		"type":          "rental",
		"customerId":    "cust-1",
		"title":         "Spring gala",
		"equipmentList": []string{"2x line array"},
		"quoteValue":    "1800",
	})
	cardID := card["id"].(string)

	tests := []struct {
		name           string
		requestBody    map[string]interface{}
		expectedStatus int
		expectedError  string
		checkResponse  func(t *testing.T, data map[string]interface{})
	}{
		{
			name: "Update rental fields",
			requestBody: map[string]interface{}{
				"id":            cardID,
				"type":          "rental",
				"equipmentList": []string{"2x line array", "1x lighting desk"},
				"quoteValue":    "2150.75",
			},
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, data map[string]interface{}) {
				assert.Equal(t, []interface{}{"2x line array", "1x lighting desk"}, data["equipmentList"])
				assert.Equal(t, "2150.75", data["quoteValue"])
				assert.Equal(t, "Spring gala", data["title"])
			},
		},
		{
			name:           "Type is optional",
			requestBody:    map[string]interface{}{"id": cardID, "status": "on_hold"},
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, data map[string]interface{}) {
				assert.Equal(t, "on_hold", data["status"])
			},
		},
		{
			name:           "Plain dates are accepted",
			requestBody:    map[string]interface{}{"id": cardID, "type": "rental", "eventDate": "2025-09-14", "dueDate": "September 1, 2025"},
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, data map[string]interface{}) {
				assert.Equal(t, "2025-09-14T00:00:00Z", data["eventDate"])
				assert.Equal(t, "2025-09-01T00:00:00Z", data["dueDate"])
			},
		},
		{
			name:           "Fail with a value that is not a date",
			requestBody:    map[string]interface{}{"id": cardID, "eventDate": "whenever"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "VALIDATION_ERROR",
		},
		{
			name:           "Fail with missing id",
			requestBody:    map[string]interface{}{"title": "No id"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "MISSING_FIELDS",
		},
		{
			name:           "Fail with nothing to change",
			requestBody:    map[string]interface{}{"id": cardID},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "MISSING_FIELDS",
		},
		{
			name:           "Fail with mismatched type",
			requestBody:    map[string]interface{}{"id": cardID, "type": "sales", "title": "x"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "CARD_TYPE_MISMATCH",
		},
		{
			name:           "Fail with invalid status",
			requestBody:    map[string]interface{}{"id": cardID, "status": "archived"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "INVALID_FIELDS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, response := env.request(t, http.MethodPut, "/api/v1/pipeline/cards", tt.requestBody)

			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, errorCode(response))
			}
			if tt.checkResponse != nil {
				tt.checkResponse(t, response["data"].(map[string]interface{}))
			}
		})
	}
}

func TestCreateCardNormalizesTypeAndDates(t *testing.T) {
	env := setupControllerTest(t)

	w, response := env.request(t, http.MethodPost, "/api/v1/pipeline", map[string]interface{}{
		"type":            "Sales",
		"customerId":      "cust-1",
		"title":           "Chapel refresh",
		"estimateValue":   "7200",
		"dueDate":         "2025-07-01",
		"appointmentDate": "06/15/2025",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	data := response["data"].(map[string]interface{})
	assert.Equal(t, "sales", data["type"])
	assert.Equal(t, "2025-07-01T00:00:00Z", data["dueDate"])
	assert.Equal(t, "2025-06-15T00:00:00Z", data["appointmentDate"])

	w, response = env.request(t, http.MethodPatch, "/api/v1/pipeline", map[string]interface{}{
		"type":     "SALES",
		"cardId":   data["id"],
		"cardData": map[string]interface{}{"proposalSentDate": "2025-07-10"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "2025-07-10T00:00:00Z", response["data"].(map[string]interface{})["proposalSentDate"])
}

func TestDeleteCard(t *testing.T) {
	env := setupControllerTest(t)

	sales := env.createCard(t, salesCard("cust-1", "Stadium"))
	salesID := sales["id"].(string)
	env.moveCard(t, salesID, "sales", "appointment-complete")
	w, _ := env.request(t, http.MethodPost, "/api/v1/pipeline/transitions/request-design",
		map[string]interface{}{"salesCardId": salesID})
	require.Equal(t, http.StatusOK, w.Code)

	standalone := env.createCard(t, salesCard("cust-1", "Standalone"))
	standaloneID := standalone["id"].(string)
	require.NoError(t, env.db.Create(&models.Document{
		CardID: standaloneID, FileName: "estimate.pdf", Path: "P-100/estimate.pdf", Category: "estimate",
	}).Error)

	t.Run("Fail without type", func(t *testing.T) {
		w, response := env.request(t, http.MethodDelete, "/api/v1/pipeline/cards?id="+standaloneID, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_ERROR", errorCode(response))
	})

	t.Run("Fail with mismatched type", func(t *testing.T) {
		w, response := env.request(t, http.MethodDelete, "/api/v1/pipeline/cards?id="+standaloneID+"&type=rental", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "CARD_TYPE_MISMATCH", errorCode(response))
	})

	t.Run("Fail while a design card points at the sales card", func(t *testing.T) {
		w, response := env.request(t, http.MethodDelete, "/api/v1/pipeline/cards?id="+salesID+"&type=sales", nil)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "CARD_REFERENCED", errorCode(response))
	})

	t.Run("Delete removes the card and its documents", func(t *testing.T) {
		w, _ := env.request(t, http.MethodDelete, "/api/v1/pipeline/cards?id="+standaloneID+"&type=sales", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var cards, docs int64
		env.db.Model(&models.Card{}).Where("id = ?", standaloneID).Count(&cards)
		env.db.Model(&models.Document{}).Where("card_id = ?", standaloneID).Count(&docs)
		assert.Zero(t, cards)
		assert.Zero(t, docs)
	})

	t.Run("Unknown id is not found", func(t *testing.T) {
		w, response := env.request(t, http.MethodDelete, "/api/v1/pipeline/cards?id="+standaloneID+"&type=sales", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "CARD_NOT_FOUND", errorCode(response))
	})
}

func TestRecordAutomation(t *testing.T) {
	env := setupControllerTest(t)
	card := env.createCard(t, salesCard("cust-1", "Atrium"))
	cardID := card["id"].(string)

	automation := card["automationStatus"].(map[string]interface{})
	assert.Equal(t, false, automation["emailLogged"])

	w, response := env.request(t, http.MethodPost, "/api/v1/pipeline/cards/automation",
		map[string]interface{}{"cardId": cardID, "step": "emailLogged"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	automation = response["data"].(map[string]interface{})["automationStatus"].(map[string]interface{})
	assert.Equal(t, true, automation["emailLogged"])
	assert.Equal(t, false, automation["alertsSent"])

	w, response = env.request(t, http.MethodPost, "/api/v1/pipeline/cards/automation",
		map[string]interface{}{"cardId": cardID, "step": "faxSent"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_STEP", errorCode(response))

	w, response = env.request(t, http.MethodPost, "/api/v1/pipeline/cards/automation",
		map[string]interface{}{"cardId": "missing", "step": "alertsSent"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "CARD_NOT_FOUND", errorCode(response))
}
