package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/av-pipeline-api/domain"
	"github.com/kendall-kelly/av-pipeline-api/logger"
	"github.com/kendall-kelly/av-pipeline-api/middleware"
	"go.uber.org/zap"
)

// UpdateCardRequest is a card patch addressed by id. type is optional and must match the card.
type UpdateCardRequest struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	domain.CardPatch
}

// UnmarshalJSON decodes id and type beside the patch fields. The embedded patch has its own
// decoder, which would otherwise take over the whole request.
func (r *UpdateCardRequest) UnmarshalJSON(data []byte) error {
	var head struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	if err := json.Unmarshal(data, &r.CardPatch); err != nil {
		return err
	}
	r.ID, r.Type = head.ID, head.Type
	return nil
}

// DeleteCardQuery holds the query parameters of DELETE /pipeline/cards
type DeleteCardQuery struct {
	ID   string `form:"id" binding:"required"`
	Type string `form:"type" binding:"required,pipelinetype"`
}

// AutomationRequest marks one automation step of a card as done
type AutomationRequest struct {
	CardID string `json:"cardId" binding:"required"`
	Step   string `json:"step" binding:"required"`
}

// CreateCard handles POST /api/v1/pipeline and POST /api/v1/pipeline/cards. A customer id that
// does not exist yet is created as a placeholder customer.
func CreateCard(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		respondValidation(c, err)
		return
	}

	var card domain.Card
	if err := json.Unmarshal(body, &card); err != nil {
		if errors.Is(err, domain.ErrUnknownPipelineType) {
			respondFailure(c, http.StatusBadRequest, "INVALID_TYPE", "Missing or invalid pipeline type", err.Error())
			return
		}
		respondValidation(c, err)
		return
	}

	created, err := cardService().Create(c.Request.Context(), &card)
	if err != nil {
		respondError(c, err)
		return
	}

	logger.FromGin(c).Info("Pipeline card created",
		zap.String("card_id", created.ID),
		zap.String("type", string(created.Type)),
		zap.String("actor", middleware.Actor(c)))
	respondOK(c, http.StatusCreated, created)
}

// GetCards handles GET /api/v1/pipeline/cards - one card by ?id, or all cards of ?type
func GetCards(c *gin.Context) {
	ctx := c.Request.Context()
	if id := strings.TrimSpace(c.Query("id")); id != "" {
		card, err := cardService().Get(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, http.StatusOK, card)
		return
	}

	if c.Query("type") == "" {
		respondFailure(c, http.StatusBadRequest, "MISSING_FIELDS", "Either id or type is required", nil)
		return
	}
	t, filter, ok := bindPipelineQuery(c)
	if !ok {
		return
	}
	cards, err := cardService().List(ctx, t, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, cards)
}

// UpdateCard handles PUT /api/v1/pipeline/cards
func UpdateCard(c *gin.Context) {
	var req UpdateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		respondFailure(c, http.StatusBadRequest, "MISSING_FIELDS", "Card id is required", nil)
		return
	}

	var t domain.PipelineType
	if req.Type != "" {
		parsed, err := domain.ParsePipelineType(req.Type)
		if err != nil {
			respondFailure(c, http.StatusBadRequest, "INVALID_TYPE", err.Error(), nil)
			return
		}
		t = parsed
	}

	card, err := cardService().Update(c.Request.Context(), req.ID, t, &req.CardPatch)
	if err != nil {
		respondError(c, err)
		return
	}

	logger.FromGin(c).Info("Pipeline card updated",
		zap.String("card_id", card.ID), zap.String("actor", middleware.Actor(c)))
	respondOK(c, http.StatusOK, card)
}

// DeleteCard handles DELETE /api/v1/pipeline/cards?id=&type=
func DeleteCard(c *gin.Context) {
	var q DeleteCardQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondValidation(c, err)
		return
	}
	t, _ := domain.ParsePipelineType(q.Type)

	if err := cardService().Delete(c.Request.Context(), q.ID, t); err != nil {
		respondError(c, err)
		return
	}

	logger.FromGin(c).Info("Pipeline card deleted",
		zap.String("card_id", q.ID), zap.String("actor", middleware.Actor(c)))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Card deleted",
	})
}

// RecordAutomation handles POST /api/v1/pipeline/cards/automation
func RecordAutomation(c *gin.Context) {
	var req AutomationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	card, err := cardService().RecordAutomation(c.Request.Context(), req.CardID, domain.AutomationStep(req.Step))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, card)
}
