package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/av-pipeline-api/domain"
	"github.com/kendall-kelly/av-pipeline-api/logger"
	"github.com/kendall-kelly/av-pipeline-api/middleware"
	"github.com/kendall-kelly/av-pipeline-api/services"
	"go.uber.org/zap"
)

// PipelineQuery holds the query parameters of the board endpoints
type PipelineQuery struct {
	Type      string `form:"type" binding:"required,pipelinetype"`
	Search    string `form:"search"`
	DueBefore string `form:"dueBefore"`
}

// PatchPipelineRequest moves a card to another stage, changes its fields, or both
type PatchPipelineRequest struct {
	Type     string            `json:"type"`
	CardID   string            `json:"cardId"`
	Stage    *string           `json:"stage"`
	CardData *domain.CardPatch `json:"cardData"`
}

// bindPipelineQuery parses type, search and dueBefore. dueBefore takes any common date format.
func bindPipelineQuery(c *gin.Context) (domain.PipelineType, services.CardFilter, bool) {
	var q PipelineQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondFailure(c, http.StatusBadRequest, "INVALID_TYPE",
			fmt.Sprintf("Invalid pipeline type %q", c.Query("type")), err.Error())
		return "", services.CardFilter{}, false
	}
	t, _ := domain.ParsePipelineType(q.Type)

	filter := services.CardFilter{Search: q.Search}
	if strings.TrimSpace(q.DueBefore) != "" {
		due, err := dateparse.ParseIn(q.DueBefore, time.UTC)
		if err != nil {
			respondFailure(c, http.StatusBadRequest, "INVALID_DATE",
				fmt.Sprintf("Invalid dueBefore date %q", q.DueBefore), err.Error())
			return "", services.CardFilter{}, false
		}
		filter.DueBefore = &due
	}
	return t, filter, true
}

// GetPipeline handles GET /api/v1/pipeline?type= - the board as stage columns with nested cards
func GetPipeline(c *gin.Context) {
	t, filter, ok := bindPipelineQuery(c)
	if !ok {
		return
	}

	columns, err := cardService().Pipeline(c.Request.Context(), t, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, columns)
}

// PatchPipeline handles PATCH /api/v1/pipeline. A bare stage is a move; cardData is a partial
// update and may carry the stage as well.
func PatchPipeline(c *gin.Context) {
	var req PatchPipelineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	if strings.TrimSpace(req.CardID) == "" {
		respondFailure(c, http.StatusBadRequest, "MISSING_FIELDS", "cardId is required", nil)
		return
	}
	if req.Stage == nil && req.CardData == nil {
		respondFailure(c, http.StatusBadRequest, "MISSING_FIELDS", "Either stage or cardData is required", nil)
		return
	}

	var t domain.PipelineType
	if strings.TrimSpace(req.Type) != "" {
		parsed, err := domain.ParsePipelineType(req.Type)
		if err != nil {
			respondFailure(c, http.StatusBadRequest, "INVALID_TYPE", err.Error(), nil)
			return
		}
		t = parsed
	}

	ctx := c.Request.Context()
	var card *domain.Card
	var err error
	if req.CardData == nil {
		card, err = cardService().MoveStage(ctx, req.CardID, t, *req.Stage)
	} else {
		patch := *req.CardData
		if req.Stage != nil && patch.Stage == nil {
			patch.Stage = req.Stage
		}
		card, err = cardService().Update(ctx, req.CardID, t, &patch)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	logger.FromGin(c).Info("Pipeline card updated",
		zap.String("card_id", card.ID),
		zap.String("stage", string(card.Stage)),
		zap.String("actor", middleware.Actor(c)))
	respondOK(c, http.StatusOK, card)
}

// ExportPipeline handles GET /api/v1/pipeline/export?type= - the board as an xlsx workbook
func ExportPipeline(c *gin.Context) {
	t, filter, ok := bindPipelineQuery(c)
	if !ok {
		return
	}

	columns, err := cardService().Pipeline(c.Request.Context(), t, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	workbook, err := services.PipelineWorkbook(t, columns)
	if err != nil {
		respondError(c, err)
		return
	}
	defer workbook.Close()

	fileName := fmt.Sprintf("%s-pipeline-%s.xlsx", t, time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	c.Header("Content-Type", services.XLSXContentType)
	c.Status(http.StatusOK)
	if err := workbook.Write(c.Writer); err != nil {
		logger.FromGin(c).Error("Failed to write pipeline export", zap.Error(err))
	}
}
