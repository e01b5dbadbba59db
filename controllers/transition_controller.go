package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/av-pipeline-api/logger"
	"github.com/kendall-kelly/av-pipeline-api/middleware"
	"github.com/kendall-kelly/av-pipeline-api/services"
	"go.uber.org/zap"
)

// SalesCardRequest names the sales card a transition starts from
type SalesCardRequest struct {
	SalesCardID string `json:"salesCardId" binding:"required"`
}

// DesignCardRequest names the design card a transition starts from
type DesignCardRequest struct {
	DesignCardID string `json:"designCardId" binding:"required"`
}

func respondTransition(c *gin.Context, name string, result *services.TransitionResult, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	logger.FromGin(c).Info("Transition completed",
		zap.String("transition", name),
		zap.String("sales_card_id", result.SalesCard.ID),
		zap.String("actor", middleware.Actor(c)))
	respondOK(c, http.StatusOK, result)
}

// RequestDesign handles POST /api/v1/pipeline/transitions/request-design
func RequestDesign(c *gin.Context) {
	var req SalesCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	result, err := transitionService().RequestDesign(c.Request.Context(), req.SalesCardID)
	respondTransition(c, services.TransitionRequestDesign, result, err)
}

// CompleteDesign handles POST /api/v1/pipeline/transitions/complete-design
func CompleteDesign(c *gin.Context) {
	var req DesignCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	result, err := transitionService().CompleteDesign(c.Request.Context(), req.DesignCardID)
	respondTransition(c, services.TransitionCompleteDesign, result, err)
}

// CreateIntegration handles POST /api/v1/pipeline/transitions/create-integration
func CreateIntegration(c *gin.Context) {
	var req SalesCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	result, err := transitionService().CreateIntegration(c.Request.Context(), req.SalesCardID)
	respondTransition(c, services.TransitionCreateIntegration, result, err)
}
