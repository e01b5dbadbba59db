package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/av-pipeline-api/logger"
	"github.com/kendall-kelly/av-pipeline-api/services"
	"go.uber.org/zap"
)

func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondFailure(c *gin.Context, status int, code, message string, details interface{}) {
	body := gin.H{
		"code":    code,
		"message": message,
	}
	if details != nil {
		body["details"] = details
	}
	c.JSON(status, gin.H{
		"success": false,
		"error":   body,
	})
}

// respondValidation answers 400 for a request that could not be bound
func respondValidation(c *gin.Context, err error) {
	respondFailure(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", err.Error())
}

// respondError maps a service error to its HTTP status. Errors that are not service errors are
// treated as internal failures.
func respondError(c *gin.Context, err error) {
	var svcErr *services.Error
	if !errors.As(err, &svcErr) {
		logger.FromGin(c).Error("Unhandled error", zap.Error(err))
		respondFailure(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}

	switch svcErr.Kind {
	case services.KindValidation:
		respondFailure(c, http.StatusBadRequest, svcErr.Code, svcErr.Message, nil)
	case services.KindNotFound:
		respondFailure(c, http.StatusNotFound, svcErr.Code, svcErr.Message, nil)
	case services.KindConflict:
		respondFailure(c, http.StatusConflict, svcErr.Code, svcErr.Message, nil)
	default:
		logger.FromGin(c).Error("Storage failure", zap.String("code", svcErr.Code), zap.Error(err))
		var details interface{}
		if svcErr.Err != nil {
			details = svcErr.Err.Error()
		}
		respondFailure(c, http.StatusInternalServerError, svcErr.Code, svcErr.Message, details)
	}
}
