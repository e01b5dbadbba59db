package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/av-pipeline-api/logger"
	"github.com/kendall-kelly/av-pipeline-api/middleware"
	"github.com/kendall-kelly/av-pipeline-api/services"
	"go.uber.org/zap"
)

// CreateCustomerRequest represents the request body for creating a customer
type CreateCustomerRequest struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	Address          string `json:"address"`
	IsReturnCustomer bool   `json:"isReturnCustomer"`
}

// UpdateCustomerRequest represents the request body for PUT /customers
type UpdateCustomerRequest struct {
	ID string `json:"id"`
	services.CustomerPatch
}

// GetCustomers handles GET /api/v1/customers - one customer by ?id or a search over name and email
func GetCustomers(c *gin.Context) {
	if id := strings.TrimSpace(c.Query("id")); id != "" {
		customer, err := customerService().Get(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, http.StatusOK, customer)
		return
	}

	customers, err := customerService().Search(c.Request.Context(), c.Query("search"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, customers)
}

// CreateCustomer handles POST /api/v1/customers. A duplicate email answers 409 with the existing
// customer as data.
func CreateCustomer(c *gin.Context) {
	var req CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	customer, err := customerService().Create(c.Request.Context(), services.CustomerInput{
		Name:             req.Name,
		Email:            req.Email,
		Phone:            req.Phone,
		Address:          req.Address,
		IsReturnCustomer: req.IsReturnCustomer,
	})
	if err != nil {
		var svcErr *services.Error
		if customer != nil && errors.As(err, &svcErr) && svcErr.Kind == services.KindConflict {
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"error": gin.H{
					"code":    svcErr.Code,
					"message": svcErr.Message,
				},
				"data": customer,
			})
			return
		}
		respondError(c, err)
		return
	}

	logger.FromGin(c).Info("Customer created",
		zap.String("customer_id", customer.ID), zap.String("actor", middleware.Actor(c)))
	respondOK(c, http.StatusCreated, customer)
}

// UpdateCustomer handles PUT /api/v1/customers
func UpdateCustomer(c *gin.Context) {
	var req UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		respondFailure(c, http.StatusBadRequest, "MISSING_FIELDS", "Customer id is required", nil)
		return
	}

	customer, err := customerService().Update(c.Request.Context(), req.ID, req.CustomerPatch)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, customer)
}

// DeleteCustomer handles DELETE /api/v1/customers?id=
func DeleteCustomer(c *gin.Context) {
	id := strings.TrimSpace(c.Query("id"))
	if id == "" {
		respondFailure(c, http.StatusBadRequest, "MISSING_FIELDS", "Customer id is required", nil)
		return
	}

	if err := customerService().Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	logger.FromGin(c).Info("Customer deleted",
		zap.String("customer_id", id), zap.String("actor", middleware.Actor(c)))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Customer deleted",
	})
}
