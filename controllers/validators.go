package controllers

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/kendall-kelly/av-pipeline-api/domain"
)

// RegisterValidators adds the pipelinetype and doccategory tags to gin's request validator
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	if err := v.RegisterValidation("pipelinetype", validatePipelineType); err != nil {
		return err
	}
	return v.RegisterValidation("doccategory", validateDocCategory)
}

func validatePipelineType(fl validator.FieldLevel) bool {
	_, err := domain.ParsePipelineType(fl.Field().String())
	return err == nil
}

func validateDocCategory(fl validator.FieldLevel) bool {
	return domain.DocumentCategory(strings.ToLower(strings.TrimSpace(fl.Field().String()))).Valid()
}
