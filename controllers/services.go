package controllers

import (
	"github.com/kendall-kelly/av-pipeline-api/config"
	"github.com/kendall-kelly/av-pipeline-api/domain"
	"github.com/kendall-kelly/av-pipeline-api/services"
)

const defaultMaxUploadBytes = 25 << 20

// Handlers build their services per request from the shared database, storage and config,
// so tests can swap any of them with config.SetDB, services.SetFileStorage and config.SetConfig.

func stagePolicy() domain.StagePolicy {
	if cfg := config.GetConfig(); cfg != nil && domain.StagePolicy(cfg.StageFallbackPolicy).Valid() {
		return domain.StagePolicy(cfg.StageFallbackPolicy)
	}
	return domain.StagePolicyReject
}

func cardService() *services.CardService {
	return services.NewCardService(config.GetDB(), services.GetFileStorage(), stagePolicy())
}

func customerService() *services.CustomerService {
	region := ""
	if cfg := config.GetConfig(); cfg != nil {
		region = cfg.DefaultPhoneRegion
	}
	return services.NewCustomerService(config.GetDB(), region)
}

func transitionService() *services.TransitionService {
	return services.NewTransitionService(config.GetDB(), cardService())
}

func documentService() *services.DocumentService {
	maxBytes := int64(defaultMaxUploadBytes)
	if cfg := config.GetConfig(); cfg != nil && cfg.MaxUploadBytes() > 0 {
		maxBytes = cfg.MaxUploadBytes()
	}
	return services.NewDocumentService(config.GetDB(), services.GetFileStorage(), maxBytes)
}
