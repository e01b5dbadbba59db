package controllers

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the customer, pipeline, card, transition and document endpoints
func RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/customers", GetCustomers)
	group.POST("/customers", CreateCustomer)
	group.PUT("/customers", UpdateCustomer)
	group.DELETE("/customers", DeleteCustomer)

	pipeline := group.Group("/pipeline")
	{
		pipeline.GET("", GetPipeline)
		pipeline.POST("", CreateCard)
		pipeline.PATCH("", PatchPipeline)
		pipeline.GET("/export", ExportPipeline)

		pipeline.GET("/cards", GetCards)
		pipeline.POST("/cards", CreateCard)
		pipeline.PUT("/cards", UpdateCard)
		pipeline.DELETE("/cards", DeleteCard)
		pipeline.POST("/cards/automation", RecordAutomation)

		pipeline.POST("/transitions/request-design", RequestDesign)
		pipeline.POST("/transitions/complete-design", CompleteDesign)
		pipeline.POST("/transitions/create-integration", CreateIntegration)
	}

	group.GET("/documents", GetDocuments)
	group.POST("/documents", UploadDocument)
	group.DELETE("/documents", DeleteDocument)
}

// RegisterFileRoutes serves stored documents when they live on the local disk.
// Mount it on /api/v1 so URLs built from services.LocalFilesRoute resolve.
func RegisterFileRoutes(group *gin.RouterGroup) {
	group.GET("/documents/files/*path", ServeDocumentFile)
}
