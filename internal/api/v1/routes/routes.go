package routes

import (
	"github.com/gin-gonic/gin"

	"audio-transcriber/internal/api/v1/handlers"
)

// Handlers holds everything the routes dispatch to
type Handlers struct {
	Transcription *handlers.TranscriptionHandler
	Provider      *handlers.ProviderHandler
}

// RegisterRoutes mounts the upload endpoint at the root and the listing
// endpoints under /api/v1.
func RegisterRoutes(router gin.IRouter, h Handlers) {
	router.POST("/transcribe", h.Transcription.Transcribe)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/transcribe", h.Transcription.Transcribe)
		v1.GET("/providers", h.Provider.List)
	}
}
