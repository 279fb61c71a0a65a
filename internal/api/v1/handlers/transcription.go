package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"audio-transcriber/internal/api/errors"
	"audio-transcriber/internal/api/middleware"
	"audio-transcriber/internal/api/v1/dto"
	"audio-transcriber/internal/app/gateway"
)

// Transcriber runs a single upload to completion
type Transcriber interface {
	Transcribe(ctx context.Context, req gateway.Request) (*gateway.Result, error)
}

// TranscriptionHandler handles the upload endpoint
type TranscriptionHandler struct {
	transcriber    Transcriber
	maxUploadBytes int64
}

// NewTranscriptionHandler creates a new transcription handler
func NewTranscriptionHandler(transcriber Transcriber, maxUploadBytes int64) *TranscriptionHandler {
	return &TranscriptionHandler{
		transcriber:    transcriber,
		maxUploadBytes: maxUploadBytes,
	}
}

// Transcribe handles POST /transcribe
//
// @Summary Transcribe an audio file
// @Description Uploads one audio file, forwards it to a transcription backend and returns the transcript
// @Tags transcriptions
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Audio file to transcribe"
// @Param provider formData string false "Backend to use; defaults to the configured provider"
// @Param language formData string false "Language hint"
// @Success 200 {object} dto.TranscriptionResponse "Transcript"
// @Failure 400 {object} errors.APIError "Missing or malformed upload"
// @Failure 404 {object} errors.APIError "Unknown provider"
// @Failure 408 {object} errors.APIError "Upload did not arrive before the read deadline"
// @Failure 413 {object} errors.APIError "Upload too large"
// @Failure 500 {object} errors.APIError "Local failure"
// @Failure 502 {object} errors.APIError "Backend failure"
// @Failure 503 {object} errors.APIError "Gateway busy"
// @Failure 504 {object} errors.APIError "Transcription timed out"
// @Router /transcribe [post]
func (h *TranscriptionHandler) Transcribe(c *gin.Context) {
	if c.Request.ContentLength > h.maxUploadBytes {
		middleware.HandleError(c, errors.NewTooLargeError(fmt.Sprintf("upload exceeds %d bytes", h.maxUploadBytes)))
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	var form dto.TranscribeForm
	err := middleware.ValidateMultipartForm(c, &form)
	if c.Request.MultipartForm != nil {
		defer c.Request.MultipartForm.RemoveAll()
	}
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		middleware.HandleError(c, errors.NewBadRequestError("missing_file", "multipart field \"file\" is required"))
		return
	}

	file, err := header.Open()
	if err != nil {
		middleware.HandleError(c, errors.NewBadRequestError("invalid_upload", "uploaded file could not be read"))
		return
	}
	defer file.Close()

	result, err := h.transcriber.Transcribe(c.Request.Context(), gateway.Request{
		Audio:    file,
		Filename: header.Filename,
		Provider: form.Provider,
		Language: form.Language,
	})
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.TranscriptionResponse{Transcript: result.Transcript})
}
