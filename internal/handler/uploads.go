package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/savora-food/api/internal/upload"
	"github.com/savora-food/api/internal/vision"
)

// Uploader stores an image and reports where it is served from.
// Satisfied by *upload.Store.
type Uploader interface {
	Save(r io.Reader, filename string) (upload.Saved, error)
}

// ImageAnalyzer classifies a food photo. Satisfied by *vision.Analyzer.
type ImageAnalyzer interface {
	Analyze(ctx context.Context, image []byte, mimeType string) (vision.Result, error)
}

// UploadHandler handles image uploads and AI image analysis.
type UploadHandler struct {
	uploader Uploader
	analyzer ImageAnalyzer
}

// NewUploadHandler creates a new UploadHandler. analyzer may be nil when no
// AI key is configured; analysis requests then fail with 503.
func NewUploadHandler(uploader Uploader, analyzer ImageAnalyzer) *UploadHandler {
	return &UploadHandler{uploader: uploader, analyzer: analyzer}
}

// RegisterRoutes registers upload endpoints. Mount behind RequireAdmin.
func (h *UploadHandler) RegisterRoutes(r chi.Router) {
	r.Post("/uploads", h.Upload)
}

// RegisterAIRoutes registers the analysis endpoint. Mount behind RequireAdmin
// and a rate limiter.
func (h *UploadHandler) RegisterAIRoutes(r chi.Router) {
	r.Post("/ai/analyze-image", h.Analyze)
}

// multipart overhead allowed on top of the image itself
const formOverhead = 1 << 20

// Upload handles POST /uploads with a multipart "image" field.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	file, filename, ok := imageFromForm(w, r)
	if !ok {
		return
	}
	defer file.Close()

	saved, err := h.uploader.Save(file, filename)
	if err != nil {
		writeServiceError(w, "save upload", err)
		return
	}
	writeData(w, http.StatusCreated, saved)
}

// Analyze handles POST /ai/analyze-image. The image is written to a temp
// file that is removed before the response is sent.
func (h *UploadHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	if h.analyzer == nil {
		writeError(w, http.StatusServiceUnavailable, "AI analysis is not configured")
		return
	}

	file, filename, ok := imageFromForm(w, r)
	if !ok {
		return
	}
	defer file.Close()

	var result vision.Result
	err := upload.WithTempFile(file, filename, func(path, mimeType string) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		result, err = h.analyzer.Analyze(r.Context(), data, mimeType)
		return err
	})
	if err != nil {
		writeServiceError(w, "analyze image", err)
		return
	}
	writeData(w, http.StatusOK, result)
}

// imageFromForm extracts the "image" part of a multipart request.
func imageFromForm(w http.ResponseWriter, r *http.Request) (io.ReadCloser, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, upload.MaxSize+formOverhead)
	file, header, err := r.FormFile("image")
	if err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			writeError(w, http.StatusBadRequest, upload.ErrTooLarge.Error())
		case errors.Is(err, http.ErrMissingFile):
			writeError(w, http.StatusBadRequest, "image file is required")
		default:
			writeError(w, http.StatusBadRequest, "invalid multipart form")
		}
		return nil, "", false
	}
	return file, header.Filename, true
}
