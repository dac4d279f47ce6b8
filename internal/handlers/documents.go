package handlers

import (
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"questionnaire-agent/internal/services"
	"questionnaire-agent/internal/utils"
)

type DocumentHandler struct {
	service       services.DocumentService
	maxUploadSize int64
	logger        *zap.Logger
}

func NewDocumentHandler(service services.DocumentService, maxUploadSize int64, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{service: service, maxUploadSize: maxUploadSize, logger: logger}
}

// IndexAsync accepts a multipart corpus document upload and answers with the
// PENDING index_document job.
func (h *DocumentHandler) IndexAsync(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxUploadSize {
		respondError(w, h.logger, utils.NewBadRequestError("File too large"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		if strings.Contains(err.Error(), "request body too large") {
			respondError(w, h.logger, utils.NewBadRequestError("File too large"))
			return
		}
		respondError(w, h.logger, utils.NewBadRequestError("Invalid form data"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, h.logger, utils.NewBadRequestError("No file provided"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, h.logger, utils.NewInternalError("Failed to read file"))
		return
	}

	job, err := h.service.IndexAsync(r.Context(), header.Filename, data)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusAccepted, job)
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, items)
}
