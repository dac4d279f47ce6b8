package handlers

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"questionnaire-agent/internal/services"
	"questionnaire-agent/internal/utils"
)

type ProjectHandler struct {
	service       services.ProjectService
	maxUploadSize int64
	logger        *zap.Logger
}

func NewProjectHandler(service services.ProjectService, maxUploadSize int64, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{service: service, maxUploadSize: maxUploadSize, logger: logger}
}

// CreateAsync accepts a multipart form with the project name and the
// questionnaire file, and answers with the PENDING create_project job.
func (h *ProjectHandler) CreateAsync(w http.ResponseWriter, r *http.Request) {
	name, filename, data, err := h.readUpload(w, r, "name")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	job, err := h.service.CreateAsync(r.Context(), name, filename, data)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusAccepted, job)
}

// UpdateAsync applies a partial project update (name and/or scope) through
// an update_project job. The project id comes from the query string.
func (h *ProjectHandler) UpdateAsync(w http.ResponseWriter, r *http.Request) {
	projectID, err := strconv.ParseInt(r.URL.Query().Get("project_id"), 10, 64)
	if err != nil {
		respondError(w, h.logger, utils.NewBadRequestError("Invalid project_id"))
		return
	}

	if err := r.ParseMultipartForm(1 << 20); err != nil {
		respondError(w, h.logger, utils.NewBadRequestError("Invalid form data"))
		return
	}
	var name, scope *string
	if v := strings.TrimSpace(r.FormValue("name")); v != "" {
		name = &v
	}
	if v := strings.TrimSpace(r.FormValue("scope")); v != "" {
		scope = &v
	}

	job, err := h.service.UpdateAsync(r.Context(), projectID, name, scope)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusAccepted, job)
}

func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.service.List(r.Context())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, projects)
}

func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, h.logger, utils.NewBadRequestError("Invalid project id"))
		return
	}

	detail, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, detail)
}

func (h *ProjectHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, h.logger, utils.NewBadRequestError("Invalid project id"))
		return
	}

	report, err := h.service.Status(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, report)
}

// readUpload parses a size-capped multipart upload with a file part and one
// extra text field.
func (h *ProjectHandler) readUpload(w http.ResponseWriter, r *http.Request, field string) (string, string, []byte, error) {
	if r.ContentLength > h.maxUploadSize {
		return "", "", nil, utils.NewBadRequestError("File too large")
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		if strings.Contains(err.Error(), "request body too large") {
			return "", "", nil, utils.NewBadRequestError("File too large")
		}
		return "", "", nil, utils.NewBadRequestError("Invalid form data")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", "", nil, utils.NewBadRequestError("No file provided")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", "", nil, utils.NewInternalError("Failed to read file")
	}

	return r.FormValue(field), header.Filename, data, nil
}
