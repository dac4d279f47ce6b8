package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"questionnaire-agent/internal/services"
	"questionnaire-agent/internal/utils"
)

type EvaluationHandler struct {
	service services.EvaluationService
	logger  *zap.Logger
}

func NewEvaluationHandler(service services.EvaluationService, logger *zap.Logger) *EvaluationHandler {
	return &EvaluationHandler{service: service, logger: logger}
}

func (h *EvaluationHandler) Run(w http.ResponseWriter, r *http.Request) {
	projectID, err := strconv.ParseInt(r.URL.Query().Get("project_id"), 10, 64)
	if err != nil {
		respondError(w, h.logger, utils.NewBadRequestError("Invalid project_id"))
		return
	}

	report, err := h.service.Run(r.Context(), projectID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, report)
}

func (h *EvaluationHandler) Report(w http.ResponseWriter, r *http.Request) {
	projectID, err := strconv.ParseInt(r.URL.Query().Get("project_id"), 10, 64)
	if err != nil {
		respondError(w, h.logger, utils.NewBadRequestError("Invalid project_id"))
		return
	}

	var runID *int64
	if raw := r.URL.Query().Get("run_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respondError(w, h.logger, utils.NewBadRequestError("Invalid run_id"))
			return
		}
		runID = &id
	}

	report, err := h.service.Report(r.Context(), projectID, runID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, report)
}
