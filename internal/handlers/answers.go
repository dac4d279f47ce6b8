package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"questionnaire-agent/internal/models"
	"questionnaire-agent/internal/services"
	"questionnaire-agent/internal/utils"
)

type AnswerHandler struct {
	service services.AnswerService
	logger  *zap.Logger
}

func NewAnswerHandler(service services.AnswerService, logger *zap.Logger) *AnswerHandler {
	return &AnswerHandler{service: service, logger: logger}
}

// GenerateAllAsync kicks off (or returns the in-flight) generate_answers
// job for a project.
func (h *AnswerHandler) GenerateAllAsync(w http.ResponseWriter, r *http.Request) {
	projectID, err := strconv.ParseInt(r.URL.Query().Get("project_id"), 10, 64)
	if err != nil {
		respondError(w, h.logger, utils.NewBadRequestError("Invalid project_id"))
		return
	}

	job, err := h.service.GenerateAllAsync(r.Context(), projectID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusAccepted, job)
}

// GenerateSingle regenerates one question's answer synchronously.
func (h *AnswerHandler) GenerateSingle(w http.ResponseWriter, r *http.Request) {
	questionID, err := strconv.ParseInt(r.URL.Query().Get("question_id"), 10, 64)
	if err != nil {
		respondError(w, h.logger, utils.NewBadRequestError("Invalid question_id"))
		return
	}

	answer, err := h.service.GenerateSingle(r.Context(), questionID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, answer)
}

// Update applies a partial reviewer edit to one answer.
func (h *AnswerHandler) Update(w http.ResponseWriter, r *http.Request) {
	answerID, err := strconv.ParseInt(r.URL.Query().Get("answer_id"), 10, 64)
	if err != nil {
		respondError(w, h.logger, utils.NewBadRequestError("Invalid answer_id"))
		return
	}

	var upd models.AnswerUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		respondError(w, h.logger, utils.NewBadRequestError("Invalid JSON body"))
		return
	}

	answer, err := h.service.Update(r.Context(), answerID, &upd)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, answer)
}

func (h *AnswerHandler) GetByQuestion(w http.ResponseWriter, r *http.Request) {
	questionID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, h.logger, utils.NewBadRequestError("Invalid question id"))
		return
	}

	answer, err := h.service.GetByQuestion(r.Context(), questionID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	// a question without a generated answer yields null, not 404
	respondJSON(w, h.logger, http.StatusOK, answer)
}

func (h *AnswerHandler) ListByProject(w http.ResponseWriter, r *http.Request) {
	projectID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, h.logger, utils.NewBadRequestError("Invalid project id"))
		return
	}

	answers, err := h.service.ListByProject(r.Context(), projectID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, answers)
}
