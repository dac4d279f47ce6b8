package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"questionnaire-agent/internal/jobs"
	"questionnaire-agent/internal/utils"
)

type JobHandler struct {
	ledger *jobs.Ledger
	logger *zap.Logger
}

func NewJobHandler(ledger *jobs.Ledger, logger *zap.Logger) *JobHandler {
	return &JobHandler{ledger: ledger, logger: logger}
}

// GetJob is what pollers hit every couple of seconds. Unknown ids are a 404,
// distinct from a job that exists but is still pending.
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, h.logger, utils.NewBadRequestError("Invalid request id"))
		return
	}

	job, err := h.ledger.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to load job", zap.Int64("job_id", id), zap.Error(err))
		respondError(w, h.logger, utils.NewInternalError("Failed to load request"))
		return
	}
	if job == nil {
		respondError(w, h.logger, utils.NewNotFoundError("Request not found"))
		return
	}

	respondJSON(w, h.logger, http.StatusOK, job)
}
