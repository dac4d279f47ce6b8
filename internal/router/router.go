package router

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"questionnaire-agent/internal/handlers"
	"questionnaire-agent/internal/jobs"
	"questionnaire-agent/internal/middleware"
	"questionnaire-agent/internal/services"
)

type Deps struct {
	Ledger        *jobs.Ledger
	Projects      services.ProjectService
	Documents     services.DocumentService
	Answers       services.AnswerService
	Evaluation    services.EvaluationService
	MaxUploadSize int64
	Logger        *zap.Logger
}

func New(d Deps) http.Handler {
	r := mux.NewRouter()

	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.CORS())
	r.Use(middleware.Recovery(d.Logger))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	jobHandler := handlers.NewJobHandler(d.Ledger, d.Logger)
	projectHandler := handlers.NewProjectHandler(d.Projects, d.MaxUploadSize, d.Logger)
	documentHandler := handlers.NewDocumentHandler(d.Documents, d.MaxUploadSize, d.Logger)
	answerHandler := handlers.NewAnswerHandler(d.Answers, d.Logger)
	evaluationHandler := handlers.NewEvaluationHandler(d.Evaluation, d.Logger)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/requests/{id}", jobHandler.GetJob).Methods(http.MethodGet)

	api.HandleFunc("/projects/create-async", projectHandler.CreateAsync).Methods(http.MethodPost)
	api.HandleFunc("/projects/update-async", projectHandler.UpdateAsync).Methods(http.MethodPost)
	api.HandleFunc("/projects/list", projectHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/projects/{id}/status", projectHandler.Status).Methods(http.MethodGet)
	api.HandleFunc("/projects/{id}", projectHandler.Get).Methods(http.MethodGet)

	api.HandleFunc("/answers/generate-all-async", answerHandler.GenerateAllAsync).Methods(http.MethodPost)
	api.HandleFunc("/answers/generate-single", answerHandler.GenerateSingle).Methods(http.MethodPost)
	api.HandleFunc("/answers/update", answerHandler.Update).Methods(http.MethodPost)
	api.HandleFunc("/answers/by-question/{id}", answerHandler.GetByQuestion).Methods(http.MethodGet)
	api.HandleFunc("/answers/by-project/{id}", answerHandler.ListByProject).Methods(http.MethodGet)

	api.HandleFunc("/documents/index-async", documentHandler.IndexAsync).Methods(http.MethodPost)
	api.HandleFunc("/documents", documentHandler.List).Methods(http.MethodGet)

	api.HandleFunc("/evaluation/run", evaluationHandler.Run).Methods(http.MethodPost)
	api.HandleFunc("/evaluation/report", evaluationHandler.Report).Methods(http.MethodGet)

	return r
}
