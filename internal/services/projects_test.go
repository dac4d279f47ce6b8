package services

import (
	"testing"

	"go.uber.org/zap"

	"questionnaire-agent/internal/models"
)

func TestProjectStatusReviewProgress(t *testing.T) {
	env := newTestEnv(t)
	env.seedCorpus(t)
	project, questions := env.seedProject(t, "Do you encrypt data at rest?", "Are backups tested?")

	svc := NewProjectService(env.projects, env.answers, nil, env.ledger, env.runner, zap.NewNop())

	report, err := svc.Status(env.ctx, project.ID)
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if report.Status != models.ProjectReady {
		t.Errorf("expected READY, got %s", report.Status)
	}
	if report.AnswersTotal != 0 || report.AnswersReviewed != 0 {
		t.Errorf("no answers yet, got %d/%d", report.AnswersReviewed, report.AnswersTotal)
	}

	for _, q := range questions {
		if _, err := env.answerSvc.GenerateSingle(env.ctx, q.ID); err != nil {
			t.Fatalf("GenerateSingle returned error: %v", err)
		}
	}
	first, err := env.answerSvc.GetByQuestion(env.ctx, questions[0].ID)
	if err != nil || first == nil {
		t.Fatalf("failed to load generated answer: %v", err)
	}
	confirmed := models.AnswerConfirmed
	if _, err := env.answerSvc.Update(env.ctx, first.ID, &models.AnswerUpdate{Status: &confirmed}); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	report, err = svc.Status(env.ctx, project.ID)
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if report.AnswersTotal != 2 {
		t.Errorf("expected 2 answers, got %d", report.AnswersTotal)
	}
	if report.AnswersReviewed != 1 {
		t.Errorf("one confirmed answer should count as reviewed, got %d", report.AnswersReviewed)
	}

	_, err = svc.Status(env.ctx, 999)
	assertStatus(t, err, 404)
}
