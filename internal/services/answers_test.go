package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"questionnaire-agent/internal/answerer"
	"questionnaire-agent/internal/db"
	"questionnaire-agent/internal/jobs"
	"questionnaire-agent/internal/models"
	"questionnaire-agent/internal/repository"
	"questionnaire-agent/internal/retrieval"
	"questionnaire-agent/internal/utils"
)

// fakeEmbedder derives a deterministic vector from the text so identical
// texts are identical vectors and similarity search is stable.
type fakeEmbedder struct{ fail bool }

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.fail {
		return nil, errors.New("embedding backend down")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		var a, b, c float32
		for _, r := range strings.ToLower(t) {
			switch {
			case r >= 'a' && r <= 'i':
				a++
			case r >= 'j' && r <= 'r':
				b++
			default:
				c++
			}
		}
		out[i] = []float32{a + 1, b + 1, c + 1}
	}
	return out, nil
}

// fakeAnswerer answers from a canned script keyed on question substrings.
type fakeAnswerer struct {
	fail         bool
	unanswerable bool
}

func (f *fakeAnswerer) Answer(_ context.Context, question string, chunks []retrieval.ScoredChunk) (*answerer.Result, error) {
	if f.fail {
		return nil, errors.New("chat backend down")
	}
	if f.unanswerable {
		return &answerer.Result{Answer: "Not covered by the corpus.", Answerable: false, Confidence: 0.1}, nil
	}
	var citations []answerer.ResultCitation
	if len(chunks) > 0 {
		citations = append(citations, answerer.ResultCitation{
			ChunkID: chunks[0].Chunk.ID,
			Snippet: chunks[0].Chunk.Content,
		})
	}
	return &answerer.Result{
		Answer:     "Yes, per policy: " + question,
		Answerable: true,
		Confidence: 0.9,
		Citations:  citations,
	}, nil
}

type testEnv struct {
	ctx      context.Context
	projects repository.ProjectRepository
	answers  repository.AnswerRepository
	jobRepo  repository.JobRepository
	ledger   *jobs.Ledger
	runner   *jobs.Runner
	store    *retrieval.Store
	embedder *fakeEmbedder
	llm      *fakeAnswerer

	answerSvc AnswerService
	evalSvc   EvaluationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	conn, err := db.NewSQLiteDB(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := db.RunMigrations(conn); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	logger := zap.NewNop()
	env := &testEnv{
		ctx:      context.Background(),
		projects: repository.NewProjectRepository(conn),
		answers:  repository.NewAnswerRepository(conn),
		embedder: &fakeEmbedder{},
		llm:      &fakeAnswerer{},
	}
	env.jobRepo = repository.NewJobRepository(conn)
	env.ledger = jobs.NewLedger(env.jobRepo, logger)
	env.runner = jobs.NewRunner(env.jobRepo, time.Minute, logger)
	env.store = retrieval.NewStore(repository.NewChunkRepository(conn), env.embedder, logger)

	env.answerSvc = NewAnswerService(env.answers, env.projects, env.store, env.llm,
		env.ledger, env.runner, 6, logger)
	env.evalSvc = NewEvaluationService(repository.NewEvaluationRepository(conn),
		env.answers, env.projects, env.embedder, logger)
	return env
}

func (e *testEnv) seedProject(t *testing.T, questionTexts ...string) (*models.Project, []models.Question) {
	t.Helper()
	project := &models.Project{Name: "vendor assessment", Scope: models.ScopeAllDocs, Status: models.ProjectReady}
	questions := make([]models.Question, len(questionTexts))
	for i, text := range questionTexts {
		questions[i] = models.Question{QuestionText: text, OrderIndex: i}
	}
	if err := e.projects.Create(e.ctx, project, questions); err != nil {
		t.Fatalf("failed to seed project: %v", err)
	}
	return project, questions
}

func (e *testEnv) seedCorpus(t *testing.T) {
	t.Helper()
	if _, _, err := e.store.IndexDocument(e.ctx, "doc-1",
		"All customer data is encrypted at rest with AES-256. Backups run nightly and are tested monthly."); err != nil {
		t.Fatalf("failed to seed corpus: %v", err)
	}
}

func TestGenerateAllLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.seedCorpus(t)
	project, questions := env.seedProject(t, "Do you encrypt data at rest?", "Are backups tested?")

	job, err := env.answerSvc.GenerateAllAsync(env.ctx, project.ID)
	if err != nil {
		t.Fatalf("GenerateAllAsync returned error: %v", err)
	}
	if job.Status != models.JobPending {
		t.Fatalf("expected PENDING job, got %s", job.Status)
	}
	env.runner.Wait()

	got, _ := env.ledger.Get(env.ctx, job.ID)
	if got.Status != models.JobCompleted {
		t.Fatalf("expected COMPLETED job, got %s (%v)", got.Status, got.ErrorMessage)
	}

	p, _ := env.projects.GetByID(env.ctx, project.ID)
	if p.Status != models.ProjectComplete {
		t.Errorf("expected project COMPLETE, got %s", p.Status)
	}

	answers, err := env.answerSvc.ListByProject(env.ctx, project.ID)
	if err != nil {
		t.Fatalf("ListByProject returned error: %v", err)
	}
	if len(answers) != len(questions) {
		t.Fatalf("expected %d answers, got %d", len(questions), len(answers))
	}
	for _, a := range answers {
		if a.Status != models.AnswerPending {
			t.Errorf("generated answer should be PENDING, got %s", a.Status)
		}
		if a.AnswerText == nil || !strings.HasPrefix(*a.AnswerText, "Yes, per policy") {
			t.Errorf("unexpected answer text: %v", a.AnswerText)
		}
		if len(a.Citations) == 0 {
			t.Errorf("expected citations on answer %d", a.ID)
		}
	}
}

func TestGenerateAllEmptyCorpus(t *testing.T) {
	env := newTestEnv(t)
	project, _ := env.seedProject(t, "Do you encrypt data at rest?")

	job, err := env.answerSvc.GenerateAllAsync(env.ctx, project.ID)
	if err != nil {
		t.Fatalf("GenerateAllAsync returned error: %v", err)
	}
	env.runner.Wait()

	got, _ := env.ledger.Get(env.ctx, job.ID)
	if got.Status != models.JobCompleted {
		t.Fatalf("expected COMPLETED job, got %s", got.Status)
	}

	answers, _ := env.answerSvc.ListByProject(env.ctx, project.ID)
	if len(answers) != 1 {
		t.Fatalf("expected 1 answer, got %d", len(answers))
	}
	if answers[0].Status != models.AnswerMissingData {
		t.Errorf("no retrieval hits should yield MISSING_DATA, got %s", answers[0].Status)
	}
	if answers[0].IsAnswerable {
		t.Errorf("no retrieval hits should be unanswerable")
	}
}

func TestGenerateAllUnanswerable(t *testing.T) {
	env := newTestEnv(t)
	env.seedCorpus(t)
	env.llm.unanswerable = true
	project, _ := env.seedProject(t, "What is your office dog's name?")

	_, err := env.answerSvc.GenerateAllAsync(env.ctx, project.ID)
	if err != nil {
		t.Fatalf("GenerateAllAsync returned error: %v", err)
	}
	env.runner.Wait()

	answers, _ := env.answerSvc.ListByProject(env.ctx, project.ID)
	if answers[0].Status != models.AnswerMissingData {
		t.Errorf("unanswerable verdict should yield MISSING_DATA, got %s", answers[0].Status)
	}
}

func TestGenerateAllFailureFlagsProject(t *testing.T) {
	env := newTestEnv(t)
	env.seedCorpus(t)
	env.llm.fail = true
	project, _ := env.seedProject(t, "Do you encrypt data at rest?")

	job, err := env.answerSvc.GenerateAllAsync(env.ctx, project.ID)
	if err != nil {
		t.Fatalf("GenerateAllAsync returned error: %v", err)
	}
	env.runner.Wait()

	got, _ := env.ledger.Get(env.ctx, job.ID)
	if got.Status != models.JobFailed {
		t.Fatalf("expected FAILED job, got %s", got.Status)
	}
	if got.ErrorMessage == nil || !strings.Contains(*got.ErrorMessage, "chat backend down") {
		t.Errorf("failure cause not surfaced: %v", got.ErrorMessage)
	}

	p, _ := env.projects.GetByID(env.ctx, project.ID)
	if p.Status != models.ProjectOutdated {
		t.Errorf("failed generation should flag project OUTDATED, got %s", p.Status)
	}
}

// blockingAnswerer holds every call until the context ends.
type blockingAnswerer struct{}

func (b *blockingAnswerer) Answer(ctx context.Context, _ string, _ []retrieval.ScoredChunk) (*answerer.Result, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestGenerateAllTimeoutFlagsProject(t *testing.T) {
	env := newTestEnv(t)
	env.seedCorpus(t)
	project, _ := env.seedProject(t, "Do you encrypt data at rest?")

	runner := jobs.NewRunner(env.jobRepo, 20*time.Millisecond, zap.NewNop())
	svc := NewAnswerService(env.answers, env.projects, env.store, &blockingAnswerer{},
		env.ledger, runner, 6, zap.NewNop())

	job, err := svc.GenerateAllAsync(env.ctx, project.ID)
	if err != nil {
		t.Fatalf("GenerateAllAsync returned error: %v", err)
	}
	runner.Wait()

	// the deadline expired inside the body; both the job failure and the
	// project flag must still be recorded
	got, _ := env.ledger.Get(env.ctx, job.ID)
	if got.Status != models.JobFailed {
		t.Fatalf("expected FAILED after timeout, got %s", got.Status)
	}
	if got.ErrorMessage == nil || !strings.Contains(*got.ErrorMessage, context.DeadlineExceeded.Error()) {
		t.Errorf("deadline cause not surfaced: %v", got.ErrorMessage)
	}

	p, _ := env.projects.GetByID(env.ctx, project.ID)
	if p.Status != models.ProjectOutdated {
		t.Errorf("timed-out generation should flag project OUTDATED, got %s", p.Status)
	}
}

func TestGenerateAllUnknownProject(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.answerSvc.GenerateAllAsync(env.ctx, 999)
	assertStatus(t, err, 404)
}

func TestGenerateSingleReplacesAnswer(t *testing.T) {
	env := newTestEnv(t)
	env.seedCorpus(t)
	_, questions := env.seedProject(t, "Do you encrypt data at rest?")

	first, err := env.answerSvc.GenerateSingle(env.ctx, questions[0].ID)
	if err != nil {
		t.Fatalf("GenerateSingle returned error: %v", err)
	}
	second, err := env.answerSvc.GenerateSingle(env.ctx, questions[0].ID)
	if err != nil {
		t.Fatalf("second GenerateSingle returned error: %v", err)
	}
	if second.ID == first.ID {
		t.Errorf("regeneration should replace the answer row")
	}

	current, _ := env.answerSvc.GetByQuestion(env.ctx, questions[0].ID)
	if current == nil || current.ID != second.ID {
		t.Errorf("expected the regenerated answer to be current")
	}
}

func TestUpdateAnswerPartial(t *testing.T) {
	env := newTestEnv(t)
	env.seedCorpus(t)
	_, questions := env.seedProject(t, "Do you encrypt data at rest?")
	generated, err := env.answerSvc.GenerateSingle(env.ctx, questions[0].ID)
	if err != nil {
		t.Fatalf("GenerateSingle returned error: %v", err)
	}

	// status alone
	confirmed := models.AnswerConfirmed
	updated, err := env.answerSvc.Update(env.ctx, generated.ID, &models.AnswerUpdate{Status: &confirmed})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.Status != models.AnswerConfirmed {
		t.Errorf("expected CONFIRMED, got %s", updated.Status)
	}
	if updated.ManualAnswerText != nil || updated.HumanAnswerText != nil {
		t.Errorf("omitted fields must stay untouched")
	}

	// ground truth alone never changes status
	truth := "We use AES-256 for all data at rest."
	updated, err = env.answerSvc.Update(env.ctx, generated.ID, &models.AnswerUpdate{HumanAnswerText: &truth})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.Status != models.AnswerConfirmed {
		t.Errorf("ground truth capture changed status to %s", updated.Status)
	}
	if updated.HumanAnswerText == nil || *updated.HumanAnswerText != truth {
		t.Errorf("ground truth not stored")
	}

	// manual override switches the derived answer text
	manual := models.AnswerManualUpdated
	text := "We encrypt everything with AES-256-GCM."
	updated, err = env.answerSvc.Update(env.ctx, generated.ID, &models.AnswerUpdate{Status: &manual, ManualAnswerText: &text})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.AnswerText == nil || *updated.AnswerText != text {
		t.Errorf("derived answer text should be the manual override, got %v", updated.AnswerText)
	}

	// reviewers may keep flipping between terminal review states
	rejected := models.AnswerRejected
	updated, err = env.answerSvc.Update(env.ctx, generated.ID, &models.AnswerUpdate{Status: &rejected})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.Status != models.AnswerRejected {
		t.Errorf("expected REJECTED, got %s", updated.Status)
	}
	if updated.AnswerText == nil || *updated.AnswerText == text {
		t.Errorf("leaving MANUAL_UPDATED should fall back to the AI text")
	}
}

func TestUpdateAnswerValidation(t *testing.T) {
	env := newTestEnv(t)
	env.seedCorpus(t)
	_, questions := env.seedProject(t, "Do you encrypt data at rest?")
	generated, err := env.answerSvc.GenerateSingle(env.ctx, questions[0].ID)
	if err != nil {
		t.Fatalf("GenerateSingle returned error: %v", err)
	}

	manual := models.AnswerManualUpdated
	_, err = env.answerSvc.Update(env.ctx, generated.ID, &models.AnswerUpdate{Status: &manual})
	assertStatus(t, err, 422)

	// the rejected update must not have written anything
	current, _ := env.answerSvc.GetByQuestion(env.ctx, questions[0].ID)
	if current.Status != models.AnswerPending {
		t.Errorf("rejected update leaked a write: status %s", current.Status)
	}

	pending := models.AnswerPending
	_, err = env.answerSvc.Update(env.ctx, generated.ID, &models.AnswerUpdate{Status: &pending})
	assertStatus(t, err, 422)

	_, err = env.answerSvc.Update(env.ctx, 999, &models.AnswerUpdate{Status: &manual})
	assertStatus(t, err, 404)
}

func TestGetByQuestionWithoutAnswer(t *testing.T) {
	env := newTestEnv(t)
	_, questions := env.seedProject(t, "Do you encrypt data at rest?")

	answer, err := env.answerSvc.GetByQuestion(env.ctx, questions[0].ID)
	if err != nil {
		t.Fatalf("GetByQuestion returned error: %v", err)
	}
	if answer != nil {
		t.Errorf("expected nil for an un-generated question, got %+v", answer)
	}
}

func assertStatus(t *testing.T, err error, want int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with status %d, got nil", want)
	}
	appErr, ok := err.(*utils.AppError)
	if !ok {
		t.Fatalf("expected AppError, got %T: %v", err, err)
	}
	if appErr.StatusCode != want {
		t.Errorf("expected status %d, got %d (%s)", want, appErr.StatusCode, appErr.Message)
	}
}
