package models

import "time"

// Job is the durable record of one asynchronous backend operation. entity_id
// is set only when the job completes; error_message only when it fails.
type Job struct {
	ID            int64     `json:"id" db:"id"`
	Type          JobType   `json:"type" db:"type"`
	Status        JobStatus `json:"status" db:"status"`
	EntityID      *string   `json:"entity_id" db:"entity_id"`
	ResultPayload *string   `json:"result_payload" db:"result_payload"`
	ErrorMessage  *string   `json:"error_message" db:"error_message"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"-" db:"updated_at"`
}

// Project is one questionnaire-answering engagement.
type Project struct {
	ID                      int64         `json:"id" db:"id"`
	Name                    string        `json:"name" db:"name"`
	QuestionnaireDocumentID *string       `json:"questionnaire_document_id" db:"questionnaire_document_id"`
	Scope                   string        `json:"scope" db:"scope"`
	Status                  ProjectStatus `json:"status" db:"status"`
	CreatedAt               time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt               time.Time     `json:"updated_at" db:"updated_at"`
}

// ScopeAllDocs answers against the whole indexed corpus. It is the only
// scope the retrieval layer currently implements.
const ScopeAllDocs = "ALL_DOCS"

// ProjectDetail is a project together with its ordered questions.
type ProjectDetail struct {
	Project
	Questions []Question `json:"questions"`
}

// Question is one extracted questionnaire item. Immutable once extracted.
type Question struct {
	ID           int64   `json:"id" db:"id"`
	ProjectID    int64   `json:"-" db:"project_id"`
	SectionID    *string `json:"section_id" db:"section_id"`
	SectionTitle *string `json:"section_title" db:"section_title"`
	QuestionText string  `json:"question_text" db:"question_text"`
	OrderIndex   int     `json:"order_index" db:"order_index"`
}

// Answer holds the AI answer, the reviewer's override, and the human ground
// truth for one question. AnswerText is derived, never stored: the manual
// override wins when the answer is MANUAL_UPDATED, otherwise the AI text.
type Answer struct {
	ID               int64        `json:"id" db:"id"`
	QuestionID       int64        `json:"question_id" db:"question_id"`
	AnswerText       *string      `json:"answer_text" db:"-"`
	IsAnswerable     bool         `json:"is_answerable" db:"is_answerable"`
	ConfidenceScore  *float64     `json:"confidence_score" db:"confidence_score"`
	Status           AnswerStatus `json:"status" db:"status"`
	AIAnswerText     *string      `json:"ai_answer_text" db:"ai_answer_text"`
	ManualAnswerText *string      `json:"manual_answer_text" db:"manual_answer_text"`
	HumanAnswerText  *string      `json:"human_answer_text" db:"human_answer_text"`
	CreatedAt        time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at" db:"updated_at"`
	Citations        []Citation   `json:"citations"`
}

// DisplayText computes the derived answer text.
func (a *Answer) DisplayText() *string {
	if a.Status == AnswerManualUpdated && a.ManualAnswerText != nil {
		return a.ManualAnswerText
	}
	return a.AIAnswerText
}

// AnswerUpdate is the review coordinator's partial-update payload. Nil
// fields are left untouched.
type AnswerUpdate struct {
	Status           *AnswerStatus `json:"status"`
	ManualAnswerText *string       `json:"manual_answer_text"`
	HumanAnswerText  *string       `json:"human_answer_text"`
}

// Citation is a retrieval-sourced snippet supporting an answer.
type Citation struct {
	ID             int64   `json:"id" db:"id"`
	AnswerID       int64   `json:"answer_id" db:"answer_id"`
	ChunkID        *string `json:"chunk_id" db:"chunk_id"`
	DocumentID     *string `json:"document_id" db:"document_id"`
	Snippet        *string `json:"snippet" db:"snippet"`
	BoundingBoxRef *string `json:"bounding_box_ref" db:"bounding_box_ref"`
	OrderIndex     int     `json:"order_index" db:"order_index"`
}

// DocumentRegistryItem is a corpus document available for retrieval,
// independent of any project.
type DocumentRegistryItem struct {
	ID                 int64     `json:"id" db:"id"`
	DocumentID         string    `json:"document_id" db:"document_id"`
	Filename           string    `json:"filename" db:"filename"`
	IndexedAt          time.Time `json:"indexed_at" db:"indexed_at"`
	ChunkCountSection  int       `json:"chunk_count_section" db:"chunk_count_section"`
	ChunkCountCitation int       `json:"chunk_count_citation" db:"chunk_count_citation"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
}

// Chunk is one indexed slice of a corpus document with its embedding.
type Chunk struct {
	ID         string `db:"id"`
	DocumentID string `db:"document_id"`
	ChunkType  string `db:"chunk_type"`
	Content    string `db:"content"`
	Embedding  []byte `db:"embedding"`
	Position   int    `db:"position"`
}

const (
	ChunkTypeSection  = "section"
	ChunkTypeCitation = "citation"
)

// EvaluationRun is one scored comparison of AI answers against human ground
// truth. Immutable once created; a new run per invocation.
type EvaluationRun struct {
	ID             int64     `json:"run_id" db:"id"`
	ProjectID      int64     `json:"project_id" db:"project_id"`
	AggregateScore *float64  `json:"aggregate_score" db:"aggregate_score"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// EvaluationResult scores one question. SimilarityScore is null when either
// the AI answer or the ground truth is missing.
type EvaluationResult struct {
	ID              int64    `json:"id" db:"id"`
	RunID           int64    `json:"run_id" db:"run_id"`
	QuestionID      int64    `json:"question_id" db:"question_id"`
	AIAnswer        *string  `json:"ai_answer" db:"ai_answer"`
	HumanAnswer     *string  `json:"human_answer" db:"human_answer"`
	SimilarityScore *float64 `json:"similarity_score" db:"similarity_score"`
	Details         *string  `json:"details" db:"details"`
}
