package models

// JobType identifies the asynchronous operation a job record tracks.
type JobType string

const (
	JobTypeCreateProject   JobType = "create_project"
	JobTypeUpdateProject   JobType = "update_project"
	JobTypeIndexDocument   JobType = "index_document"
	JobTypeGenerateAnswers JobType = "generate_answers"
)

// JobStatus is the lifecycle state of a job. Transitions are monotonic:
// PENDING -> RUNNING -> {COMPLETED, FAILED}. COMPLETED and FAILED are
// terminal and can never be left.
type JobStatus string

const (
	JobPending   JobStatus = "PENDING"
	JobRunning   JobStatus = "RUNNING"
	JobCompleted JobStatus = "COMPLETED"
	JobFailed    JobStatus = "FAILED"
)

// Terminal reports whether no further transition is possible.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// ProjectStatus tracks a project through extraction and generation.
type ProjectStatus string

const (
	ProjectPending    ProjectStatus = "PENDING"
	ProjectIndexing   ProjectStatus = "INDEXING"
	ProjectReady      ProjectStatus = "READY"
	ProjectOutdated   ProjectStatus = "OUTDATED"
	ProjectGenerating ProjectStatus = "GENERATING"
	ProjectComplete   ProjectStatus = "COMPLETE"
)

// AnswerStatus is the review state of a generated answer. Generation writes
// PENDING or MISSING_DATA; reviewers move freely between CONFIRMED, REJECTED
// and MANUAL_UPDATED afterwards.
type AnswerStatus string

const (
	AnswerPending       AnswerStatus = "PENDING"
	AnswerConfirmed     AnswerStatus = "CONFIRMED"
	AnswerRejected      AnswerStatus = "REJECTED"
	AnswerManualUpdated AnswerStatus = "MANUAL_UPDATED"
	AnswerMissingData   AnswerStatus = "MISSING_DATA"
)

// ValidAnswerStatus reports whether s is one of the known review states.
func ValidAnswerStatus(s AnswerStatus) bool {
	switch s {
	case AnswerPending, AnswerConfirmed, AnswerRejected, AnswerManualUpdated, AnswerMissingData:
		return true
	}
	return false
}

// ReviewerStatus reports whether a reviewer may set s on an existing answer.
// PENDING and MISSING_DATA are written by generation only.
func ReviewerStatus(s AnswerStatus) bool {
	switch s {
	case AnswerConfirmed, AnswerRejected, AnswerManualUpdated:
		return true
	}
	return false
}
