package domain

import "time"

// JobStatus is the lifecycle state of a pipeline job
type JobStatus string

// Job statuses
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether the status can no longer change
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Stage names a pipeline step
type Stage string

// Pipeline stages, in execution order
const (
	StageExtraction     Stage = "extraction"
	StageClassification Stage = "classification"
	StageRouting        Stage = "routing"
)

// Job is one pipeline run for a session
type Job struct {
	ID         string        `json:"job_id"`
	SessionID  string        `json:"session_id"`
	Status     JobStatus     `json:"status"`
	Stage      Stage         `json:"stage,omitempty"`
	Result     *TriageResult `json:"result,omitempty"`
	Error      string        `json:"error,omitempty"`
	ErrorKind  string        `json:"error_kind,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
}

// Clone returns a deep copy
func (j *Job) Clone() *Job {
	cp := *j
	cp.Result = j.Result.Clone()
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		cp.FinishedAt = &t
	}
	return &cp
}
