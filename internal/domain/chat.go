package domain

// CreateSessionResponse is returned when a new intake session starts
type CreateSessionResponse struct {
	SessionID           string              `json:"session_id"`
	Welcome             string              `json:"welcome"`
	LanguagePrompt      string              `json:"language_prompt"`
	LanguageOptions     map[Language]string `json:"language_options"`
	IsLanguageSelection bool                `json:"is_language_selection"`
}

// ChatRequest carries one patient answer
type ChatRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Message   string `json:"message"`
}

// ChatResponse is the state machine's reply to one answer
type ChatResponse struct {
	SessionID      string  `json:"session_id"`
	QuestionNumber int     `json:"question_number"`
	NextQuestion   *string `json:"next_question"`
	IsComplete     bool    `json:"is_complete"`
}

// SessionSummary is a read-only view of a session's progress
type SessionSummary struct {
	SessionID       string   `json:"session_id"`
	CurrentQuestion int      `json:"current_question"`
	IsComplete      bool     `json:"is_complete"`
	AnswersCount    int      `json:"answers_count"`
	Language        Language `json:"language,omitempty"`
}

// ProcessRequest asks for a pipeline run on a completed session
type ProcessRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

// ProcessResponse carries the job handle to poll
type ProcessResponse struct {
	Status string `json:"status"`
	JobID  string `json:"job_id"`
}

// ResultResponse is the polled state of a job
type ResultResponse struct {
	Status    JobStatus     `json:"status"`
	Stage     Stage         `json:"stage,omitempty"`
	Result    *TriageResult `json:"result,omitempty"`
	Error     string        `json:"error,omitempty"`
	ErrorKind string        `json:"error_kind,omitempty"`
}
