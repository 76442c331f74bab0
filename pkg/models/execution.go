package models

import "time"

// ExecutionStatus represents the run state of a workflow execution.
type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusPaused    ExecutionStatus = "paused"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
)

// Terminal reports whether the status is final.
func (s ExecutionStatus) Terminal() bool {
	switch s {
	case ExecutionStatusCompleted, ExecutionStatusFailed, ExecutionStatusCancelled:
		return true
	}

	return false
}

// LogStatus is the state recorded for one step attempt in the execution log.
type LogStatus string

const (
	LogStatusStarted   LogStatus = "started"
	LogStatusCompleted LogStatus = "completed"
	LogStatusFailed    LogStatus = "failed"
	LogStatusSkipped   LogStatus = "skipped"
)

// LogEntry is an append-only audit record for one step attempt.
type LogEntry struct {
	StepID    string         `json:"step_id"`
	StepName  string         `json:"step_name"`
	Timestamp time.Time      `json:"timestamp"`
	Status    LogStatus      `json:"status"`
	Input     map[string]any `json:"input,omitempty"`
	Output    map[string]any `json:"output,omitempty"`
	Error     string         `json:"error,omitempty"`
	Duration  time.Duration  `json:"duration,omitempty"`
}

// WorkflowExecution is one run of a workflow from trigger to terminal state.
// Exactly one CurrentStep is authoritative at a time; steps within one
// execution are strictly sequential.
type WorkflowExecution struct {
	ID          string            `json:"id"`
	WorkflowID  string            `json:"workflow_id"`
	Status      ExecutionStatus   `json:"status"`
	CurrentStep string            `json:"current_step"`
	Context     map[string]any    `json:"context"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	Error       string            `json:"error,omitempty"`
	TriggeredBy string            `json:"triggered_by,omitempty"`
	Log         []LogEntry        `json:"execution_log"`
}

// AppendLog adds an audit record to the execution log.
func (e *WorkflowExecution) AppendLog(entry LogEntry) {
	e.Log = append(e.Log, entry)
}

// MergeOutput folds a completed step's map output into the execution context,
// making it observable by later steps. Output keys overwrite existing context
// keys.
func (e *WorkflowExecution) MergeOutput(output map[string]any) {
	if len(output) == 0 {
		return
	}

	if e.Context == nil {
		e.Context = make(map[string]any, len(output))
	}

	for k, v := range output {
		e.Context[k] = v
	}
}

// ElapsedAt returns the run duration as of the given instant, using
// CompletedAt when the execution already finished.
func (e *WorkflowExecution) ElapsedAt(now time.Time) time.Duration {
	if e.CompletedAt != nil {
		return e.CompletedAt.Sub(e.StartedAt)
	}

	return now.Sub(e.StartedAt)
}
