package sandboxlog

// Status is the terminal state of one execution attempt. A document is
// written for every attempt, whatever its outcome, so that run-round
// sequences on disk stay contiguous.
type Status string

const (
	// StatusCompleted marks a run that returned a result.
	StatusCompleted Status = "completed"
	// StatusCancelled marks a run the user abandoned; captured output up to
	// cancellation is still persisted.
	StatusCancelled Status = "cancelled"
	// StatusFailed marks a run where the remote runtime died without a
	// result. Output fields may be empty.
	StatusFailed Status = "failed"
)

// State describes one sandbox execution attempt. EnabledRound carries the
// chat round the attempt belongs to (historical field name); the attempt is
// uniquely keyed by (conv_id, enabled_round, sandbox_run_round) — SandboxID
// may repeat when a runtime instance is reused across attempts.
type State struct {
	ConvID          string `json:"conv_id"`
	ChatSessionID   string `json:"chat_session_id"`
	EnabledRound    int    `json:"enabled_round"`
	SandboxRunRound int    `json:"sandbox_run_round"`
	SandboxID       string `json:"sandbox_id"`
	CodeToExecute   string `json:"code_to_execute"`
	SandboxOutput   string `json:"sandbox_output"`
	SandboxError    string `json:"sandbox_error"`
	Status          Status `json:"status,omitempty"`
}

// Document is the full JSON document stored per attempt.
type Document struct {
	SandboxState           State            `json:"sandbox_state"`
	UserInteractionRecords []map[string]any `json:"user_interaction_records"`
}
