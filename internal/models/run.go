package models

type RunOutcome string

const (
	OutcomeStarted        RunOutcome = "started"
	OutcomeAlreadyRunning RunOutcome = "already_running"
	OutcomeNoneActive     RunOutcome = "none_active"
	OutcomeFailed         RunOutcome = "failed"
	OutcomeInstalled      RunOutcome = "installed"
)

type RunRecord struct {
	ID          string     `json:"id"`
	Mode        string     `json:"mode"`        // run or install
	StartedAt   string     `json:"started_at"`  // RFC3339 timestamp
	FinishedAt  string     `json:"finished_at"` // RFC3339 timestamp
	Outcome     RunOutcome `json:"outcome"`
	WindowIndex *int       `json:"window_index,omitempty"`
	BlockEnd    *string    `json:"block_end,omitempty"` // ISO-8601 with offset
	Error       string     `json:"error,omitempty"`
}
