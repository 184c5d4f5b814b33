package dataset

import "time"

// CapturedState is one persisted observation of the UI. Sequence numbers
// start at 1 and are contiguous within a run.
type CapturedState struct {
	Sequence     int       `json:"sequence"`
	Filename     string    `json:"filename"`
	DOMFilename  string    `json:"dom_filename,omitempty"`
	ActionTaken  *string   `json:"action_taken"`
	HasURL       bool      `json:"has_url"`
	URL          string    `json:"url,omitempty"`
	IsModal      bool      `json:"is_modal"`
	IsForm       bool      `json:"is_form"`
	ElementCount int       `json:"element_count"`
	Timestamp    time.Time `json:"timestamp"`
}

// WorkflowResult is the terminal record of a run, written to metadata.json.
type WorkflowResult struct {
	RunID           string          `json:"run_id"`
	RunName         string          `json:"run_name,omitempty"`
	TaskDescription string          `json:"task_description"`
	App             string          `json:"app"`
	Timestamp       time.Time       `json:"timestamp"`
	Success         bool            `json:"success"`
	TotalStates     int             `json:"total_states"`
	States          []CapturedState `json:"states"`
	ErrorMessage    string          `json:"error_message,omitempty"`
	DurationSeconds float64         `json:"duration_seconds"`
	Iterations      int             `json:"iterations"`
	Warnings        []string        `json:"warnings,omitempty"`
	OutputDir       string          `json:"output_dir,omitempty"`
}

// RunSummary is one line of ListRuns.
type RunSummary struct {
	Name      string    `json:"name"`
	App       string    `json:"app"`
	Task      string    `json:"task"`
	Success   bool      `json:"success"`
	States    int       `json:"states"`
	Timestamp time.Time `json:"timestamp"`
}
