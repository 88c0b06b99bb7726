package model

import "time"

// RunStatus represents the current state of a pipeline run.
type RunStatus string

const (
	RunStatusQueued      RunStatus = "queued"
	RunStatusResolving   RunStatus = "resolving"
	RunStatusScanning    RunStatus = "scanning"
	RunStatusClassifying RunStatus = "classifying"
	RunStatusExtracting  RunStatus = "extracting"
	RunStatusGenerating  RunStatus = "generating"
	RunStatusComplete    RunStatus = "complete"
	RunStatusFailed      RunStatus = "failed"
)

// RunKind names the pipeline entry point a run was started from.
type RunKind string

const (
	RunKindResolve  RunKind = "resolve"
	RunKindScan     RunKind = "scan"
	RunKindPersona  RunKind = "persona"
	RunKindPlaybook RunKind = "playbook"
)

// Run represents a single pipeline invocation for a person.
type Run struct {
	ID        string     `json:"id"`
	PersonID  string     `json:"person_id"`
	Kind      RunKind    `json:"kind"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RunResult holds the final outcome of a run.
type RunResult struct {
	Phases []PhaseResult `json:"phases"`
	Error  string        `json:"error,omitempty"`
}

// RunPhase represents a phase within a run.
type RunPhase struct {
	ID        string       `json:"id"`
	RunID     string       `json:"run_id"`
	Name      string       `json:"name"`
	Status    PhaseStatus  `json:"status"`
	Result    *PhaseResult `json:"result,omitempty"`
	StartedAt time.Time    `json:"started_at"`
}

// PhaseStatus represents the current state of a pipeline phase.
type PhaseStatus string

const (
	PhaseStatusRunning  PhaseStatus = "running"
	PhaseStatusComplete PhaseStatus = "complete"
	PhaseStatusFailed   PhaseStatus = "failed"
	PhaseStatusSkipped  PhaseStatus = "skipped"
)

// PhaseResult holds the outcome of a pipeline phase.
type PhaseResult struct {
	Name     string         `json:"name"`
	Status   PhaseStatus    `json:"status"`
	Duration int64          `json:"duration_ms"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
