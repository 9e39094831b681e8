package model

import "time"

type StepStatus string

const (
	StepSuccess StepStatus = "Success"
	StepFailure StepStatus = "Failure"
	StepWarning StepStatus = "Warning"
)

// DiagnosticStep is one completed check in a diagnostic run. Conditionally
// omitted checks are still recorded, with a Warning status and an N/A summary.
type DiagnosticStep struct {
	StepName string     `json:"stepName"`
	Status   StepStatus `json:"status"`
	Summary  string     `json:"summary"`
	Details  string     `json:"details,omitempty"`
}

// DiagnosticLog is the immutable record of one diagnostic run.
type DiagnosticLog struct {
	ID           string           `json:"id"`
	TenantID     string           `json:"tenant_id"`
	SubscriberID string           `json:"subscriber_id"`
	Steps        []DiagnosticStep `json:"steps"`
	Conclusion   string           `json:"conclusion"`
	Status       StepStatus       `json:"status"`
	CreatedAt    time.Time        `json:"created_at"`
}
