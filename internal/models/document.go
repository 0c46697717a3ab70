package models

import "time"

// Job statuses recorded on a ComposeJob document.
const (
	StatusValidating = "VALIDATING"
	StatusComposing  = "COMPOSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// ComposeJob is the Firestore record of one manifest-driven compose run.
// It tracks the overall status and where the output ended up.
type ComposeJob struct {
	ManifestHash        string         `firestore:"manifestHash,omitempty"`
	ManifestObject      string         `firestore:"manifestObject,omitempty"`
	Status              string         `firestore:"status,omitempty"`
	ErrorDetails        string         `firestore:"errorDetails,omitempty"`
	PageCount           int            `firestore:"pageCount,omitempty"`
	AcceptedFiles       int            `firestore:"acceptedFiles,omitempty"`
	RejectedFiles       []RejectedFile `firestore:"rejectedFiles,omitempty"`
	OutputURI           string         `firestore:"outputUri,omitempty"`
	WorkflowExecutionID string         `firestore:"workflowExecutionId,omitempty"` // For traceability
	CreatedAt           time.Time      `firestore:"createdAt,omitempty"`
}
