package events

import (
	"time"

	"storefront/internal/kyc/models"
)

// Type names a submission lifecycle event.
type Type string

const (
	TypeSubmissionCreated  Type = "kyc.submission.created"
	TypeSubmissionUpdated  Type = "kyc.submission.updated"
	TypeSubmissionReviewed Type = "kyc.submission.reviewed"
	TypeSubmissionDeleted  Type = "kyc.submission.deleted"
)

// Event is published after a submission write commits.
type Event struct {
	ID           string        `json:"id"`
	Type         Type          `json:"type"`
	SubmissionID string        `json:"submission_id"`
	Owner        string        `json:"owner"`
	Variant      string        `json:"kyc_type"`
	Status       models.Status `json:"status"`
	ActorID      string        `json:"actor_id,omitempty"`
	RequestID    string        `json:"request_id,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
}

// FromSubmission builds an event describing sub.
func FromSubmission(t Type, sub *models.Submission) Event {
	return Event{
		Type:         t,
		SubmissionID: sub.ID,
		Owner:        sub.Owner,
		Variant:      sub.Variant,
		Status:       sub.Status,
	}
}
