package models

import (
	"time"
)

// Status is the review state of a submission.
type Status string

const (
	StatusPending     Status = "pending"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
)

// AllStatuses lists the known statuses in lifecycle order.
var AllStatuses = []Status{StatusPending, StatusUnderReview, StatusApproved, StatusRejected}

func (s Status) String() string {
	return string(s)
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusUnderReview, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// IsEditable reports whether the owner may edit and resubmit.
func (s Status) IsEditable() bool {
	return s == StatusPending || s == StatusRejected
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusApproved
}

// CanTransitionTo enforces the review lifecycle. Rejected submissions only
// return to pending through resubmission.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusUnderReview || next == StatusApproved || next == StatusRejected
	case StatusUnderReview:
		return next == StatusApproved || next == StatusRejected
	case StatusRejected:
		return next == StatusPending
	}
	return false
}

// Document is a server-assigned reference to a persisted attachment.
type Document struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size"`
	URL         string `json:"url,omitempty"`
}

// Submission is one user's attempt to complete verification for a variant.
type Submission struct {
	ID         string            `json:"id"`
	Owner      string            `json:"owner"`
	Variant    string            `json:"kyc_type"`
	Status     Status            `json:"status"`
	Fields     map[string]string `json:"fields"`
	Documents  []Document        `json:"documents"`
	AdminNotes *string           `json:"admin_notes,omitempty"`
	Reviewer   *string           `json:"reviewer,omitempty"`
	ReviewedAt *time.Time        `json:"reviewed_at,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Clone returns a deep copy so callers can hand out submissions without
// sharing the field map or document slice.
func (s *Submission) Clone() *Submission {
	if s == nil {
		return nil
	}
	out := *s
	out.Fields = make(map[string]string, len(s.Fields))
	for k, v := range s.Fields {
		out.Fields[k] = v
	}
	out.Documents = append([]Document(nil), s.Documents...)
	if s.AdminNotes != nil {
		notes := *s.AdminNotes
		out.AdminNotes = &notes
	}
	if s.Reviewer != nil {
		reviewer := *s.Reviewer
		out.Reviewer = &reviewer
	}
	if s.ReviewedAt != nil {
		at := *s.ReviewedAt
		out.ReviewedAt = &at
	}
	return &out
}

// HeldVariants returns the variants a user already holds. A rejected
// submission does not hold its variant.
func HeldVariants(subs []Submission) map[string]bool {
	held := make(map[string]bool, len(subs))
	for _, s := range subs {
		if s.Status != StatusRejected {
			held[s.Variant] = true
		}
	}
	return held
}
