package model

// ApplicationStatus is the lifecycle state of a certification application.
// The lifecycle itself is owned elsewhere; only the mutable/immutable split matters here.
type ApplicationStatus string

const (
	StatusDraft       ApplicationStatus = "draft"
	StatusUnderReview ApplicationStatus = "under_review"
	StatusSubmitted   ApplicationStatus = "submitted"
	StatusApproved    ApplicationStatus = "approved"
	StatusRejected    ApplicationStatus = "rejected"
)

// Mutable reports whether documents may still be added to an application in this status.
func (s ApplicationStatus) Mutable() bool {
	return s == StatusDraft || s == StatusUnderReview
}

// ApplicationSnapshot is a read-only, point-in-time view of an application.
type ApplicationSnapshot struct {
	ID      string            `json:"id"`
	OwnerID string            `json:"owner_id"`
	Status  ApplicationStatus `json:"status"`
}
