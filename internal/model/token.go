package model

import "time"

// TokenStatus enumerates the lifecycle states of a service token.
// A token is created WAITING by the booking subsystem, moves to
// SERVING when an officer calls it, and ends COMPLETED or SKIPPED.
// SKIPPED tokens can be returned to WAITING by a recall.
type TokenStatus string

const (
	StatusWaiting   TokenStatus = "WAITING"
	StatusServing   TokenStatus = "SERVING"
	StatusCompleted TokenStatus = "COMPLETED"
	StatusSkipped   TokenStatus = "SKIPPED"
)

// Valid reports whether s is one of the four known statuses.
func (s TokenStatus) Valid() bool {
	switch s {
	case StatusWaiting, StatusServing, StatusCompleted, StatusSkipped:
		return true
	}
	return false
}

// PriorityType classifies a citizen for expedited ordering.  The three
// privileged classes share a single bucket above NONE; fine-grained
// ordering inside the bucket is carried by PriorityRank.
type PriorityType string

const (
	PriorityNone             PriorityType = "NONE"
	PrioritySeniorCitizen    PriorityType = "SENIOR_CITIZEN"
	PriorityPregnantWomen    PriorityType = "PREGNANT_WOMEN"
	PriorityDifferentlyAbled PriorityType = "DIFFERENTLY_ABLED"
)

// Valid reports whether p is a known priority class.
func (p PriorityType) Valid() bool {
	switch p {
	case PriorityNone, PrioritySeniorCitizen, PriorityPregnantWomen, PriorityDifferentlyAbled:
		return true
	}
	return false
}

// Privileged reports whether p grants expedited ordering over NONE.
func (p PriorityType) Privileged() bool {
	return p.Valid() && p != PriorityNone
}

// Token is one citizen's queue position for one booked slot.  Date is a
// calendar date in "2006-01-02" form and SlotTime a time-slot label
// within it; TokenNumber is unique within (department, date, slot).
// PriorityRank breaks ties inside a priority bucket (lower first) and
// CreatedAt is the immutable default tie-break after that.  CompletedAt
// is set exactly when Status becomes COMPLETED.
type Token struct {
	ID            uint64       `json:"id"`
	BookingRef    uint64       `json:"booking_ref"`
	DepartmentRef uint64       `json:"department_ref"`
	ServiceRef    uint64       `json:"service_ref"`
	Date          string       `json:"date"`
	SlotTime      string       `json:"slot_time"`
	TokenNumber   int          `json:"token_number"`
	PriorityType  PriorityType `json:"priority_type"`
	PriorityRank  int          `json:"priority_rank"`
	Status        TokenStatus  `json:"status"`
	CompletedAt   *time.Time   `json:"completed_at,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}
