// Package event defines message payloads exchanged over the message
// broker and the background consumer that records them.
package event

// Actions carried by TokenEvent.  One event is published per successful
// controller operation; recall publishes a single batch event.
const (
	ActionServing   = "SERVING"
	ActionCompleted = "COMPLETED"
	ActionSkipped   = "SKIPPED"
	ActionRecalled  = "RECALLED"
)

// TokenEvent is published on every token lifecycle change.  It carries
// enough information for downstream consumers (display boards, the
// notification subsystem, analytics) to act without querying the
// primary store.  RecalledCount is set only on RECALLED events, where
// TokenID and TokenNumber are zero because a recall moves a batch.
type TokenEvent struct {
	Action        string `json:"action"`
	TokenID       uint64 `json:"token_id,omitempty"`
	TokenNumber   int    `json:"token_number,omitempty"`
	BookingRef    uint64 `json:"booking_ref,omitempty"`
	DepartmentRef uint64 `json:"department_ref"`
	ServiceRef    uint64 `json:"service_ref"`
	Date          string `json:"date"`
	SlotTime      string `json:"slot_time,omitempty"`
	RecalledCount int    `json:"recalled_count,omitempty"`
	OccurredAt    string `json:"occurred_at"`
}
