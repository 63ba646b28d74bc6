package reconcile

import (
	"klaviyo-sync/core/utils"
)

// Record is one externally supplied customer record. All fields are optional.
type Record map[string]any

// String returns the value under key as a string, or "" when absent or null.
func (r Record) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	return utils.ToString(v)
}

// Has reports whether key is present with a non-null value.
func (r Record) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}

// List returns the value under key when it is a sequence.
func (r Record) List(key string) []any {
	v, _ := r[key].([]any)
	return v
}

// Key identifies the record in results and logs: its id, else its email.
func (r Record) Key() string {
	if id := r.String("id"); id != "" {
		return id
	}
	return r.String("email")
}

// State is a step of the per-record state machine.
type State string

const (
	StateNew       State = "NEW"
	StateSearching State = "SEARCHING"
	StateFound     State = "FOUND"
	StateNotFound  State = "NOT_FOUND"
	StateUpdating  State = "UPDATING"
	StateCreating  State = "CREATING"
	StateDone      State = "DONE"
	StateFailed    State = "FAILED"
)

// ActionType represents the type of profile write.
type ActionType string

const (
	// ActionCreate creates a new profile.
	ActionCreate ActionType = "create"
	// ActionUpdate patches an existing profile.
	ActionUpdate ActionType = "update"
)

// Action represents a planned profile write.
type Action struct {
	// Type specifies the write to perform.
	Type ActionType `json:"type"`

	// ProfileID is the matched profile for updates.
	ProfileID string `json:"profile_id,omitempty"`

	// Matches is how many profiles the search returned. Only the first is used.
	Matches int `json:"matches"`
}

// SubscribeStatus is the requested list membership.
type SubscribeStatus int

const (
	// SubscribeNone leaves list membership untouched.
	SubscribeNone SubscribeStatus = iota
	// Subscribe adds the profile to the list.
	Subscribe
	// Unsubscribe removes the profile from the list.
	Unsubscribe
)

// ParseSubscribeStatus maps the record's subscribe_status. Any value other
// than "unsubscribed" subscribes.
func ParseSubscribeStatus(v string) SubscribeStatus {
	switch v {
	case "":
		return SubscribeNone
	case "unsubscribed":
		return Unsubscribe
	default:
		return Subscribe
	}
}

func (s SubscribeStatus) String() string {
	switch s {
	case Subscribe:
		return "subscribe"
	case Unsubscribe:
		return "unsubscribe"
	default:
		return "none"
	}
}

// Result is the outcome of processing one record.
type Result struct {
	// RecordKey identifies the source record.
	RecordKey string `json:"record_key"`

	// ProfileID is the remote profile written, or matched in dry run.
	ProfileID string `json:"profile_id,omitempty"`

	// Action is the write performed or planned.
	Action ActionType `json:"action,omitempty"`

	// State is the final state, DONE or FAILED.
	State State `json:"state"`

	// Success is true when the profile write succeeded.
	Success bool `json:"success"`

	// DryRun is true when no writes were issued.
	DryRun bool `json:"dry_run,omitempty"`

	// Err is the failure that moved the record to FAILED.
	Err error `json:"-"`

	// SubscriptionErr is a failed list subscription. The profile write stands.
	SubscriptionErr error `json:"-"`
}

// Options controls engine behavior.
type Options struct {
	// DryRun searches and plans but issues no writes or subscription jobs.
	DryRun bool
}
