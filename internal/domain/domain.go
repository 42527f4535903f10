package domain

import "strings"

// PresenceState is an agent's live availability as reported by the presence cloud.
type PresenceState string

const (
	PresenceOnline  PresenceState = "ONLINE"
	PresenceOffline PresenceState = "OFFLINE"
	PresenceBusy    PresenceState = "BUSY"
	PresenceAway    PresenceState = "AWAY"
	PresenceMeal    PresenceState = "MEAL"
	// PresenceOther covers system presences outside the enumerated set.
	PresenceOther PresenceState = "OTHER"
	// PresenceUnknown marks a ticket owner with no matching roster entry.
	PresenceUnknown PresenceState = "UNKNOWN"
)

// StateFromSystem maps a raw systemPresence value onto the enum. Values the
// enum does not know, including the empty string, collapse to PresenceOther.
func StateFromSystem(raw string) PresenceState {
	switch s := PresenceState(strings.ToUpper(strings.TrimSpace(raw))); s {
	case PresenceOnline, PresenceOffline, PresenceBusy, PresenceAway, PresenceMeal:
		return s
	default:
		return PresenceOther
	}
}

// Placeholder substitutes missing fields on raw ticket records.
const Placeholder = "N/A"

type AgentPresence struct {
	ID             string        `json:"id"`
	DisplayName    string        `json:"display_name"`
	NormalizedName string        `json:"normalized_name"`
	State          PresenceState `json:"state"`
}

type Ticket struct {
	TicketID      string `json:"ticket_id"`
	Customer      string `json:"customer"`
	Title         string `json:"title"`
	OwnerFullName string `json:"owner_full_name"`
	Status        string `json:"status"`
	Severity      string `json:"severity"`
}

// CorrelatedRow joins one ticket to its owner's live presence.
type CorrelatedRow struct {
	Ticket              Ticket        `json:"ticket"`
	OwnerNormalizedName string        `json:"owner_normalized_name"`
	OwnerPresence       PresenceState `json:"owner_presence"`
}

// ReportSnapshot is a persisted report run.
type ReportSnapshot struct {
	ID        string          `json:"id"`
	Queue     string          `json:"queue"`
	CreatedAt string          `json:"created_at" format:"date-time"`
	Rows      []CorrelatedRow `json:"rows,omitempty"`
}
