package syncer

import (
	"time"

	"github.com/teemow/groupcal/internal/calendar"
)

// State is the controller's loading state.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Messages shown when an operation fails without a usable error text.
const (
	MsgNoSession  = "No active account! Please sign in."
	MsgPermission = "Could not verify your permissions."
	MsgFetch      = "Failed to fetch calendar events."
	MsgSave       = "Failed to save the event."
	MsgDelete     = "Failed to delete the event."
)

// Snapshot is a copy of the controller state.
type Snapshot struct {
	State    State
	Events   []calendar.Event
	Window   calendar.Window
	Error    string
	Elevated bool

	// Editing is the event open in the editor, or nil.
	Editing *calendar.Event

	// LoadedAt is when the event collection was last replaced.
	LoadedAt time.Time
}

// EditorOpen reports whether an event is being edited.
func (s Snapshot) EditorOpen() bool {
	return s.Editing != nil
}
