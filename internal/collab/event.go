package collab

import "time"

// EventType classifies a collaboration event.
type EventType string

const (
	EventUserJoined     EventType = "join"
	EventUserLeft       EventType = "leave"
	EventCursor         EventType = "cursor"
	EventTypingStart    EventType = "typing_start"
	EventTypingStop     EventType = "typing_stop"
	EventSelection      EventType = "selection"
	EventMention        EventType = "mention"
	EventEdit           EventType = "edit"
	EventResyncRequired EventType = "resync_required"
)

// Event is a broadcast item on a document's channel. Exactly one of the
// payload fields below the identity block is set, matching Type; the payload
// is decoded once at the protocol boundary, never re-parsed downstream.
type Event struct {
	Type      EventType
	DocID     string
	UserID    string
	UserName  string
	UserColor string
	Timestamp time.Time

	// Origin is the id of the connection that published the event, used for
	// echo suppression. It never leaves the process.
	Origin string

	User      *ActiveUser
	Cursor    Position
	Selection *Selection
	Mention   *MentionNotification
	Op        *Operation

	// Rev is set on edit events: the session revision assigned to Op.
	// Clients echo it back as base_rev on their next edit.
	Rev int

	// Missed is set on resync_required events: how many events the
	// subscriber lost to a full buffer.
	Missed int
}

// Selection is a contiguous range between two document positions.
type Selection struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}
