package socket

import (
	"encoding/json"
	"fmt"
	"time"

	"tulisbareng/internal/collab"
)

// Wire msg_type values. join, leave, session, metadata and resync_required
// are server-generated; a client sending them gets the message dropped.
const (
	TypeJoin        = "join"
	TypeLeave       = "leave"
	TypeCursor      = "cursor"
	TypeTypingStart = "typing_start"
	TypeTypingStop  = "typing_stop"
	TypeSelection   = "selection"
	TypeMention     = "mention"
	TypeEdit        = "edit"
	TypeSession     = "session"
	TypeMetadata    = "metadata"
	TypeResync      = "resync_required"
)

// Message is the wire envelope. Identity fields are always overwritten with
// server-known values before anything else reads them.
type Message struct {
	Type      string          `json:"msg_type"`
	DocID     string          `json:"doc_id"`
	UserID    string          `json:"user_id"`
	UserName  string          `json:"user_name"`
	UserColor string          `json:"user_color,omitempty"`
	Position  collab.Position `json:"position,omitempty"`
	Length    int             `json:"length,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	Format    string          `json:"format,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Missed    int             `json:"missed,omitempty"`
}

// selectionContent is the content payload of a selection message.
type selectionContent struct {
	Start collab.Position `json:"start"`
	End   collab.Position `json:"end"`
}

// mentionContent is the content payload of a mention message.
type mentionContent struct {
	ToUserID string `json:"to_user_id"`
	Message  string `json:"message"`
}

// editContent is the content payload of an edit message: the operation plus
// revision bookkeeping. Clients send base_rev, the highest edit revision
// they had applied; the server stamps rev on the rebroadcast.
type editContent struct {
	collab.Operation
	BaseRev int `json:"base_rev,omitempty"`
	Rev     int `json:"rev,omitempty"`
}

// inbound is a client message decoded into its typed payload. Exactly one
// payload field matching Type is set. Decoding happens once, here; the
// routing code never re-parses JSON.
type inbound struct {
	Type      string
	Position  collab.Position
	Selection *collab.Selection
	Mention   *mentionContent
	Op        *collab.Operation
	BaseRev   int
}

// decodeInbound parses and validates a raw client frame. Any failure is
// ErrMalformedMessage: the frame is dropped, the connection stays up.
func decodeInbound(raw []byte) (inbound, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return inbound{}, fmt.Errorf("%w: %v", collab.ErrMalformedMessage, err)
	}

	in := inbound{Type: msg.Type}

	switch msg.Type {
	case TypeCursor:
		if len(msg.Position) == 0 {
			return inbound{}, fmt.Errorf("%w: cursor without position", collab.ErrMalformedMessage)
		}
		in.Position = msg.Position

	case TypeTypingStart:
		if len(msg.Position) == 0 {
			return inbound{}, fmt.Errorf("%w: typing_start without position", collab.ErrMalformedMessage)
		}
		in.Position = msg.Position

	case TypeTypingStop:
		// No payload.

	case TypeSelection:
		var sel selectionContent
		if err := json.Unmarshal(msg.Content, &sel); err != nil {
			return inbound{}, fmt.Errorf("%w: selection content: %v", collab.ErrMalformedMessage, err)
		}
		if len(sel.Start) == 0 || len(sel.End) == 0 {
			return inbound{}, fmt.Errorf("%w: selection without range", collab.ErrMalformedMessage)
		}
		in.Selection = &collab.Selection{Start: sel.Start, End: sel.End}

	case TypeMention:
		var mention mentionContent
		if err := json.Unmarshal(msg.Content, &mention); err != nil {
			return inbound{}, fmt.Errorf("%w: mention content: %v", collab.ErrMalformedMessage, err)
		}
		if mention.ToUserID == "" || mention.Message == "" {
			return inbound{}, fmt.Errorf("%w: mention without recipient or message", collab.ErrMalformedMessage)
		}
		in.Mention = &mention
		in.Position = msg.Position

	case TypeEdit:
		var edit editContent
		if err := json.Unmarshal(msg.Content, &edit); err != nil {
			return inbound{}, fmt.Errorf("%w: edit content: %v", collab.ErrMalformedMessage, err)
		}
		if len(edit.Path) == 0 {
			// The envelope position doubles as the path for flat edits.
			edit.Path = msg.Position
		}
		if len(edit.Path) == 0 {
			return inbound{}, fmt.Errorf("%w: edit without path", collab.ErrMalformedMessage)
		}
		switch edit.Operation.Type {
		case collab.OpInsert, collab.OpDelete, collab.OpReplace, collab.OpMove:
		default:
			return inbound{}, fmt.Errorf("%w: unknown op_type %q", collab.ErrMalformedMessage, edit.Operation.Type)
		}
		op := edit.Operation
		in.Op = &op
		in.BaseRev = edit.BaseRev

	default:
		// Covers join/leave (server-generated only) and unknown types.
		return inbound{}, fmt.Errorf("%w: client may not send %q", collab.ErrMalformedMessage, msg.Type)
	}

	return in, nil
}

// encodeEvent converts a broadcast event into its wire envelope.
func encodeEvent(ev collab.Event) (Message, error) {
	msg := Message{
		Type:      string(ev.Type),
		DocID:     ev.DocID,
		UserID:    ev.UserID,
		UserName:  ev.UserName,
		UserColor: ev.UserColor,
		Timestamp: ev.Timestamp,
	}

	switch ev.Type {
	case collab.EventUserJoined:
		content, err := json.Marshal(ev.User)
		if err != nil {
			return Message{}, err
		}
		msg.Content = content

	case collab.EventUserLeft, collab.EventTypingStop:
		// No payload.

	case collab.EventCursor, collab.EventTypingStart:
		msg.Position = ev.Cursor

	case collab.EventSelection:
		content, err := json.Marshal(selectionContent{Start: ev.Selection.Start, End: ev.Selection.End})
		if err != nil {
			return Message{}, err
		}
		msg.Content = content

	case collab.EventMention:
		content, err := json.Marshal(ev.Mention)
		if err != nil {
			return Message{}, err
		}
		msg.Content = content
		msg.Position = ev.Mention.Position

	case collab.EventEdit:
		content, err := json.Marshal(editContent{Operation: *ev.Op, Rev: ev.Rev})
		if err != nil {
			return Message{}, err
		}
		msg.Content = content
		msg.Position = ev.Op.Path

	case collab.EventResyncRequired:
		msg.Missed = ev.Missed
	}

	return msg, nil
}
