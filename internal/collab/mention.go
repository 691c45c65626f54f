package collab

import (
	"sync"
	"time"

	"github.com/rs/xid"
)

// MentionNotification is an asynchronous notification in a user's mailbox.
// Its lifetime is independent of any document session: it ends only on an
// explicit read-ack or a mailbox clear.
type MentionNotification struct {
	ID           string    `json:"id"`
	DocID        string    `json:"document_id"`
	FromUserID   string    `json:"from_user_id"`
	FromUserName string    `json:"from_user_name"`
	ToUserID     string    `json:"to_user_id"`
	Position     Position  `json:"position"`
	Message      string    `json:"message"`
	CreatedAt    time.Time `json:"created_at"`
	Read         bool      `json:"read"`
}

// MentionMailbox keeps a per-recipient queue of mention notifications.
// Mailboxes are created lazily on the first Notify and never auto-expire;
// retention policy belongs to whatever surfaces them to the client.
type MentionMailbox struct {
	mu        sync.RWMutex
	mailboxes map[string][]MentionNotification
}

func NewMentionMailbox() *MentionMailbox {
	return &MentionMailbox{mailboxes: make(map[string][]MentionNotification)}
}

// Notify appends a notification to the recipient's mailbox, assigning its id
// and creation time, and returns the stored value.
func (m *MentionMailbox) Notify(docID, fromUserID, fromUserName, toUserID, message string, pos Position) MentionNotification {
	n := MentionNotification{
		ID:           xid.New().String(),
		DocID:        docID,
		FromUserID:   fromUserID,
		FromUserName: fromUserName,
		ToUserID:     toUserID,
		Position:     pos,
		Message:      message,
		CreatedAt:    time.Now(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.mailboxes[toUserID] = append(m.mailboxes[toUserID], n)
	return n
}

// List returns the user's notifications in arrival order.
func (m *MentionMailbox) List(userID string) []MentionNotification {
	m.mu.RLock()
	defer m.mu.RUnlock()
	box := m.mailboxes[userID]
	out := make([]MentionNotification, len(box))
	copy(out, box)
	return out
}

// Unread returns the user's unread notifications in arrival order.
func (m *MentionMailbox) Unread(userID string) []MentionNotification {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []MentionNotification
	for _, n := range m.mailboxes[userID] {
		if !n.Read {
			out = append(out, n)
		}
	}
	return out
}

// MarkRead acknowledges one notification.
func (m *MentionMailbox) MarkRead(userID, mentionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	box := m.mailboxes[userID]
	for i := range box {
		if box[i].ID == mentionID {
			box[i].Read = true
			return nil
		}
	}
	return ErrMentionNotFound
}

// ClearAll deletes the user's mailbox.
func (m *MentionMailbox) ClearAll(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.mailboxes, userID)
}
