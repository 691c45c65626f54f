package collab

import (
	"sync"
	"time"
)

// typingWindow is how long a typing indicator counts as active. Expiry is
// computed at read time; stale entries linger invisibly until removed.
const typingWindow = 5 * time.Second

// TypingIndicator is one user's live typing state in one document.
type TypingIndicator struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Position    Position  `json:"position"`
	StartedAt   time.Time `json:"started_at"`
}

// SelectionInfo is one user's current selection in one document, carrying the
// identity fields a client needs to paint it.
type SelectionInfo struct {
	UserID      string   `json:"user_id"`
	DisplayName string   `json:"display_name"`
	Color       string   `json:"color"`
	Start       Position `json:"start"`
	End         Position `json:"end"`
}

// CursorInfo is one user's current cursor position in one document.
type CursorInfo struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Color       string    `json:"color"`
	Position    Position  `json:"position"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PresenceStore holds the ephemeral per-document, per-user state: cursors,
// selections and typing indicators. Each entry is owned by exactly one user,
// so all mutation is last-write-wins per field. Locks are held for single map
// operations only, never across I/O.
type PresenceStore struct {
	mu         sync.RWMutex
	cursors    map[string]map[string]CursorInfo
	selections map[string]map[string]SelectionInfo
	typing     map[string]map[string]TypingIndicator

	// now is swappable so tests can drive the typing freshness window.
	now func() time.Time
}

func NewPresenceStore() *PresenceStore {
	return &PresenceStore{
		cursors:    make(map[string]map[string]CursorInfo),
		selections: make(map[string]map[string]SelectionInfo),
		typing:     make(map[string]map[string]TypingIndicator),
		now:        time.Now,
	}
}

// UpsertCursor records the user's cursor position in the document.
func (s *PresenceStore) UpsertCursor(docID, userID, displayName, color string, pos Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursors[docID] == nil {
		s.cursors[docID] = make(map[string]CursorInfo)
	}
	s.cursors[docID][userID] = CursorInfo{
		UserID:      userID,
		DisplayName: displayName,
		Color:       color,
		Position:    pos,
		UpdatedAt:   s.now(),
	}
}

// UpsertSelection replaces the user's selection in the document.
func (s *PresenceStore) UpsertSelection(docID string, sel SelectionInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selections[docID] == nil {
		s.selections[docID] = make(map[string]SelectionInfo)
	}
	s.selections[docID][sel.UserID] = sel
}

// ClearSelection removes the user's selection in the document.
func (s *PresenceStore) ClearSelection(docID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sels, ok := s.selections[docID]; ok {
		delete(sels, userID)
	}
}

// StartTyping records (or supersedes) the user's typing indicator.
func (s *PresenceStore) StartTyping(docID, userID, displayName string, pos Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.typing[docID] == nil {
		s.typing[docID] = make(map[string]TypingIndicator)
	}
	s.typing[docID][userID] = TypingIndicator{
		UserID:      userID,
		DisplayName: displayName,
		Position:    pos,
		StartedAt:   s.now(),
	}
}

// StopTyping removes the user's typing indicator.
func (s *PresenceStore) StopTyping(docID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ind, ok := s.typing[docID]; ok {
		delete(ind, userID)
	}
}

// ActiveTyping returns the indicators still inside the freshness window.
// It never mutates state.
func (s *PresenceStore) ActiveTyping(docID string) []TypingIndicator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := s.now().Add(-typingWindow)
	var active []TypingIndicator
	for _, ind := range s.typing[docID] {
		if ind.StartedAt.After(cutoff) {
			active = append(active, ind)
		}
	}
	return active
}

// Selections returns the current selections in the document.
func (s *PresenceStore) Selections(docID string) []SelectionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []SelectionInfo
	for _, sel := range s.selections[docID] {
		out = append(out, sel)
	}
	return out
}

// Cursors returns the current cursor positions in the document.
func (s *PresenceStore) Cursors(docID string) []CursorInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []CursorInfo
	for _, cur := range s.cursors[docID] {
		out = append(out, cur)
	}
	return out
}

// RemoveUser clears the user's cursor, selection and typing entries in the
// document in one step. Used on leave and by the reaper.
func (s *PresenceStore) RemoveUser(docID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.cursors[docID]; ok {
		delete(cur, userID)
	}
	if sels, ok := s.selections[docID]; ok {
		delete(sels, userID)
	}
	if ind, ok := s.typing[docID]; ok {
		delete(ind, userID)
	}
}

// DropDocument discards all presence for a document. Used when the reaper
// removes an idle session.
func (s *PresenceStore) DropDocument(docID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cursors, docID)
	delete(s.selections, docID)
	delete(s.typing, docID)
}
