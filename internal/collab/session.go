package collab

import (
	"sync"
	"time"

	"github.com/rs/xid"

	"tulisbareng/pkg/logger"
	"tulisbareng/pkg/metrics"
)

// userColors is the palette assigned to joining users, first free color
// wins. Above ten concurrent users colors repeat; accepted tradeoff.
var userColors = []string{
	"#E53935", "#8E24AA", "#3949AB", "#039BE5", "#00ACC1",
	"#43A047", "#7CB342", "#FDD835", "#FB8C00", "#6D4C41",
}

// ActiveUser is one user's membership record in one document session.
type ActiveUser struct {
	UserID      string     `json:"user_id"`
	DisplayName string     `json:"display_name"`
	AvatarURL   string     `json:"avatar_url,omitempty"`
	Color       string     `json:"color"`
	Cursor      *Position  `json:"cursor,omitempty"`
	Selection   *Selection `json:"selection,omitempty"`
	JoinedAt    time.Time  `json:"joined_at"`
	LastSeen    time.Time  `json:"last_seen"`
}

// Session is a snapshot of one document's collaboration session.
type Session struct {
	ID           string       `json:"id"`
	DocID        string       `json:"document_id"`
	ActiveUsers  []ActiveUser `json:"active_users"`
	CreatedAt    time.Time    `json:"created_at"`
	LastActivity time.Time    `json:"last_activity"`
}

type sessionState struct {
	id           string
	docID        string
	users        map[string]*ActiveUser
	createdAt    time.Time
	lastActivity time.Time
	channel      *broadcaster
	rev          int
	editLog      []revisionedEdit
}

// revisionedEdit is one broadcast edit tagged with the session revision it
// produced. The log is the window inbound edits can be transformed against.
type revisionedEdit struct {
	rev int
	op  Operation
}

// editLogLimit bounds the per-session edit log. A client whose base revision
// has already scrolled out is far enough behind that it resyncs anyway.
const editLogLimit = 128

func (s *sessionState) snapshot() Session {
	snap := Session{
		ID:           s.id,
		DocID:        s.docID,
		ActiveUsers:  make([]ActiveUser, 0, len(s.users)),
		CreatedAt:    s.createdAt,
		LastActivity: s.lastActivity,
	}
	for _, u := range s.users {
		snap.ActiveUsers = append(snap.ActiveUsers, *u)
	}
	return snap
}

// SessionRegistry owns the per-document collaboration sessions and their
// broadcast channels. It is constructed once at startup and injected where
// needed; there is no package-level instance.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*sessionState
	metrics  *metrics.Metrics

	now func() time.Time
}

func NewSessionRegistry(m *metrics.Metrics) *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*sessionState),
		metrics:  m,
		now:      time.Now,
	}
}

// Join adds the user to the document's session, creating the session and its
// broadcast channel on first use, and returns a session snapshot plus a
// subscription on the channel. Joining while already present does not
// duplicate the ActiveUser record; it refreshes LastSeen.
func (r *SessionRegistry) Join(docID, userID, displayName, avatarURL string) (Session, *Subscription) {
	now := r.now()

	r.mu.Lock()
	state, ok := r.sessions[docID]
	if !ok {
		state = &sessionState{
			id:           xid.New().String(),
			docID:        docID,
			users:        make(map[string]*ActiveUser),
			createdAt:    now,
			lastActivity: now,
			channel:      newBroadcaster(),
		}
		r.sessions[docID] = state
		r.metrics.ActiveSessions.Inc()
	}

	if existing, ok := state.users[userID]; ok {
		existing.LastSeen = now
	} else {
		state.users[userID] = &ActiveUser{
			UserID:      userID,
			DisplayName: displayName,
			AvatarURL:   avatarURL,
			Color:       r.assignColor(state),
			JoinedAt:    now,
			LastSeen:    now,
		}
	}
	state.lastActivity = now

	snap := state.snapshot()
	sub := state.channel.subscribe()
	r.mu.Unlock()

	return snap, sub
}

// Unsubscribe detaches a subscription from the document's channel without
// touching membership. The gateway calls it once per connection.
func (r *SessionRegistry) Unsubscribe(docID string, sub *Subscription) {
	r.mu.RLock()
	state, ok := r.sessions[docID]
	r.mu.RUnlock()
	if ok {
		state.channel.unsubscribe(sub.ID())
	}
}

// Leave removes the user's ActiveUser record. When the last user leaves, the
// session and its broadcast channel are deleted; the next Join recreates
// them from scratch.
func (r *SessionRegistry) Leave(docID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.sessions[docID]
	if !ok {
		return
	}
	delete(state.users, userID)
	state.lastActivity = r.now()
	if len(state.users) == 0 {
		state.channel.closeAll()
		delete(r.sessions, docID)
		r.metrics.ActiveSessions.Dec()
		logger.Sugar.Infof("Closed empty session for document %s", docID)
	}
}

// Broadcast publishes the event to every subscriber of the document. A send
// with no session or no live receivers is not an error; the final leave event
// after the last unsubscribe lands here routinely.
func (r *SessionRegistry) Broadcast(docID string, ev Event) {
	r.mu.Lock()
	state, ok := r.sessions[docID]
	if ok {
		state.lastActivity = r.now()
	}
	r.mu.Unlock()

	if !ok {
		logger.Sugar.Debugf("Broadcast to document %s with no session, dropping %s event", docID, ev.Type)
		return
	}

	_, dropped := state.channel.publish(ev)
	r.metrics.EventsPublished.Inc()
	if dropped > 0 {
		r.metrics.EventsDropped.Add(float64(dropped))
		logger.Sugar.Warnf("Dropped %s event for %d slow subscriber(s) on document %s", ev.Type, dropped, docID)
	}
}

// Touch refreshes the user's LastSeen and the session's LastActivity.
func (r *SessionRegistry) Touch(docID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.sessions[docID]
	if !ok {
		return
	}
	now := r.now()
	state.lastActivity = now
	if u, ok := state.users[userID]; ok {
		u.LastSeen = now
	}
}

// SetCursor mirrors the user's cursor onto their ActiveUser record.
func (r *SessionRegistry) SetCursor(docID, userID string, pos Position) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.sessions[docID]
	if !ok {
		return
	}
	now := r.now()
	state.lastActivity = now
	if u, ok := state.users[userID]; ok {
		p := pos.clone()
		u.Cursor = &p
		u.LastSeen = now
	}
}

// SetSelection mirrors the user's selection onto their ActiveUser record;
// nil clears it.
func (r *SessionRegistry) SetSelection(docID, userID string, sel *Selection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.sessions[docID]
	if !ok {
		return
	}
	now := r.now()
	state.lastActivity = now
	if u, ok := state.users[userID]; ok {
		u.Selection = sel
		u.LastSeen = now
	}
}

// TransformEdit rewrites an inbound edit against every edit broadcast after
// the revision the sender based it on, then logs it under the next revision
// and returns both. baseRev is the highest edit revision the sender had
// applied when it produced the op; an edit based on the current head passes
// through untouched. Revisions older than the retained log are transformed
// against what remains.
func (r *SessionRegistry) TransformEdit(docID string, baseRev int, op Operation) (Operation, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.sessions[docID]
	if !ok {
		return op, 0
	}
	for _, past := range state.editLog {
		if past.rev > baseRev {
			_, op = Transform(past.op, op)
		}
	}
	state.rev++
	state.editLog = append(state.editLog, revisionedEdit{rev: state.rev, op: op})
	if len(state.editLog) > editLogLimit {
		state.editLog = state.editLog[len(state.editLog)-editLogLimit:]
	}
	return op, state.rev
}

// SessionFor returns a snapshot of the document's session.
func (r *SessionRegistry) SessionFor(docID string) (Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.sessions[docID]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return state.snapshot(), nil
}

// ActiveUsers returns the document's active users; empty when there is no
// session.
func (r *SessionRegistry) ActiveUsers(docID string) []ActiveUser {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.sessions[docID]
	if !ok {
		return nil
	}
	out := make([]ActiveUser, 0, len(state.users))
	for _, u := range state.users {
		out = append(out, *u)
	}
	return out
}

// UserColor returns the color assigned to the user in the document.
func (r *SessionRegistry) UserColor(docID, userID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.sessions[docID]
	if !ok {
		return "", ErrSessionNotFound
	}
	u, ok := state.users[userID]
	if !ok {
		return "", ErrUserNotInSession
	}
	return u.Color, nil
}

// ReapedUser identifies a user removed from a surviving session by ReapIdle.
type ReapedUser struct {
	DocID  string
	UserID string
}

// ReapIdle drops sessions whose last activity precedes the cutoff, along with
// their broadcast channels, then drops idle users inside surviving sessions.
// It returns what was removed so the caller can clear presence to match.
func (r *SessionRegistry) ReapIdle(cutoff time.Time) (docs []string, users []ReapedUser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for docID, state := range r.sessions {
		if state.lastActivity.Before(cutoff) {
			state.channel.closeAll()
			delete(r.sessions, docID)
			r.metrics.ActiveSessions.Dec()
			docs = append(docs, docID)
		}
	}

	for docID, state := range r.sessions {
		for userID, u := range state.users {
			if u.LastSeen.Before(cutoff) {
				delete(state.users, userID)
				users = append(users, ReapedUser{DocID: docID, UserID: userID})
			}
		}
	}
	return docs, users
}

func (r *SessionRegistry) assignColor(state *sessionState) string {
	used := make(map[string]bool, len(state.users))
	for _, u := range state.users {
		used[u.Color] = true
	}
	for _, c := range userColors {
		if !used[c] {
			return c
		}
	}
	return userColors[0]
}
