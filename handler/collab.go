package handler

import (
	"encoding/json"
	"net/http"

	"tulisbareng/internal/collab"
	"tulisbareng/middleware"
	"tulisbareng/pkg/logger"
)

// CollabHandler exposes the read-and-ack query surface the editor polls:
// active users, typing indicators, selections and the caller's mention
// mailbox. All endpoints sit behind the auth middleware.
type CollabHandler struct {
	Registry *collab.SessionRegistry
	Presence *collab.PresenceStore
	Mailbox  *collab.MentionMailbox
}

func NewCollabHandler(registry *collab.SessionRegistry, presence *collab.PresenceStore, mailbox *collab.MentionMailbox) *CollabHandler {
	return &CollabHandler{Registry: registry, Presence: presence, Mailbox: mailbox}
}

func (h *CollabHandler) ActiveUsers(w http.ResponseWriter, r *http.Request) {
	docID, ok := requireDocID(w, r)
	if !ok {
		return
	}

	users := h.Registry.ActiveUsers(docID)
	if users == nil {
		users = []collab.ActiveUser{}
	}
	writeJSON(w, map[string]interface{}{"count": len(users), "users": users})
}

func (h *CollabHandler) Typing(w http.ResponseWriter, r *http.Request) {
	docID, ok := requireDocID(w, r)
	if !ok {
		return
	}

	typing := h.Presence.ActiveTyping(docID)
	if typing == nil {
		typing = []collab.TypingIndicator{}
	}
	writeJSON(w, map[string]interface{}{"typing": typing})
}

func (h *CollabHandler) Selections(w http.ResponseWriter, r *http.Request) {
	docID, ok := requireDocID(w, r)
	if !ok {
		return
	}

	selections := h.Presence.Selections(docID)
	if selections == nil {
		selections = []collab.SelectionInfo{}
	}
	writeJSON(w, map[string]interface{}{"selections": selections})
}

func (h *CollabHandler) Mentions(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	mentions := h.Mailbox.List(identity.UserID)
	if mentions == nil {
		mentions = []collab.MentionNotification{}
	}
	writeJSON(w, map[string]interface{}{"mentions": mentions})
}

func (h *CollabHandler) MarkMentionRead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req struct {
		MentionID string `json:"mention_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.MentionID == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.Mailbox.MarkRead(identity.UserID, req.MentionID); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *CollabHandler) ClearMentions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	h.Mailbox.ClearAll(identity.UserID)
	w.WriteHeader(http.StatusOK)
}

func requireDocID(w http.ResponseWriter, r *http.Request) (string, bool) {
	docID := r.URL.Query().Get("docId")
	if docID == "" {
		http.Error(w, "Missing docId", http.StatusBadRequest)
		return "", false
	}
	return docID, true
}

func requireIdentity(w http.ResponseWriter, r *http.Request) (middleware.Identity, bool) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return middleware.Identity{}, false
	}
	return identity, true
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Sugar.Errorf("Error encoding response: %v", err)
	}
}
