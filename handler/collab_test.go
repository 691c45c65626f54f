package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tulisbareng/internal/collab"
	"tulisbareng/middleware"
	"tulisbareng/pkg/logger"
	"tulisbareng/pkg/metrics"
)

func TestMain(m *testing.M) {
	logger.InitNop()
	os.Exit(m.Run())
}

func newTestHandler() *CollabHandler {
	return NewCollabHandler(
		collab.NewSessionRegistry(metrics.New()),
		collab.NewPresenceStore(),
		collab.NewMentionMailbox(),
	)
}

func authedRequest(method, target, body, userID string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	ctx := context.WithValue(req.Context(), middleware.IdentityKey, middleware.Identity{UserID: userID, DisplayName: "Test"})
	return req.WithContext(ctx)
}

func TestActiveUsersEmptyForUnknownDocument(t *testing.T) {
	h := newTestHandler()

	rec := httptest.NewRecorder()
	h.ActiveUsers(rec, authedRequest(http.MethodGet, "/api/collab/users?docId=ghost", "", "u1"))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Count int                 `json:"count"`
		Users []collab.ActiveUser `json:"users"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Zero(t, resp.Count)
	assert.Empty(t, resp.Users)
}

func TestActiveUsersRequiresDocID(t *testing.T) {
	h := newTestHandler()

	rec := httptest.NewRecorder()
	h.ActiveUsers(rec, authedRequest(http.MethodGet, "/api/collab/users", "", "u1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMentionLifecycleOverHTTP(t *testing.T) {
	h := newTestHandler()
	n := h.Mailbox.Notify("doc1", "u2", "Ben", "u1", "check this", collab.Position{3})

	rec := httptest.NewRecorder()
	h.Mentions(rec, authedRequest(http.MethodGet, "/api/collab/mentions", "", "u1"))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Mentions []collab.MentionNotification `json:"mentions"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Mentions, 1)
	assert.False(t, resp.Mentions[0].Read)

	rec = httptest.NewRecorder()
	h.MarkMentionRead(rec, authedRequest(http.MethodPost, "/api/collab/mentions/read", `{"mention_id":"`+n.ID+`"}`, "u1"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, h.Mailbox.Unread("u1"))

	rec = httptest.NewRecorder()
	h.MarkMentionRead(rec, authedRequest(http.MethodPost, "/api/collab/mentions/read", `{"mention_id":"nope"}`, "u1"))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ClearMentions(rec, authedRequest(http.MethodPost, "/api/collab/mentions/clear", "", "u1"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, h.Mailbox.List("u1"))
}

func TestTypingAndSelectionsQueries(t *testing.T) {
	h := newTestHandler()
	h.Presence.StartTyping("doc1", "u1", "Ana", collab.Position{2})
	h.Presence.UpsertSelection("doc1", collab.SelectionInfo{
		UserID: "u1", DisplayName: "Ana", Color: "#E53935",
		Start: collab.Position{0}, End: collab.Position{4},
	})

	rec := httptest.NewRecorder()
	h.Typing(rec, authedRequest(http.MethodGet, "/api/collab/typing?docId=doc1", "", "u2"))
	require.Equal(t, http.StatusOK, rec.Code)
	var typing struct {
		Typing []collab.TypingIndicator `json:"typing"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&typing))
	assert.Len(t, typing.Typing, 1)

	rec = httptest.NewRecorder()
	h.Selections(rec, authedRequest(http.MethodGet, "/api/collab/selections?docId=doc1", "", "u2"))
	require.Equal(t, http.StatusOK, rec.Code)
	var sels struct {
		Selections []collab.SelectionInfo `json:"selections"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&sels))
	require.Len(t, sels.Selections, 1)
	assert.Equal(t, collab.Position{0}, sels.Selections[0].Start)
}
