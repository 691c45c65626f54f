package collab

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypingFreshness(t *testing.T) {
	store := NewPresenceStore()
	t0 := time.Now()
	now := t0
	store.now = func() time.Time { return now }

	store.StartTyping("doc1", "u1", "Ana", Position{3})

	// Visible inside the window, with no typing_stop ever sent.
	now = t0.Add(4 * time.Second)
	active := store.ActiveTyping("doc1")
	require.Len(t, active, 1)
	assert.Equal(t, "u1", active[0].UserID)

	// Invisible outside the window; the stale entry still lingers until
	// removed, and reads never mutate it.
	now = t0.Add(6 * time.Second)
	assert.Empty(t, store.ActiveTyping("doc1"))
	assert.Len(t, store.typing["doc1"], 1)
}

func TestTypingStartSupersedes(t *testing.T) {
	store := NewPresenceStore()
	store.StartTyping("doc1", "u1", "Ana", Position{1})
	store.StartTyping("doc1", "u1", "Ana", Position{9})

	active := store.ActiveTyping("doc1")
	require.Len(t, active, 1)
	assert.Equal(t, Position{9}, active[0].Position)
}

func TestSelectionReplacedNotAppended(t *testing.T) {
	store := NewPresenceStore()
	store.UpsertSelection("doc1", SelectionInfo{UserID: "u1", Start: Position{0}, End: Position{2}})
	store.UpsertSelection("doc1", SelectionInfo{UserID: "u1", Start: Position{5}, End: Position{8}})

	sels := store.Selections("doc1")
	require.Len(t, sels, 1)
	assert.Equal(t, Position{5}, sels[0].Start)

	store.ClearSelection("doc1", "u1")
	assert.Empty(t, store.Selections("doc1"))
}

func TestRemoveUserClearsAllPresence(t *testing.T) {
	store := NewPresenceStore()
	store.UpsertCursor("doc1", "u1", "Ana", "#E53935", Position{4})
	store.UpsertSelection("doc1", SelectionInfo{UserID: "u1", Start: Position{1}, End: Position{2}})
	store.StartTyping("doc1", "u1", "Ana", Position{4})

	store.UpsertCursor("doc1", "u2", "Ben", "#8E24AA", Position{7})

	store.RemoveUser("doc1", "u1")

	assert.Empty(t, store.ActiveTyping("doc1"))
	assert.Empty(t, store.Selections("doc1"))
	cursors := store.Cursors("doc1")
	require.Len(t, cursors, 1)
	assert.Equal(t, "u2", cursors[0].UserID)
}

func TestDropDocument(t *testing.T) {
	store := NewPresenceStore()
	store.UpsertCursor("doc1", "u1", "Ana", "#E53935", Position{4})
	store.StartTyping("doc1", "u1", "Ana", Position{4})
	store.UpsertCursor("doc2", "u1", "Ana", "#E53935", Position{0})

	store.DropDocument("doc1")

	assert.Empty(t, store.Cursors("doc1"))
	assert.Len(t, store.Cursors("doc2"), 1)
}
