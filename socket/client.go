package socket

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/xid"

	"tulisbareng/internal/collab"
	"tulisbareng/internal/document/repository"
	"tulisbareng/middleware"
	"tulisbareng/pkg/logger"
	"tulisbareng/pkg/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CheckOrigin allows connections from the editor dev server.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const pingPeriod = 30 * time.Second

// Gateway binds inbound websocket connections to the collaboration services.
// One Gateway serves all documents; one Client serves one connection.
type Gateway struct {
	Registry *collab.SessionRegistry
	Presence *collab.PresenceStore
	Mailbox  *collab.MentionMailbox
	Docs     *repository.DocumentRepository
	Metrics  *metrics.Metrics
}

// Client is one user's live connection to one document.
type Client struct {
	gateway *Gateway
	conn    *websocket.Conn

	// connID keys echo suppression; the same user in two tabs still sees
	// the other tab's events.
	connID   string
	docID    string
	identity middleware.Identity
	color    string

	sub *collab.Subscription
}

// ServeWs admits an authenticated caller into a document session and runs
// the connection to completion.
func (g *Gateway) ServeWs(w http.ResponseWriter, r *http.Request, identity middleware.Identity) {
	docID := r.URL.Query().Get("docId")
	if docID == "" {
		http.Error(w, "Missing docId", http.StatusBadRequest)
		return
	}

	meta, err := g.Docs.GetMeta(docID)
	if err == sql.ErrNoRows {
		logger.Sugar.Warnf("Connection rejected: Document %s not found", docID)
		http.Error(w, "Document not found", http.StatusNotFound)
		return
	} else if err != nil {
		http.Error(w, "Failed to load document", http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Sugar.Error(err)
		return
	}

	client := &Client{
		gateway:  g,
		conn:     conn,
		connID:   xid.New().String(),
		docID:    docID,
		identity: identity,
	}
	client.run(meta.Title)
}

// run takes the connection through Connecting, Joined, Streaming and Left.
// Teardown happens exactly once, whichever pump halts first and however it
// halted.
func (c *Client) run(title string) {
	g := c.gateway
	g.Metrics.OpenConnections.Inc()
	defer g.Metrics.OpenConnections.Dec()

	session, sub := g.Registry.Join(c.docID, c.identity.UserID, c.identity.DisplayName, c.identity.AvatarURL)
	c.sub = sub

	var joined collab.ActiveUser
	for _, u := range session.ActiveUsers {
		if u.UserID == c.identity.UserID {
			joined = u
			break
		}
	}
	c.color = joined.Color

	// Initial state push: session roster and document title, written before
	// the pumps start so ordering is deterministic for the client.
	if err := c.writeSnapshot(session, title); err != nil {
		logger.Sugar.Infof("Client %s dropped during snapshot: %v", c.identity.UserID, err)
		c.conn.Close()
		c.teardown()
		return
	}

	g.Registry.Broadcast(c.docID, collab.Event{
		Type:      collab.EventUserJoined,
		DocID:     c.docID,
		UserID:    c.identity.UserID,
		UserName:  c.identity.DisplayName,
		UserColor: c.color,
		Timestamp: time.Now(),
		Origin:    c.connID,
		User:      &joined,
	})

	// Race the pumps; the first to finish ends the connection.
	errc := make(chan error, 2)
	go func() { errc <- c.readPump() }()
	go func() { errc <- c.writePump() }()

	if err := <-errc; err != nil && !errors.Is(err, errSubscriptionClosed) {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
			logger.Sugar.Infof("Connection %s ended: %v", c.connID, err)
		}
	}
	c.conn.Close()

	c.teardown()
}

var errSubscriptionClosed = errors.New("subscription closed")

// teardown removes the user from presence and the session registry, then
// fires a best-effort leave event. A send with no receivers is routine here.
func (c *Client) teardown() {
	g := c.gateway

	g.Presence.RemoveUser(c.docID, c.identity.UserID)
	g.Registry.Unsubscribe(c.docID, c.sub)
	g.Registry.Leave(c.docID, c.identity.UserID)

	g.Registry.Broadcast(c.docID, collab.Event{
		Type:      collab.EventUserLeft,
		DocID:     c.docID,
		UserID:    c.identity.UserID,
		UserName:  c.identity.DisplayName,
		UserColor: c.color,
		Timestamp: time.Now(),
		Origin:    c.connID,
	})
}

func (c *Client) writeSnapshot(session collab.Session, title string) error {
	sessionContent, err := json.Marshal(session)
	if err != nil {
		return err
	}
	if err := c.conn.WriteJSON(Message{
		Type:      TypeSession,
		DocID:     c.docID,
		UserID:    c.identity.UserID,
		UserName:  c.identity.DisplayName,
		UserColor: c.color,
		Content:   sessionContent,
		Timestamp: time.Now(),
	}); err != nil {
		return err
	}

	titleContent, _ := json.Marshal(map[string]string{"title": title})
	return c.conn.WriteJSON(Message{
		Type:      TypeMetadata,
		DocID:     c.docID,
		UserID:    c.identity.UserID,
		UserName:  c.identity.DisplayName,
		Content:   titleContent,
		Timestamp: time.Now(),
	})
}

// readPump parses client frames, stamps them with server-known identity,
// routes them to the stores, and re-publishes them on the channel. A
// malformed frame is dropped and logged; the connection stays up.
func (c *Client) readPump() error {
	g := c.gateway

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}

		in, err := decodeInbound(raw)
		if err != nil {
			g.Metrics.MessagesRejected.Inc()
			logger.Sugar.Infof("Dropping message from %s: %v", c.identity.UserID, err)
			continue
		}

		ev := collab.Event{
			DocID:     c.docID,
			UserID:    c.identity.UserID,
			UserName:  c.identity.DisplayName,
			UserColor: c.color,
			Timestamp: time.Now(),
			Origin:    c.connID,
		}

		switch in.Type {
		case TypeCursor:
			g.Presence.UpsertCursor(c.docID, c.identity.UserID, c.identity.DisplayName, c.color, in.Position)
			g.Registry.SetCursor(c.docID, c.identity.UserID, in.Position)
			ev.Type = collab.EventCursor
			ev.Cursor = in.Position

		case TypeTypingStart:
			g.Presence.StartTyping(c.docID, c.identity.UserID, c.identity.DisplayName, in.Position)
			g.Registry.Touch(c.docID, c.identity.UserID)
			ev.Type = collab.EventTypingStart
			ev.Cursor = in.Position

		case TypeTypingStop:
			g.Presence.StopTyping(c.docID, c.identity.UserID)
			g.Registry.Touch(c.docID, c.identity.UserID)
			ev.Type = collab.EventTypingStop

		case TypeSelection:
			g.Presence.UpsertSelection(c.docID, collab.SelectionInfo{
				UserID:      c.identity.UserID,
				DisplayName: c.identity.DisplayName,
				Color:       c.color,
				Start:       in.Selection.Start,
				End:         in.Selection.End,
			})
			g.Registry.SetSelection(c.docID, c.identity.UserID, in.Selection)
			ev.Type = collab.EventSelection
			ev.Selection = in.Selection

		case TypeMention:
			n := g.Mailbox.Notify(c.docID, c.identity.UserID, c.identity.DisplayName, in.Mention.ToUserID, in.Mention.Message, in.Position)
			g.Registry.Touch(c.docID, c.identity.UserID)
			ev.Type = collab.EventMention
			ev.Mention = &n

		case TypeEdit:
			op, rev := g.Registry.TransformEdit(c.docID, in.BaseRev, *in.Op)
			g.Registry.Touch(c.docID, c.identity.UserID)
			ev.Type = collab.EventEdit
			ev.Op = &op
			ev.Rev = rev
		}

		g.Registry.Broadcast(c.docID, ev)
	}
}

// writePump forwards broadcast events to the transport, suppressing this
// connection's own events, and keeps the connection alive with pings. When
// the subscriber buffer overflowed it tells the client how many events were
// lost so it can resync.
func (c *Client) writePump() error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev := <-c.sub.Events():
			if ev.Origin == c.connID {
				continue
			}

			if missed := c.sub.TakeMissed(); missed > 0 {
				resync, _ := encodeEvent(collab.Event{
					Type:      collab.EventResyncRequired,
					DocID:     c.docID,
					Timestamp: time.Now(),
					Missed:    missed,
				})
				if err := c.conn.WriteJSON(resync); err != nil {
					return err
				}
			}

			msg, err := encodeEvent(ev)
			if err != nil {
				logger.Sugar.Errorf("Error encoding %s event: %v", ev.Type, err)
				continue
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return err
			}

		case <-c.sub.Done():
			return errSubscriptionClosed

		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}
		}
	}
}
