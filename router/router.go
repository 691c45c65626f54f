package router

import (
	"database/sql"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tulisbareng/handler"
	"tulisbareng/internal/collab"
	"tulisbareng/internal/document/repository"
	"tulisbareng/middleware"
	"tulisbareng/pkg/metrics"
	"tulisbareng/socket"
)

// Services bundles the explicitly constructed collaboration services the
// router wires together. They are created once in main and injected here;
// nothing in the tree reaches for a package-level instance.
type Services struct {
	Registry *collab.SessionRegistry
	Presence *collab.PresenceStore
	Mailbox  *collab.MentionMailbox
	Metrics  *metrics.Metrics
}

func Setup(db *sql.DB, svc Services) http.Handler {
	mux := http.NewServeMux()

	gateway := &socket.Gateway{
		Registry: svc.Registry,
		Presence: svc.Presence,
		Mailbox:  svc.Mailbox,
		Docs:     repository.NewDocumentRepository(db),
		Metrics:  svc.Metrics,
	}

	// WebSocket
	wsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := middleware.IdentityFrom(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		gateway.ServeWs(w, r, identity)
	})
	mux.Handle("/ws", middleware.AuthMiddleware(wsHandler))

	// Query surface
	collabHandler := handler.NewCollabHandler(svc.Registry, svc.Presence, svc.Mailbox)
	auth := middleware.AuthMiddleware

	mux.Handle("/api/collab/users", auth(http.HandlerFunc(collabHandler.ActiveUsers)))
	mux.Handle("/api/collab/typing", auth(http.HandlerFunc(collabHandler.Typing)))
	mux.Handle("/api/collab/selections", auth(http.HandlerFunc(collabHandler.Selections)))
	mux.Handle("/api/collab/mentions", auth(http.HandlerFunc(collabHandler.Mentions)))
	mux.Handle("/api/collab/mentions/read", auth(http.HandlerFunc(collabHandler.MarkMentionRead)))
	mux.Handle("/api/collab/mentions/clear", auth(http.HandlerFunc(collabHandler.ClearMentions)))

	mux.Handle("/metrics", promhttp.HandlerFor(svc.Metrics.Registry(), promhttp.HandlerOpts{}))

	return middleware.CORSMiddleware(mux)
}
