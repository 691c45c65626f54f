package collab

import (
	"context"
	"time"

	"tulisbareng/pkg/logger"
	"tulisbareng/pkg/metrics"
)

const (
	// DefaultReapInterval is how often the reaper sweeps.
	DefaultReapInterval = 60 * time.Second
	// DefaultIdleTimeout is how long a session or user may sit inactive
	// before the reaper discards it.
	DefaultIdleTimeout = 300 * time.Second
)

// Reaper periodically discards sessions and presence left behind by clients
// that disconnected without a clean close. It is the only mechanism that
// reclaims that state.
type Reaper struct {
	registry *SessionRegistry
	presence *PresenceStore
	metrics  *metrics.Metrics

	interval time.Duration
	timeout  time.Duration

	cancel context.CancelFunc
}

func NewReaper(registry *SessionRegistry, presence *PresenceStore, m *metrics.Metrics, interval, timeout time.Duration) *Reaper {
	if interval <= 0 {
		interval = DefaultReapInterval
	}
	if timeout <= 0 {
		timeout = DefaultIdleTimeout
	}
	return &Reaper{
		registry: registry,
		presence: presence,
		metrics:  m,
		interval: interval,
		timeout:  timeout,
	}
}

// Start launches the sweep loop. Stop cancels it.
func (r *Reaper) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	go r.run(ctx)
}

// Stop halts the sweep loop.
func (r *Reaper) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
}

func (r *Reaper) run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Sweep(time.Now())
		case <-ctx.Done():
			return
		}
	}
}

// Sweep runs one reap pass against the given current time.
func (r *Reaper) Sweep(now time.Time) {
	cutoff := now.Add(-r.timeout)
	docs, users := r.registry.ReapIdle(cutoff)

	for _, docID := range docs {
		r.presence.DropDocument(docID)
	}
	for _, u := range users {
		r.presence.RemoveUser(u.DocID, u.UserID)
	}

	if len(docs) > 0 || len(users) > 0 {
		r.metrics.SessionsReaped.Add(float64(len(docs)))
		r.metrics.UsersReaped.Add(float64(len(users)))
		logger.Sugar.Infof("Reaped %d idle session(s) and %d idle user(s)", len(docs), len(users))
	}
}
