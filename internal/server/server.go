package server

import (
	"context"
	"log/slog"

	"github.com/groblegark/warmpath/internal/events"
	"github.com/groblegark/warmpath/internal/intro"
	"github.com/groblegark/warmpath/internal/notify"
	"github.com/groblegark/warmpath/internal/path"
	"github.com/groblegark/warmpath/internal/store"
)

// Server holds the HTTP surface and the domain services behind it.
type Server struct {
	store    store.Store
	finder   *path.Finder
	intros   *intro.Orchestrator
	notifier *notify.Notifier
	sseHub   *sseHub
	log      *slog.Logger
}

// NewServer returns a Server backed by the given store and publisher. Every
// event published through the notifier is also fanned out to connected SSE
// clients.
func NewServer(s store.Store, pub events.Publisher, log *slog.Logger) *Server {
	hub := newSSEHub()
	notifier := notify.New(&teePublisher{inner: pub, hub: hub}, log)
	return &Server{
		store:    s,
		finder:   path.NewFinder(s),
		intros:   intro.NewOrchestrator(s, notifier, log),
		notifier: notifier,
		sseHub:   hub,
		log:      log,
	}
}

// Notifier returns the server's notifier so background workers (the sweeper,
// the importer) share the SSE fan-out.
func (s *Server) Notifier() *notify.Notifier {
	return s.notifier
}

// teePublisher forwards events to the underlying publisher and mirrors them
// into the SSE hub.
type teePublisher struct {
	inner events.Publisher
	hub   *sseHub
}

func (t *teePublisher) Publish(ctx context.Context, topic string, event any) error {
	t.hub.broadcastEvent(topic, event)
	return t.inner.Publish(ctx, topic, event)
}

func (t *teePublisher) Close() error {
	return t.inner.Close()
}
