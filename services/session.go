package services

import (
	"context"
	"sync"

	"github.com/Cue77/medilink/models"
	"github.com/rs/zerolog"
)

// TransportState is the session's delivery-channel state. Exactly one
// transport is active in steady state; a brief overlap during hand-off is
// tolerated because delivery is at most once anyway.
type TransportState string

const (
	StateDisconnected TransportState = "disconnected"
	StateSubscribing  TransportState = "subscribing"
	StateLive         TransportState = "live"
	StateDegraded     TransportState = "degraded"
	StatePolling      TransportState = "polling"
)

// FeedSubscriber is the change-feed side of a session.
type FeedSubscriber interface {
	Subscribe(ctx context.Context, viewer models.Viewer, cb FeedCallbacks) (Subscription, error)
}

// FallbackPoller is the polling side of a session.
type FallbackPoller interface {
	Start(ctx context.Context) error
	Stop()
}

// PollerFactory builds the fallback poller wired to the session's event
// handlers. The poller is only constructed if the feed actually degrades.
type PollerFactory func(onMessage func(models.MessageEvent), onAppointment func(models.AppointmentEvent)) FallbackPoller

// Session owns one viewer's notification delivery: it subscribes to the
// change feed, classifies incoming events into notices, and switches to the
// polling fallback — once, and only once — when the feed degrades or errors.
// Close tears both channels down so nothing is classified afterwards.
type Session struct {
	viewer    models.Viewer
	feed      FeedSubscriber
	newPoller PollerFactory
	notifier  Notifier
	log       zerolog.Logger

	mu     sync.Mutex
	state  TransportState
	sub    Subscription
	poller FallbackPoller
	closed bool

	fallback sync.Once
}

func NewSession(viewer models.Viewer, feed FeedSubscriber, newPoller PollerFactory, notifier Notifier, log zerolog.Logger) *Session {
	return &Session{
		viewer:    viewer,
		feed:      feed,
		newPoller: newPoller,
		notifier:  notifier,
		log:       log.With().Str("component", "session").Str("user_id", viewer.ID).Logger(),
		state:     StateDisconnected,
	}
}

// Start attempts the feed first. A dial failure is not fatal: the session
// degrades straight to polling.
func (s *Session) Start(ctx context.Context) error {
	s.setState(StateSubscribing)
	sub, err := s.feed.Subscribe(ctx, s.viewer, FeedCallbacks{
		OnMessageInsert:     s.handleMessage,
		OnAppointmentUpdate: s.handleAppointment,
		OnStatus:            func(st FeedStatus) { s.handleFeedStatus(ctx, st) },
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("feed unavailable, falling back")
		s.activateFallback(ctx)
		return nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		sub.Close()
		return nil
	}
	s.sub = sub
	s.mu.Unlock()
	return nil
}

func (s *Session) handleFeedStatus(ctx context.Context, st FeedStatus) {
	if s.isClosed() {
		return
	}
	switch st {
	case FeedActive:
		s.setState(StateLive)
		s.log.Info().Msg("feed live")
		s.notifier.Notify(s.viewer.ID, models.Notice{Title: "Live Notifications Active", Category: models.CategoryStatus})
	case FeedDegraded, FeedErrored:
		s.setState(StateDegraded)
		s.activateFallback(ctx)
	}
}

// activateFallback starts the poller at most once per session lifetime.
func (s *Session) activateFallback(ctx context.Context) {
	s.fallback.Do(func() {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		poller := s.newPoller(s.handleMessage, s.handleAppointment)
		s.poller = poller
		s.mu.Unlock()

		if err := poller.Start(ctx); err != nil {
			s.log.Error().Err(err).Msg("fallback baseline failed")
			return
		}
		s.setState(StatePolling)
		s.log.Info().Msg("switched to polling")
		s.notifier.Notify(s.viewer.ID, models.Notice{Title: "Switched to Auto-Refresh Mode", Category: models.CategoryStatus})
	})
}

func (s *Session) handleMessage(ev models.MessageEvent) {
	if s.isClosed() {
		return
	}
	if n, ok := ClassifyMessage(s.viewer, ev); ok {
		s.notifier.Notify(s.viewer.ID, n)
	}
}

func (s *Session) handleAppointment(ev models.AppointmentEvent) {
	if s.isClosed() {
		return
	}
	if n, ok := ClassifyAppointment(s.viewer, ev); ok {
		s.notifier.Notify(s.viewer.ID, n)
	}
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// State reports the current transport state.
func (s *Session) State() TransportState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st TransportState) {
	s.mu.Lock()
	if !s.closed {
		s.state = st
	}
	s.mu.Unlock()
}

// Close stops the feed subscription and the poller synchronously. Once it
// returns, no further event reaches the classifier — late frames from either
// channel are dropped by the closed guard.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	sub := s.sub
	poller := s.poller
	s.state = StateDisconnected
	s.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
	if poller != nil {
		poller.Stop()
	}
}
