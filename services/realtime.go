package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Cue77/medilink/config"
	"github.com/Cue77/medilink/models"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// FeedStatus is the connection state reported through OnStatus. The client
// itself never reconnects; recovery policy belongs to the caller.
type FeedStatus string

const (
	FeedActive   FeedStatus = "active"
	FeedDegraded FeedStatus = "degraded"
	FeedErrored  FeedStatus = "errored"
)

// FeedCallbacks receives raw change events in feed order, plus status
// transitions. Events are forwarded verbatim; no buffering or reordering.
type FeedCallbacks struct {
	OnMessageInsert     func(models.MessageEvent)
	OnAppointmentUpdate func(models.AppointmentEvent)
	OnStatus            func(FeedStatus)
}

// Subscription is an active feed handle. Close tears the socket down and
// waits for the reader to exit, so no callback fires afterwards.
type Subscription interface {
	Close()
}

// feedConn abstracts the websocket for tests.
type feedConn interface {
	ReadMessage() (int, []byte, error)
	WriteJSON(v interface{}) error
	SetReadDeadline(t time.Time) error
	Close() error
}

// FeedClient subscribes to the store's row-change channel: message inserts
// plus appointment updates scoped to the viewer. Thin by design — join,
// heartbeat, decode, dispatch.
type FeedClient struct {
	cfg  *config.Config
	log  zerolog.Logger
	dial func(ctx context.Context) (feedConn, error)
}

func NewFeedClient(cfg *config.Config, log zerolog.Logger) *FeedClient {
	c := &FeedClient{
		cfg: cfg,
		log: log.With().Str("component", "feed").Logger(),
	}
	c.dial = c.dialWebsocket
	return c
}

func (c *FeedClient) dialWebsocket(ctx context.Context) (feedConn, error) {
	base := strings.Replace(c.cfg.SupabaseURL, "http", "ws", 1)
	url := fmt.Sprintf("%s/realtime/v1/websocket?apikey=%s&vsn=1.0.0", base, c.cfg.SupabaseAnonKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// phoenixMessage is the realtime channel envelope.
type phoenixMessage struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref"`
}

type changePayload struct {
	Data struct {
		Type      string          `json:"type"`
		Table     string          `json:"table"`
		Record    json.RawMessage `json:"record"`
		OldRecord json.RawMessage `json:"old_record"`
	} `json:"data"`
}

type feedSubscription struct {
	conn   feedConn
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (s *feedSubscription) Close() {
	s.once.Do(func() {
		s.cancel()
		s.conn.Close()
		<-s.done
	})
}

// Subscribe opens the socket, joins a channel configured for message inserts
// and the viewer's appointment updates, and dispatches events until the
// context ends or the socket drops. Status transitions: FeedActive on join
// ack, FeedDegraded on read timeout, FeedErrored on any other failure.
func (c *FeedClient) Subscribe(ctx context.Context, viewer models.Viewer, cb FeedCallbacks) (Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	conn, err := c.dial(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("dial realtime: %w", err)
	}

	topic := "realtime:global-notifications"
	join := map[string]interface{}{
		"topic": topic,
		"event": "phx_join",
		"ref":   "1",
		"payload": map[string]interface{}{
			"config": map[string]interface{}{
				"postgres_changes": []map[string]string{
					{"event": "INSERT", "schema": "public", "table": "messages"},
					{"event": "UPDATE", "schema": "public", "table": "appointments",
						"filter": fmt.Sprintf("user_id=eq.%s", viewer.ID)},
				},
			},
		},
	}
	if err := conn.WriteJSON(join); err != nil {
		cancel()
		conn.Close()
		return nil, fmt.Errorf("join realtime channel: %w", err)
	}

	sub := &feedSubscription{conn: conn, cancel: cancel, done: make(chan struct{})}

	go c.heartbeat(ctx, conn)
	go c.read(ctx, conn, cb, sub.done)

	return sub, nil
}

func (c *FeedClient) heartbeat(ctx context.Context, conn feedConn) {
	ticker := time.NewTicker(c.cfg.FeedHeartbeat)
	defer ticker.Stop()
	ref := 2
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hb := map[string]interface{}{
				"topic":   "phoenix",
				"event":   "heartbeat",
				"payload": map[string]interface{}{},
				"ref":     strconv.Itoa(ref),
			}
			ref++
			if err := conn.WriteJSON(hb); err != nil {
				// The reader will observe the broken socket and report status.
				return
			}
		}
	}
}

func (c *FeedClient) read(ctx context.Context, conn feedConn, cb FeedCallbacks, done chan struct{}) {
	defer close(done)
	joined := false
	for {
		// Until the join is acked the only frame we are owed is the ack itself,
		// so a tighter deadline applies.
		deadline := 2 * c.cfg.FeedHeartbeat
		if !joined && c.cfg.FeedJoinTimeout > 0 {
			deadline = c.cfg.FeedJoinTimeout
		}
		conn.SetReadDeadline(time.Now().Add(deadline))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				// Caller tore the session down; not a transport failure.
				return
			}
			status := FeedErrored
			if ne, ok := err.(interface{ Timeout() bool }); ok && ne.Timeout() {
				status = FeedDegraded
			}
			c.log.Warn().Err(err).Str("status", string(status)).Msg("feed closed")
			if cb.OnStatus != nil {
				cb.OnStatus(status)
			}
			return
		}

		var msg phoenixMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Warn().Err(err).Msg("undecodable feed frame")
			continue
		}

		switch msg.Event {
		case "phx_reply":
			if !joined && msg.Ref == "1" {
				joined = true
				if cb.OnStatus != nil {
					cb.OnStatus(FeedActive)
				}
			}
		case "phx_error", "phx_close":
			if cb.OnStatus != nil {
				cb.OnStatus(FeedErrored)
			}
			return
		case "postgres_changes":
			c.dispatch(msg.Payload, cb)
		}
	}
}

func (c *FeedClient) dispatch(payload json.RawMessage, cb FeedCallbacks) {
	var change changePayload
	if err := json.Unmarshal(payload, &change); err != nil {
		c.log.Warn().Err(err).Msg("undecodable change payload")
		return
	}

	switch {
	case change.Data.Table == "messages" && change.Data.Type == "INSERT":
		var m models.Message
		if err := json.Unmarshal(change.Data.Record, &m); err != nil {
			c.log.Warn().Err(err).Msg("undecodable message record")
			return
		}
		if cb.OnMessageInsert != nil {
			cb.OnMessageInsert(models.MessageEvent{Message: m, Source: models.SourceFeed})
		}
	case change.Data.Table == "appointments" && change.Data.Type == "UPDATE":
		var a models.Appointment
		if err := json.Unmarshal(change.Data.Record, &a); err != nil {
			c.log.Warn().Err(err).Msg("undecodable appointment record")
			return
		}
		ev := models.AppointmentEvent{New: a, Source: models.SourceFeed}
		if len(change.Data.OldRecord) > 0 {
			var old models.Appointment
			if err := json.Unmarshal(change.Data.OldRecord, &old); err == nil {
				ev.Old = &old
			}
		}
		if cb.OnAppointmentUpdate != nil {
			cb.OnAppointmentUpdate(ev)
		}
	}
}
