package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Cue77/medilink/models"
	"github.com/rs/zerolog"
)

// DeltaSource is what the polling fallback needs from the backing store.
type DeltaSource interface {
	LatestMessageID(ctx context.Context) (int64, error)
	MessagesAfter(ctx context.Context, afterID int64) ([]models.Message, error)
	AppointmentsUpdatedAfter(ctx context.Context, userID string, since time.Time) ([]models.Appointment, error)
}

// Poller is the fallback delivery channel, activated when the change feed
// degrades. It keeps two process-local cursors — last-seen message id and
// last-seen appointment update time — and forwards only rows beyond them.
// Cursors are deliberately not persisted: a restart re-baselines instead of
// replaying history.
type Poller struct {
	source        DeltaSource
	viewer        models.Viewer
	interval      time.Duration
	onMessage     func(models.MessageEvent)
	onAppointment func(models.AppointmentEvent)
	log           zerolog.Logger
	now           func() time.Time

	mu         sync.Mutex
	cursorID   int64
	cursorTime time.Time
	started    bool

	stop chan struct{}
	done chan struct{}
}

func NewPoller(source DeltaSource, viewer models.Viewer, interval time.Duration,
	onMessage func(models.MessageEvent), onAppointment func(models.AppointmentEvent),
	log zerolog.Logger) *Poller {
	return &Poller{
		source:        source,
		viewer:        viewer,
		interval:      interval,
		onMessage:     onMessage,
		onAppointment: onAppointment,
		log:           log.With().Str("component", "poller").Logger(),
		now:           time.Now,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start takes the baseline — highest existing message id plus the current
// time — so pre-existing rows are never reported, then begins ticking.
func (p *Poller) Start(ctx context.Context) error {
	latest, err := p.source.LatestMessageID(ctx)
	if err != nil {
		// Baseline at zero would replay the whole table on the first tick.
		return err
	}

	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return nil
	}
	p.started = true
	p.cursorID = latest
	p.cursorTime = p.now()
	p.mu.Unlock()

	go p.run(ctx)
	return nil
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// Stop ends the loop and waits for it to exit, so no callback fires after
// Stop returns. Safe to call once per poller.
func (p *Poller) Stop() {
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	close(p.stop)
	if started {
		<-p.done
	}
}

// Cursor exposes the current high-water marks.
func (p *Poller) Cursor() (int64, time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursorID, p.cursorTime
}

// tick runs one delta query round. A failed query is logged and retried on
// the next tick; it never advances a cursor or ends the loop.
func (p *Poller) tick(ctx context.Context) {
	p.mu.Lock()
	afterID := p.cursorID
	since := p.cursorTime
	p.mu.Unlock()

	messages, err := p.source.MessagesAfter(ctx, afterID)
	if err != nil {
		p.log.Warn().Err(err).Msg("message poll failed")
	} else if len(messages) > 0 {
		sort.Slice(messages, func(i, j int) bool { return messages[i].ID < messages[j].ID })
		maxID := afterID
		for _, m := range messages {
			if m.ID > maxID {
				maxID = m.ID
			}
		}
		p.mu.Lock()
		if maxID > p.cursorID {
			p.cursorID = maxID
		}
		p.mu.Unlock()
		for _, m := range messages {
			p.onMessage(models.MessageEvent{Message: m, Source: models.SourcePoll})
		}
	}

	// Appointment deltas only exist for patients; a doctor's dashboard set has
	// no single owning id to poll by.
	if p.viewer.IsDoctor() {
		return
	}
	appointments, err := p.source.AppointmentsUpdatedAfter(ctx, p.viewer.ID, since)
	if err != nil {
		p.log.Warn().Err(err).Msg("appointment poll failed")
		return
	}
	if len(appointments) == 0 {
		return
	}
	p.mu.Lock()
	p.cursorTime = p.now()
	p.mu.Unlock()
	for _, a := range appointments {
		// No previous row on this path, so the event carries no diff.
		p.onAppointment(models.AppointmentEvent{New: a, Source: models.SourcePoll})
	}
}
