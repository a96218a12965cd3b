package services

import (
	"sync"

	"github.com/Cue77/medilink/models"
)

// Notifier is the sink notices are emitted into. Delivery is at most once and
// best effort; implementations must never block the caller.
type Notifier interface {
	Notify(userID string, n models.Notice)
}

const noticeBuffer = 16

// NoticeHub fans transient notices out to whichever UI surfaces are currently
// attached for a viewer. A notice for a viewer with no attached surface is
// dropped silently, as is one for a surface that cannot keep up.
type NoticeHub struct {
	mu   sync.RWMutex
	subs map[string]map[chan models.Notice]struct{}
}

func NewNoticeHub() *NoticeHub {
	return &NoticeHub{subs: make(map[string]map[chan models.Notice]struct{})}
}

// Subscribe attaches a surface for the given viewer. The returned cancel
// detaches it and closes the channel.
func (h *NoticeHub) Subscribe(userID string) (<-chan models.Notice, func()) {
	ch := make(chan models.Notice, noticeBuffer)

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[chan models.Notice]struct{})
	}
	h.subs[userID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if set, ok := h.subs[userID]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
				if len(set) == 0 {
					delete(h.subs, userID)
				}
			}
		}
	}
	return ch, cancel
}

// Notify delivers a notice to every attached surface for the viewer without
// blocking. Surfaces with a full buffer miss the notice.
func (h *NoticeHub) Notify(userID string, n models.Notice) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[userID] {
		select {
		case ch <- n:
		default:
		}
	}
}
