package service

import (
	"sync"
	"time"
)

// Event types pushed to connected clients.
const (
	EventProgressUpdated   = "progress.updated"
	EventCertificateIssued = "certificate.issued"
	EventCourseSaved       = "course.saved"
	EventCourseDeleted     = "course.deleted"
	EventDraftUpdated      = "draft.updated"
	EventProfileUpdated    = "profile.updated"
	EventQuestionPosted    = "question.posted"
)

// Event is a state change notification for one session.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
	At      time.Time   `json:"at"`
}

// Subscription receives the events of one session until cancelled.
type Subscription struct {
	C      <-chan Event
	cancel func()
}

// Cancel detaches the subscription and closes its channel.
func (s *Subscription) Cancel() {
	if s != nil && s.cancel != nil {
		s.cancel()
	}
}

// EventHub fans events out to the subscribers of a session. Slow subscribers lose events.
type EventHub struct {
	mu      sync.RWMutex
	subs    map[string]map[chan Event]struct{}
	buffer  int
	metrics *MetricsService
}

// NewEventHub constructs a hub with per-subscriber buffers of the given size.
func NewEventHub(buffer int, metrics *MetricsService) *EventHub {
	if buffer <= 0 {
		buffer = 16
	}
	return &EventHub{subs: make(map[string]map[chan Event]struct{}), buffer: buffer, metrics: metrics}
}

// Subscribe registers a new listener for sessionID.
func (h *EventHub) Subscribe(sessionID string) *Subscription {
	ch := make(chan Event, h.buffer)
	h.mu.Lock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[chan Event]struct{})
	}
	h.subs[sessionID][ch] = struct{}{}
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.EventClientConnected(1)
	}

	var once sync.Once
	return &Subscription{C: ch, cancel: func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[sessionID], ch)
			if len(h.subs[sessionID]) == 0 {
				delete(h.subs, sessionID)
			}
			h.mu.Unlock()
			close(ch)
			if h.metrics != nil {
				h.metrics.EventClientConnected(-1)
			}
		})
	}}
}

// Publish delivers an event to every subscriber of sessionID without blocking.
func (h *EventHub) Publish(sessionID, eventType string, payload interface{}) {
	if h == nil {
		return
	}
	evt := Event{Type: eventType, Payload: payload, At: time.Now().UTC()}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[sessionID] {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Subscribers returns the number of listeners of a session.
func (h *EventHub) Subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[sessionID])
}
