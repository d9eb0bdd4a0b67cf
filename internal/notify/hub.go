package notify

import (
	"sync"

	"canteen-be/internal/logger"

	"go.uber.org/zap"
)

const subscriberBuffer = 16

// Hub is an in-process Notifier fanning events out to subscriber channels.
// A delivery mechanism (SSE, push) drains the channels; slow subscribers
// drop events rather than block the emitter.
type Hub struct {
	mu       sync.RWMutex
	users    map[string]map[chan Event]struct{}
	canteens map[int64]map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{
		users:    make(map[string]map[chan Event]struct{}),
		canteens: make(map[int64]map[chan Event]struct{}),
	}
}

func (h *Hub) SubscribeUser(userID string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	if h.users[userID] == nil {
		h.users[userID] = make(map[chan Event]struct{})
	}
	h.users[userID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.users[userID], ch)
		h.mu.Unlock()
	}
	return ch, cancel
}

func (h *Hub) SubscribeCanteen(canteenID int64) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	if h.canteens[canteenID] == nil {
		h.canteens[canteenID] = make(map[chan Event]struct{})
	}
	h.canteens[canteenID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.canteens[canteenID], ch)
		h.mu.Unlock()
	}
	return ch, cancel
}

func (h *Hub) NotifyUser(userID string, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.users[userID] {
		select {
		case ch <- ev:
		default:
			logger.L().Warn("dropping notification for slow subscriber",
				zap.String("user_id", userID),
				zap.String("event", string(ev.Type)),
			)
		}
	}
}

func (h *Hub) NotifyCanteen(canteenID int64, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.canteens[canteenID] {
		select {
		case ch <- ev:
		default:
			logger.L().Warn("dropping notification for slow subscriber",
				zap.Int64("canteen_id", canteenID),
				zap.String("event", string(ev.Type)),
			)
		}
	}
}
