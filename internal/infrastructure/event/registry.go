package event

import (
	"slices"
	"sync"

	"github.com/freightdesk/backend/internal/domain/shared"
)

// AllEvents subscribes a handler to every event type
const AllEvents = "*"

// subscriptions is the bus's routing table from event type to handlers
type subscriptions struct {
	mu     sync.RWMutex
	byType map[string][]shared.EventHandler
}

func newSubscriptions() *subscriptions {
	return &subscriptions{byType: make(map[string][]shared.EventHandler)}
}

// add routes eventTypes to h; no types means AllEvents. Adding the same
// pair twice keeps a single entry.
func (s *subscriptions) add(h shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = []string{AllEvents}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range eventTypes {
		if !slices.Contains(s.byType[t], h) {
			s.byType[t] = append(s.byType[t], h)
		}
	}
}

// remove drops h from every route
func (s *subscriptions) remove(h shared.EventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for t, hs := range s.byType {
		hs = slices.DeleteFunc(slices.Clone(hs), func(x shared.EventHandler) bool { return x == h })
		if len(hs) == 0 {
			delete(s.byType, t)
			continue
		}
		s.byType[t] = hs
	}
}

// match returns the handlers of eventType followed by the AllEvents ones
func (s *subscriptions) match(eventType string) []shared.EventHandler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if eventType == AllEvents {
		return slices.Clone(s.byType[AllEvents])
	}
	return slices.Concat(s.byType[eventType], s.byType[AllEvents])
}

// handlerCount counts distinct handlers across all routes
func (s *subscriptions) handlerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[shared.EventHandler]struct{})
	for _, hs := range s.byType {
		for _, h := range hs {
			seen[h] = struct{}{}
		}
	}
	return len(seen)
}
