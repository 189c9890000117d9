package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/flowgraph/pkg/domain"
)

// Event is the payload streamed to subscribers after an engine operation.
type Event struct {
	domain.OperationEvent
	Error string `json:"error,omitempty"`
}

// StreamManager handles active SSE connections
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // FlowID -> Set of Channels
	logger      *slog.Logger
}

// NewStreamManager creates an empty manager.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a channel for the events of a flow. The returned
// function unregisters and closes it.
func (sm *StreamManager) Subscribe(flowID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[flowID]; !ok {
		sm.subscribers[flowID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[flowID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[flowID]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, flowID)
			}
		}
	}
}

// Broadcast sends msg to every subscriber of a flow without blocking.
func (sm *StreamManager) Broadcast(flowID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	subs, ok := sm.subscribers[flowID]
	if !ok {
		return
	}
	sm.logger.Debug("StreamManager: Broadcasting", "flow_id", flowID, "subscribers", len(subs), "payload_size", len(msg))
	for ch := range subs {
		select {
		case ch <- msg:
		default:
			// Drop message if channel is full (slow client)
			sm.logger.Warn("SSE: Client buffer full, dropping message", "flow_id", flowID)
		}
	}
}

// Hooks returns lifecycle hooks that broadcast finished operations to the
// subscribers of their flow.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnOperationEnd: func(_ context.Context, e *domain.OperationEvent) {
			if e.FlowID == "" {
				return
			}
			ev := Event{OperationEvent: *e}
			if e.Err != nil {
				ev.Error = e.Err.Error()
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				sm.logger.Warn("SSE: Failed to encode event", "err", err)
				return
			}
			sm.Broadcast(e.FlowID, string(payload))
		},
	}
}
