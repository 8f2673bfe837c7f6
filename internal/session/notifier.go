// ABOUTME: In-memory fan-out notifier for session change events.
// ABOUTME: Publishes committed mutations to all subscribed renderers.

package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

const (
	// subscriberBufferSize is the channel buffer for each subscriber.
	subscriberBufferSize = 64
)

// ChangeKind classifies what part of the session a change touched.
type ChangeKind string

// Change kinds published by the Manager.
const (
	ChangeAgents    ChangeKind = "agents"    // collection membership changed
	ChangeSelection ChangeKind = "selection" // selected agent changed
	ChangeHistory   ChangeKind = "history"   // a conversation gained or replaced messages
	ChangeStreaming ChangeKind = "streaming" // a streaming flag flipped
	ChangeSession   ChangeKind = "session"   // login state changed (forced logout)
)

// Change describes one committed mutation. AgentID is zero for changes that
// are not scoped to a single agent.
type Change struct {
	Kind    ChangeKind
	AgentID int
}

// Notifier provides in-memory pub/sub for session changes. Subscribers are
// renderers; they receive every committed mutation and redraw from the
// Manager's accessors. Non-blocking: events are dropped for subscribers
// whose channels are full.
type Notifier struct {
	mu          sync.RWMutex
	subscribers map[string]chan Change
	logger      *slog.Logger
}

// NewNotifier creates a notifier. Pass nil logger for default.
func NewNotifier(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		subscribers: make(map[string]chan Change),
		logger:      logger.With("component", "notifier"),
	}
}

// Subscribe registers a subscriber. Returns a channel that receives changes
// and a subscription ID for later unsubscription. The subscription is
// automatically cleaned up when ctx is cancelled.
func (n *Notifier) Subscribe(ctx context.Context) (<-chan Change, string) {
	subID := uuid.New().String()
	ch := make(chan Change, subscriberBufferSize)

	n.mu.Lock()
	n.subscribers[subID] = ch
	n.mu.Unlock()

	n.logger.Debug("subscriber added", "sub_id", subID)

	go func() {
		<-ctx.Done()
		n.Unsubscribe(subID)
	}()

	return ch, subID
}

// Publish sends a change to all subscribers. Sends happen under the read
// lock so an Unsubscribe cannot close a channel mid-send; the sends are
// non-blocking, so the lock is never held waiting on a subscriber.
func (n *Notifier) Publish(change Change) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for _, ch := range n.subscribers {
		select {
		case ch <- change:
		default:
			// Subscriber channel full, drop the event for this subscriber
			n.logger.Debug("dropped change for slow subscriber",
				"kind", change.Kind,
				"agent_id", change.AgentID)
		}
	}
}

// Unsubscribe removes a subscription and closes its channel.
func (n *Notifier) Unsubscribe(subID string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch, ok := n.subscribers[subID]
	if !ok {
		return
	}
	delete(n.subscribers, subID)
	close(ch)

	n.logger.Debug("subscriber removed", "sub_id", subID)
}

// Close shuts down the notifier and closes all subscriber channels.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for subID, ch := range n.subscribers {
		close(ch)
		delete(n.subscribers, subID)
	}
	n.logger.Debug("notifier closed")
}
