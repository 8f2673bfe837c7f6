// ABOUTME: The send/receive cycle: optimistic append, round trip, reconciliation.
// ABOUTME: Replies reconcile against the agent id captured at send time.

package session

import (
	"context"
	"strconv"
	"strings"

	"github.com/sablelabs/docchat/internal/api"
	"github.com/sablelabs/docchat/internal/stream"
)

// SendMessage appends the user message optimistically, clears the draft,
// and runs the round trip in the background. The returned channel resolves
// once the cycle settles; the streaming flag for the agent is guaranteed
// clear by then on every path.
//
// No-ops (blank text, no selection, a reply already pending for the agent)
// resolve immediately with nil and issue no network call. A duplicate of a
// just-sent line also skips the network but resolves with ErrDuplicateSend
// so the caller can say so. A failed round trip resolves with the error;
// the optimistic user message is never rolled back.
func (m *Manager) SendMessage(ctx context.Context, text string) <-chan error {
	if strings.TrimSpace(text) == "" {
		return resolved(nil)
	}

	m.mu.Lock()
	agent, ok := m.agents[m.selected]
	if !ok {
		m.mu.Unlock()
		return resolved(nil)
	}
	id := agent.ID

	if m.inFlight[id] {
		m.mu.Unlock()
		m.logger.Debug("send ignored, reply still pending", "agent_id", id)
		return resolved(nil)
	}
	if m.dedupe != nil && m.dedupe.CheckAndMark(sendKey(id, text)) {
		m.mu.Unlock()
		m.logger.Debug("duplicate send suppressed", "agent_id", id)
		return resolved(ErrDuplicateSend)
	}

	// Optimistic append: the arena entry and the selected view are the same
	// object, so both reflect the message at once
	agent.History = append(agent.History, api.Message{Sender: api.RoleUser, Text: text})
	m.draft = ""
	m.inFlight[id] = true
	m.mu.Unlock()

	m.notifier.Publish(Change{Kind: ChangeHistory, AgentID: id})
	m.notifier.Publish(Change{Kind: ChangeStreaming, AgentID: id})

	result := make(chan error, 1)
	go func() {
		defer close(result)
		result <- m.roundTrip(ctx, id, text)
	}()
	return result
}

// roundTrip performs the network call and reconciles the reply. The target
// is always the agent by captured id: selection may have moved on, and the
// agent may have been deleted, while the call was in flight.
func (m *Manager) roundTrip(ctx context.Context, id int, text string) error {
	reply, err := m.backend.SendMessage(ctx, id, text)
	if err != nil {
		m.clearStreaming(id)
		m.mu.Lock()
		d := m.dedupe
		m.mu.Unlock()
		if d != nil {
			// A failed send may be retried verbatim on purpose
			d.Forget(sendKey(id, text))
		}
		m.logger.Error("send failed, keeping local message", "error", err, "agent_id", id)
		return err
	}

	if m.isSimulated() {
		return m.revealReply(ctx, id, reply)
	}

	m.mu.Lock()
	agent, ok := m.agents[id]
	if !ok {
		// Deleted mid-flight; do not resurrect
		delete(m.inFlight, id)
		m.mu.Unlock()
		m.logger.Debug("reply resolved for removed agent, discarding", "agent_id", id)
		m.notifier.Publish(Change{Kind: ChangeStreaming, AgentID: id})
		return nil
	}
	agent.History = append(agent.History, api.Message{Sender: api.RoleBot, Text: reply})
	snapshot := append([]api.Message(nil), agent.History...)
	delete(m.inFlight, id)
	m.mu.Unlock()

	m.notifier.Publish(Change{Kind: ChangeHistory, AgentID: id})
	m.notifier.Publish(Change{Kind: ChangeStreaming, AgentID: id})
	m.saveHistoryCache(id, snapshot)
	return nil
}

// revealReply replays a fully received reply through the streaming path so
// the renderer sees it arrive incrementally.
func (m *Manager) revealReply(ctx context.Context, id int, reply string) error {
	m.mu.Lock()
	batch, tick := m.simBatch, m.simTick
	m.mu.Unlock()

	return m.streamInto(ctx, id, stream.NewSimulator(reply, batch, tick), true)
}

// clearStreaming drops the in-flight flag for an agent and notifies.
func (m *Manager) clearStreaming(id int) {
	m.mu.Lock()
	delete(m.inFlight, id)
	m.mu.Unlock()
	m.notifier.Publish(Change{Kind: ChangeStreaming, AgentID: id})
}

// isSimulated reads the simulation toggle under the lock.
func (m *Manager) isSimulated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.simulate
}

// sendKey builds the dedupe key for a send: agent-scoped so the same text
// sent to two agents is not a duplicate.
func sendKey(id int, text string) string {
	return "send:" + strconv.Itoa(id) + ":" + text
}
