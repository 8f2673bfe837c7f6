// ABOUTME: Incremental response handling: one bot message mutated in place.
// ABOUTME: The same path serves the timer simulation and real streaming sources.

package session

import (
	"context"
	"errors"

	"github.com/sablelabs/docchat/internal/api"
	"github.com/sablelabs/docchat/internal/stream"
)

// ErrResponsePending is returned when a stream is started for an agent that
// already has a reply in flight.
var ErrResponsePending = errors.New("response already pending")

// StreamResponse appends one empty bot message to the agent's history and
// mutates it in place with each partial from the source until the source
// reports done. History length grows by exactly one for the whole response.
//
// Starting a stream for an agent with a reply already pending returns
// ErrResponsePending. An agent deleted mid-stream stops the stream quietly.
func (m *Manager) StreamResponse(ctx context.Context, agentID int, src stream.Source) error {
	return m.streamInto(ctx, agentID, src, false)
}

// ApplyChunk is the streaming-update contract: replace the text of the
// in-flight bot message with the cumulative partial. Reports false when
// there is nothing to apply to — the agent is gone, no response is in
// flight, or the last message is not the bot placeholder.
func (m *Manager) ApplyChunk(agentID int, partial string) bool {
	m.mu.Lock()
	agent, ok := m.agents[agentID]
	if !ok || !m.inFlight[agentID] || len(agent.History) == 0 {
		m.mu.Unlock()
		return false
	}
	last := &agent.History[len(agent.History)-1]
	if last.Sender != api.RoleBot {
		m.mu.Unlock()
		return false
	}
	last.Text = partial
	m.mu.Unlock()

	m.notifier.Publish(Change{Kind: ChangeHistory, AgentID: agentID})
	return true
}

// streamInto drives a source through ApplyChunk. flagged indicates the
// caller already holds the agent's in-flight flag (the send cycle does).
func (m *Manager) streamInto(ctx context.Context, id int, src stream.Source, flagged bool) error {
	m.mu.Lock()
	agent, ok := m.agents[id]
	if !ok {
		delete(m.inFlight, id)
		m.mu.Unlock()
		if flagged {
			m.notifier.Publish(Change{Kind: ChangeStreaming, AgentID: id})
		}
		m.logger.Debug("stream target removed, discarding", "agent_id", id)
		return nil
	}
	if !flagged {
		if m.inFlight[id] {
			m.mu.Unlock()
			return ErrResponsePending
		}
		m.inFlight[id] = true
	}
	// The single bot message for this response; appended empty exactly once
	agent.History = append(agent.History, api.Message{Sender: api.RoleBot})
	m.mu.Unlock()

	m.notifier.Publish(Change{Kind: ChangeHistory, AgentID: id})
	m.notifier.Publish(Change{Kind: ChangeStreaming, AgentID: id})

	for {
		partial, done, err := src.Next(ctx)
		if err != nil {
			m.clearStreaming(id)
			return err
		}
		if !m.ApplyChunk(id, partial) {
			// Agent deleted mid-stream
			m.clearStreaming(id)
			return nil
		}
		if done {
			break
		}
	}

	m.mu.Lock()
	var snapshot []api.Message
	if agent, ok := m.agents[id]; ok {
		snapshot = append([]api.Message(nil), agent.History...)
	}
	delete(m.inFlight, id)
	m.mu.Unlock()

	m.notifier.Publish(Change{Kind: ChangeStreaming, AgentID: id})
	if snapshot != nil {
		m.saveHistoryCache(id, snapshot)
	}
	return nil
}
