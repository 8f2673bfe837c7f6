// ABOUTME: Agent selection and collection refresh.
// ABOUTME: History fetches are async; a failed fetch never corrupts held state.

package session

import (
	"context"

	"github.com/sablelabs/docchat/internal/api"
)

// Refresh replaces the agent collection with the server's authoritative
// list. Histories already held locally survive for agents that are still
// present; agents that disappeared server-side are dropped (clearing the
// selection if it pointed at one).
//
// When the backend is unreachable and the collection is still empty, the
// locally cached directory is substituted so conversations remain readable
// offline; the original error is still returned.
func (m *Manager) Refresh(ctx context.Context) error {
	agents, err := m.backend.ListAgents(ctx)
	if err != nil {
		m.logger.Error("agent list fetch failed", "error", err)
		m.fallbackToCachedAgents(ctx)
		return err
	}

	m.mu.Lock()
	next := make(map[int]*api.Agent, len(agents))
	for i := range agents {
		a := agents[i]
		if prev, ok := m.agents[a.ID]; ok && len(a.History) == 0 {
			a.History = prev.History
		}
		next[a.ID] = &a
	}
	if _, ok := next[m.selected]; !ok {
		m.selected = 0
	}
	m.agents = next
	m.mu.Unlock()

	m.logger.Debug("agent collection refreshed", "count", len(agents))
	m.notifier.Publish(Change{Kind: ChangeAgents})

	if m.cache != nil {
		if err := m.cache.SaveAgents(ctx, agents); err != nil {
			m.logger.Error("failed to cache agents", "error", err)
		}
	}
	return nil
}

// SelectAgent marks the agent as selected and fetches its authoritative
// history in the background. The returned channel resolves with the fetch
// outcome; the selection itself succeeds even when the fetch later fails,
// in which case the previously held (possibly cached, possibly empty)
// history is kept.
//
// An id not present in the collection fails immediately with
// ErrAgentNotFound and leaves session state untouched.
func (m *Manager) SelectAgent(ctx context.Context, id int) (<-chan error, error) {
	m.mu.Lock()
	if _, ok := m.agents[id]; !ok {
		m.mu.Unlock()
		return nil, ErrAgentNotFound
	}
	m.selected = id
	m.mu.Unlock()

	m.notifier.Publish(Change{Kind: ChangeSelection, AgentID: id})

	result := make(chan error, 1)
	go func() {
		defer close(result)
		result <- m.fetchHistory(ctx, id)
	}()
	return result, nil
}

// fetchHistory pulls the server's copy of one agent's conversation and
// reconciles it against the agent by id. On failure the held history stays,
// topped up from the local cache when the agent had none.
func (m *Manager) fetchHistory(ctx context.Context, id int) error {
	messages, err := m.backend.GetMessages(ctx, id)
	if err != nil {
		m.logger.Error("history fetch failed", "error", err, "agent_id", id)
		m.fallbackToCachedHistory(ctx, id)
		return err
	}

	m.mu.Lock()
	agent, ok := m.agents[id]
	if !ok {
		// Deleted while the fetch was in flight; discard
		m.mu.Unlock()
		m.logger.Debug("history fetch resolved for removed agent", "agent_id", id)
		return nil
	}
	agent.History = messages
	m.mu.Unlock()

	m.notifier.Publish(Change{Kind: ChangeHistory, AgentID: id})
	m.saveHistoryCache(id, append([]api.Message(nil), messages...))
	return nil
}

// fallbackToCachedHistory fills an empty history from the local cache after
// a failed fetch. An agent that already shows messages keeps them.
func (m *Manager) fallbackToCachedHistory(ctx context.Context, id int) {
	if m.cache == nil {
		return
	}

	m.mu.Lock()
	agent, ok := m.agents[id]
	if !ok || len(agent.History) > 0 {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	cached, err := m.cache.GetHistory(ctx, id)
	if err != nil || len(cached) == 0 {
		return
	}

	m.mu.Lock()
	agent, ok = m.agents[id]
	if ok && len(agent.History) == 0 {
		agent.History = cached
	}
	m.mu.Unlock()

	if ok {
		m.logger.Debug("history served from local cache", "agent_id", id, "count", len(cached))
		m.notifier.Publish(Change{Kind: ChangeHistory, AgentID: id})
	}
}

// fallbackToCachedAgents populates an empty collection from the locally
// cached directory after a failed list fetch. A collection that already
// holds agents is left alone; server state, once seen, wins.
func (m *Manager) fallbackToCachedAgents(ctx context.Context) {
	if m.cache == nil {
		return
	}

	m.mu.Lock()
	empty := len(m.agents) == 0
	m.mu.Unlock()
	if !empty {
		return
	}

	cached, err := m.cache.ListAgents(ctx)
	if err != nil || len(cached) == 0 {
		return
	}

	m.mu.Lock()
	if len(m.agents) != 0 {
		m.mu.Unlock()
		return
	}
	for i := range cached {
		a := cached[i]
		m.agents[a.ID] = &a
	}
	m.mu.Unlock()

	m.logger.Debug("agent directory served from local cache", "count", len(cached))
	m.notifier.Publish(Change{Kind: ChangeAgents})
}
