// ABOUTME: Agent directory operations reconciled into the local collection.
// ABOUTME: Create/update/delete go through the backend, then mutate the arena.

package session

import (
	"context"
	"time"

	"github.com/sablelabs/docchat/internal/api"
)

// CreateAgent creates an agent server-side and adds it to the collection.
func (m *Manager) CreateAgent(ctx context.Context, name, prompt string, files []api.FileUpload) (api.Agent, error) {
	created, err := m.backend.CreateAgent(ctx, name, prompt, files)
	if err != nil {
		return api.Agent{}, err
	}

	m.mu.Lock()
	a := *created
	m.agents[a.ID] = &a
	m.mu.Unlock()

	m.logger.Info("agent created", "agent_id", a.ID, "name", a.Name)
	m.notifier.Publish(Change{Kind: ChangeAgents, AgentID: a.ID})
	return copyAgent(&a), nil
}

// UpdateAgent updates an agent's name, prompt, and uploads server-side.
// The held conversation history survives the update; the backend does not
// echo it back.
func (m *Manager) UpdateAgent(ctx context.Context, id int, name, prompt string, files []api.FileUpload) (api.Agent, error) {
	updated, err := m.backend.UpdateAgent(ctx, id, name, prompt, files)
	if err != nil {
		return api.Agent{}, err
	}

	m.mu.Lock()
	a := *updated
	if prev, ok := m.agents[id]; ok && len(a.History) == 0 {
		a.History = prev.History
	}
	m.agents[id] = &a
	m.mu.Unlock()

	m.logger.Info("agent updated", "agent_id", id)
	m.notifier.Publish(Change{Kind: ChangeAgents, AgentID: id})
	return copyAgent(&a), nil
}

// DeleteAgent removes an agent server-side and from the collection,
// clearing the selection if it pointed there. A reply still in flight for
// the agent finds it gone on resolution and is discarded.
func (m *Manager) DeleteAgent(ctx context.Context, id int) error {
	if err := m.backend.DeleteAgent(ctx, id); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.agents, id)
	if m.selected == id {
		m.selected = 0
	}
	m.mu.Unlock()

	m.logger.Info("agent deleted", "agent_id", id)
	m.notifier.Publish(Change{Kind: ChangeAgents, AgentID: id})

	if m.cache != nil {
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.cache.DeleteAgent(cctx, id); err != nil {
			m.logger.Error("failed to drop cached agent", "error", err, "agent_id", id)
		}
	}
	return nil
}

// DeleteFile removes one uploaded document from an agent, server-side and
// in the collection entry.
func (m *Manager) DeleteFile(ctx context.Context, agentID, fileID int) error {
	if err := m.backend.DeleteFile(ctx, fileID); err != nil {
		return err
	}

	m.mu.Lock()
	if agent, ok := m.agents[agentID]; ok {
		files := agent.Files[:0]
		for _, f := range agent.Files {
			if f.ID != fileID {
				files = append(files, f)
			}
		}
		agent.Files = files
	}
	m.mu.Unlock()

	m.notifier.Publish(Change{Kind: ChangeAgents, AgentID: agentID})
	return nil
}
