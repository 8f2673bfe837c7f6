// ABOUTME: Shared test fixtures for the session manager.
// ABOUTME: mockBackend fakes the API client; mockCache fakes local storage.

package session

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sablelabs/docchat/internal/api"
)

// mockBackend implements Backend in memory.
type mockBackend struct {
	mu       sync.Mutex
	agents   []api.Agent
	messages map[int][]api.Message
	reply    string
	nextID   int

	sendErr  error
	fetchErr error
	listErr  error

	sendCalls  int
	fetchCalls int

	// blockSend, when non-nil, holds SendMessage until closed. When
	// blockAgent is non-zero only that agent's sends block.
	blockSend  chan struct{}
	blockAgent int
}

func newMockBackend(agents ...api.Agent) *mockBackend {
	b := &mockBackend{
		agents:   agents,
		messages: make(map[int][]api.Message),
		reply:    "the documents say hello",
		nextID:   100,
	}
	return b
}

func (b *mockBackend) ListAgents(ctx context.Context) ([]api.Agent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listErr != nil {
		return nil, b.listErr
	}
	return append([]api.Agent(nil), b.agents...), nil
}

func (b *mockBackend) CreateAgent(ctx context.Context, name, prompt string, files []api.FileUpload) (*api.Agent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	a := api.Agent{ID: b.nextID, Name: name, Prompt: prompt}
	for i, f := range files {
		a.Files = append(a.Files, api.FileInfo{ID: b.nextID*10 + i, Name: f.Name})
	}
	b.agents = append(b.agents, a)
	return &a, nil
}

func (b *mockBackend) UpdateAgent(ctx context.Context, id int, name, prompt string, files []api.FileUpload) (*api.Agent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.agents {
		if b.agents[i].ID == id {
			b.agents[i].Name = name
			b.agents[i].Prompt = prompt
			a := b.agents[i]
			return &a, nil
		}
	}
	return nil, api.ErrNotFound
}

func (b *mockBackend) DeleteAgent(ctx context.Context, id int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.agents {
		if b.agents[i].ID == id {
			b.agents = append(b.agents[:i], b.agents[i+1:]...)
			return nil
		}
	}
	return api.ErrNotFound
}

func (b *mockBackend) DeleteFile(ctx context.Context, fileID int) error {
	return nil
}

func (b *mockBackend) GetMessages(ctx context.Context, agentID int) ([]api.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fetchCalls++
	if b.fetchErr != nil {
		return nil, b.fetchErr
	}
	return append([]api.Message(nil), b.messages[agentID]...), nil
}

func (b *mockBackend) SendMessage(ctx context.Context, agentID int, text string) (string, error) {
	b.mu.Lock()
	b.sendCalls++
	block := b.blockSend
	if b.blockAgent != 0 && b.blockAgent != agentID {
		block = nil
	}
	err := b.sendErr
	reply := b.reply
	b.mu.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return "", err
	}
	return reply, nil
}

func (b *mockBackend) sends() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sendCalls
}

// mockCache implements HistoryCache in memory.
type mockCache struct {
	mu        sync.Mutex
	histories map[int][]api.Message
	agentRows []api.Agent
	getErr    error
}

func newMockCache() *mockCache {
	return &mockCache{histories: make(map[int][]api.Message)}
}

func (c *mockCache) SaveAgents(ctx context.Context, agents []api.Agent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.agentRows = append([]api.Agent(nil), agents...)
	return nil
}

func (c *mockCache) ListAgents(ctx context.Context) ([]api.Agent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	return append([]api.Agent(nil), c.agentRows...), nil
}

func (c *mockCache) SaveHistory(ctx context.Context, agentID int, messages []api.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.histories[agentID] = append([]api.Message(nil), messages...)
	return nil
}

func (c *mockCache) GetHistory(ctx context.Context, agentID int) ([]api.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	return append([]api.Message(nil), c.histories[agentID]...), nil
}

func (c *mockCache) DeleteAgent(ctx context.Context, agentID int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.histories, agentID)
	return nil
}

// newTestManager builds a manager preloaded with the backend's agents and
// with agent selection resolved synchronously.
func newTestManager(t *testing.T, backend *mockBackend) *Manager {
	t.Helper()
	m := New(backend, nil)
	require.NoError(t, m.Refresh(context.Background()))
	t.Cleanup(m.Close)
	return m
}

// selectAndWait selects an agent and waits for its history fetch to settle.
func selectAndWait(t *testing.T, m *Manager, id int) {
	t.Helper()
	done, err := m.SelectAgent(context.Background(), id)
	require.NoError(t, err)
	<-done
}

// historyLen reads the current history length of one agent.
func historyLen(t *testing.T, m *Manager, id int) int {
	t.Helper()
	a, ok := m.Agent(id)
	require.True(t, ok, fmt.Sprintf("agent %d missing", id))
	return len(a.History)
}
