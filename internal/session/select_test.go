// ABOUTME: Tests for agent selection, history fetch, and collection refresh.
// ABOUTME: Covers not-found handling, fetch failure fallback, and idempotent reads.

package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sablelabs/docchat/internal/api"
)

func TestSelectAgent_FetchesAuthoritativeHistory(t *testing.T) {
	backend := newMockBackend(api.Agent{ID: 1, Name: "Support"})
	backend.messages[1] = []api.Message{
		{Sender: api.RoleUser, Text: "old question"},
		{Sender: api.RoleBot, Text: "old answer"},
	}
	m := newTestManager(t, backend)

	selectAndWait(t, m, 1)

	assert.Equal(t, 1, m.SelectedID())
	a, _ := m.Selected()
	require.Len(t, a.History, 2)
	assert.Equal(t, "old question", a.History[0].Text)
	assert.Equal(t, "old answer", a.History[1].Text)
}

func TestSelectAgent_UnknownID(t *testing.T) {
	backend := newMockBackend(api.Agent{ID: 1})
	m := newTestManager(t, backend)
	selectAndWait(t, m, 1)

	_, err := m.SelectAgent(context.Background(), 99)
	assert.ErrorIs(t, err, ErrAgentNotFound)

	// Session state unchanged
	assert.Equal(t, 1, m.SelectedID())
	assert.Equal(t, 1, backend.fetchCalls)
}

func TestSelectAgent_FetchFailureKeepsSelectionAndHistory(t *testing.T) {
	backend := newMockBackend(api.Agent{ID: 1})
	m := newTestManager(t, backend)

	// First selection succeeds and lands history
	backend.messages[1] = []api.Message{{Sender: api.RoleUser, Text: "kept"}}
	selectAndWait(t, m, 1)
	require.Equal(t, 1, historyLen(t, m, 1))

	// Second fetch fails: selection still moves, history survives
	backend.fetchErr = errors.New("backend down")
	done, err := m.SelectAgent(context.Background(), 1)
	require.NoError(t, err)
	require.Error(t, <-done)

	assert.Equal(t, 1, m.SelectedID())
	a, _ := m.Agent(1)
	require.Len(t, a.History, 1)
	assert.Equal(t, "kept", a.History[0].Text)
}

func TestSelectAgent_FetchFailureFallsBackToCache(t *testing.T) {
	backend := newMockBackend(api.Agent{ID: 1})
	backend.fetchErr = errors.New("offline")
	m := newTestManager(t, backend)

	cache := newMockCache()
	cache.histories[1] = []api.Message{
		{Sender: api.RoleUser, Text: "cached question"},
		{Sender: api.RoleBot, Text: "cached answer"},
	}
	m.SetHistoryCache(cache)

	done, err := m.SelectAgent(context.Background(), 1)
	require.NoError(t, err)
	require.Error(t, <-done)

	a, _ := m.Agent(1)
	require.Len(t, a.History, 2)
	assert.Equal(t, "cached question", a.History[0].Text)
}

func TestSelectAgent_RepeatedFetchIsIdempotent(t *testing.T) {
	backend := newMockBackend(api.Agent{ID: 1})
	backend.messages[1] = []api.Message{
		{Sender: api.RoleUser, Text: "q"},
		{Sender: api.RoleBot, Text: "a"},
	}
	m := newTestManager(t, backend)

	selectAndWait(t, m, 1)
	first, _ := m.Agent(1)
	selectAndWait(t, m, 1)
	second, _ := m.Agent(1)

	assert.Equal(t, first.History, second.History)
}

func TestRefresh_PreservesHeldHistories(t *testing.T) {
	backend := newMockBackend(api.Agent{ID: 1}, api.Agent{ID: 2})
	backend.messages[1] = []api.Message{{Sender: api.RoleUser, Text: "held"}}
	m := newTestManager(t, backend)
	selectAndWait(t, m, 1)
	require.Equal(t, 1, historyLen(t, m, 1))

	require.NoError(t, m.Refresh(context.Background()))

	// History held locally survives the refresh
	assert.Equal(t, 1, historyLen(t, m, 1))
	assert.Equal(t, 1, m.SelectedID())
}

func TestRefresh_DropsRemovedAgentsAndClearsSelection(t *testing.T) {
	backend := newMockBackend(api.Agent{ID: 1}, api.Agent{ID: 2})
	m := newTestManager(t, backend)
	selectAndWait(t, m, 2)

	// Agent 2 disappears server-side
	require.NoError(t, backend.DeleteAgent(context.Background(), 2))
	require.NoError(t, m.Refresh(context.Background()))

	_, ok := m.Agent(2)
	assert.False(t, ok)
	assert.Equal(t, 0, m.SelectedID())
}

func TestRefresh_ListFailure(t *testing.T) {
	backend := newMockBackend(api.Agent{ID: 1})
	m := newTestManager(t, backend)

	backend.listErr = errors.New("no route to host")
	err := m.Refresh(context.Background())
	require.Error(t, err)

	// Collection untouched
	_, ok := m.Agent(1)
	assert.True(t, ok)
}

func TestRefresh_ListFailureFallsBackToCachedDirectory(t *testing.T) {
	backend := newMockBackend()
	backend.listErr = errors.New("no route to host")
	backend.fetchErr = errors.New("no route to host")
	m := New(backend, nil)
	t.Cleanup(m.Close)

	cache := newMockCache()
	cache.agentRows = []api.Agent{{ID: 1, Name: "Support"}, {ID: 2, Name: "Legal"}}
	cache.histories[1] = []api.Message{{Sender: api.RoleUser, Text: "cached"}}
	m.SetHistoryCache(cache)

	require.Error(t, m.Refresh(context.Background()))

	agents := m.Agents()
	require.Len(t, agents, 2)
	assert.Equal(t, "Support", agents[0].Name)

	// Conversations remain readable through the history fallback
	done, err := m.SelectAgent(context.Background(), 1)
	require.NoError(t, err)
	require.Error(t, <-done)
	assert.Equal(t, 1, historyLen(t, m, 1))
}

func TestRefresh_ListFailureKeepsHeldCollection(t *testing.T) {
	backend := newMockBackend(api.Agent{ID: 1, Name: "Support"})
	m := newTestManager(t, backend)

	cache := newMockCache()
	cache.agentRows = []api.Agent{{ID: 9, Name: "Stale"}}
	m.SetHistoryCache(cache)

	backend.listErr = errors.New("no route to host")
	require.Error(t, m.Refresh(context.Background()))

	// Server state already seen wins over the cached directory
	_, ok := m.Agent(9)
	assert.False(t, ok)
	_, ok = m.Agent(1)
	assert.True(t, ok)
}

func TestReset_DropsAllSessionState(t *testing.T) {
	backend := newMockBackend(api.Agent{ID: 1})
	m := newTestManager(t, backend)
	selectAndWait(t, m, 1)
	m.SetDraft("half-typed")

	m.Reset()

	assert.Empty(t, m.Agents())
	assert.Equal(t, 0, m.SelectedID())
	assert.Empty(t, m.Draft())
}

func TestAgents_OrderedByID(t *testing.T) {
	backend := newMockBackend(api.Agent{ID: 3}, api.Agent{ID: 1}, api.Agent{ID: 2})
	m := newTestManager(t, backend)

	agents := m.Agents()
	require.Len(t, agents, 3)
	assert.Equal(t, []int{agents[0].ID, agents[1].ID, agents[2].ID}, []int{1, 2, 3})
}
