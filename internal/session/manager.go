// ABOUTME: Manager holds the authoritative client-side view of all agents.
// ABOUTME: All session state lives here; mutations are serialized under one lock.

package session

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sablelabs/docchat/internal/api"
	"github.com/sablelabs/docchat/internal/dedupe"
)

// ErrAgentNotFound is returned when an operation references an agent that is
// not in the collection.
var ErrAgentNotFound = errors.New("agent not found")

// ErrDuplicateSend resolves a send that repeated an identical just-sent line
// within the dedupe window. Callers surface it as a notice, not a failure.
var ErrDuplicateSend = errors.New("duplicate message suppressed")

// Backend defines what the Manager needs from the API client.
type Backend interface {
	ListAgents(ctx context.Context) ([]api.Agent, error)
	CreateAgent(ctx context.Context, name, prompt string, files []api.FileUpload) (*api.Agent, error)
	UpdateAgent(ctx context.Context, id int, name, prompt string, files []api.FileUpload) (*api.Agent, error)
	DeleteAgent(ctx context.Context, id int) error
	DeleteFile(ctx context.Context, fileID int) error
	GetMessages(ctx context.Context, agentID int) ([]api.Message, error)
	SendMessage(ctx context.Context, agentID int, text string) (string, error)
}

// HistoryCache defines what the Manager needs from local storage. All
// methods are best-effort: cache failures are logged, never fatal.
type HistoryCache interface {
	SaveAgents(ctx context.Context, agents []api.Agent) error
	ListAgents(ctx context.Context) ([]api.Agent, error)
	SaveHistory(ctx context.Context, agentID int, messages []api.Message) error
	GetHistory(ctx context.Context, agentID int) ([]api.Message, error)
	DeleteAgent(ctx context.Context, agentID int) error
}

// Manager is the conversation session state machine. All mutations happen
// under mu; network round trips run in goroutines that re-enter the lock
// only to apply their reconciliation step against the agent id captured at
// call time.
type Manager struct {
	mu       sync.Mutex
	backend  Backend
	cache    HistoryCache  // optional
	dedupe   *dedupe.Cache // optional
	notifier *Notifier
	logger   *slog.Logger

	agents   map[int]*api.Agent
	selected int // 0 = none
	draft    string
	inFlight map[int]bool // agent id -> a reply is pending

	// Streaming simulation: when simulate is true, replies arriving from the
	// blocking send call are revealed incrementally instead of all at once.
	simulate bool
	simBatch int
	simTick  time.Duration
}

// New creates a Manager over the given backend. Pass nil logger for default.
func New(backend Backend, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "session")
	return &Manager{
		backend:  backend,
		notifier: NewNotifier(logger),
		logger:   logger,
		agents:   make(map[int]*api.Agent),
		inFlight: make(map[int]bool),
	}
}

// SetHistoryCache attaches a local history cache used as a fallback when
// history fetches fail and for persisting fetched conversations.
func (m *Manager) SetHistoryCache(c HistoryCache) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache = c
}

// SetDedupe attaches a duplicate-send suppression cache.
func (m *Manager) SetDedupe(c *dedupe.Cache) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dedupe = c
}

// SetSimulation configures timer-driven incremental reveal of replies.
// batch runes are revealed per tick. Disabled by default.
func (m *Manager) SetSimulation(enabled bool, batch int, tick time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.simulate = enabled
	m.simBatch = batch
	m.simTick = tick
}

// Subscribe registers a renderer for change notifications.
func (m *Manager) Subscribe(ctx context.Context) (<-chan Change, string) {
	return m.notifier.Subscribe(ctx)
}

// Unsubscribe removes a renderer subscription.
func (m *Manager) Unsubscribe(subID string) {
	m.notifier.Unsubscribe(subID)
}

// Close shuts down the notifier.
func (m *Manager) Close() {
	m.notifier.Close()
}

// Reset drops all session state: agents, selection, draft. Used on forced
// logout; replies still in flight find their agent gone and are discarded.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.agents = make(map[int]*api.Agent)
	m.selected = 0
	m.draft = ""
	m.mu.Unlock()

	m.logger.Info("session reset")
	m.notifier.Publish(Change{Kind: ChangeSession})
}

// Agents returns all agents as defensive copies, ordered by ascending id.
func (m *Manager) Agents() []api.Agent {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]api.Agent, 0, len(m.agents))
	for _, a := range m.agents {
		out = append(out, copyAgent(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Agent returns a copy of one agent by id.
func (m *Manager) Agent(id int) (api.Agent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.agents[id]
	if !ok {
		return api.Agent{}, false
	}
	return copyAgent(a), true
}

// Selected returns a copy of the selected agent, if any.
func (m *Manager) Selected() (api.Agent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.agents[m.selected]
	if !ok {
		return api.Agent{}, false
	}
	return copyAgent(a), true
}

// SelectedID returns the selected agent id, zero if none.
func (m *Manager) SelectedID() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selected
}

// SetDraft stores the not-yet-sent outgoing message text.
func (m *Manager) SetDraft(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.draft = text
}

// Draft returns the current outgoing message text.
func (m *Manager) Draft() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.draft
}

// Streaming reports whether a reply is pending for the given agent.
func (m *Manager) Streaming(agentID int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inFlight[agentID]
}

// Busy reports whether a reply is pending for the selected agent.
func (m *Manager) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inFlight[m.selected]
}

// copyAgent clones an agent including its file list and history so callers
// never share backing arrays with the arena.
func copyAgent(a *api.Agent) api.Agent {
	out := *a
	out.Files = append([]api.FileInfo(nil), a.Files...)
	out.History = append([]api.Message(nil), a.History...)
	return out
}

// resolved returns a channel that already carries the given outcome. Used
// for no-op operations so callers can always await the result.
func resolved(err error) <-chan error {
	ch := make(chan error, 1)
	ch <- err
	close(ch)
	return ch
}

// saveHistoryCache persists an agent's history snapshot, best-effort.
// Called without the lock held; messages must already be a private copy.
func (m *Manager) saveHistoryCache(agentID int, messages []api.Message) {
	if m.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.cache.SaveHistory(ctx, agentID, messages); err != nil {
		m.logger.Error("failed to cache history", "error", err, "agent_id", agentID)
	}
}
