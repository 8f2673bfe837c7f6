// ABOUTME: SQLite implementation of the local cache using modernc.org/sqlite
// ABOUTME: Provides agent/history persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/sablelabs/docchat/internal/api"
)

// SQLiteStore caches agents and conversation histories on disk.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite cache at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("local cache initialized", "path", path)
	return s, nil
}

// createSchema creates the cache tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS agents (
			id     INTEGER PRIMARY KEY,
			name   TEXT NOT NULL,
			prompt TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS messages (
			agent_id   INTEGER NOT NULL,
			seq        INTEGER NOT NULL,
			message_id INTEGER NOT NULL DEFAULT 0,
			sender     TEXT NOT NULL,
			text       TEXT NOT NULL,

			PRIMARY KEY (agent_id, seq),
			FOREIGN KEY (agent_id) REFERENCES agents(id) ON DELETE CASCADE,
			CHECK (sender IN ('user', 'bot'))
		);

		CREATE INDEX IF NOT EXISTS idx_messages_agent ON messages(agent_id, seq);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// SaveAgents replaces the cached agent directory with the given list.
// Histories of agents still present are kept; rows for agents no longer
// listed are removed along with their messages.
func (s *SQLiteStore) SaveAgents(ctx context.Context, agents []api.Agent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	keep := make([]any, 0, len(agents))
	for _, a := range agents {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO agents (id, name, prompt) VALUES (?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET name=excluded.name, prompt=excluded.prompt`,
			a.ID, a.Name, a.Prompt); err != nil {
			return fmt.Errorf("upserting agent %d: %w", a.ID, err)
		}
		keep = append(keep, a.ID)
	}

	if len(keep) == 0 {
		if _, err := tx.ExecContext(ctx, "DELETE FROM agents"); err != nil {
			return fmt.Errorf("clearing agents: %w", err)
		}
	} else {
		placeholders := "?"
		for i := 1; i < len(keep); i++ {
			placeholders += ",?"
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM agents WHERE id NOT IN ("+placeholders+")", keep...); err != nil {
			return fmt.Errorf("pruning removed agents: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing agents: %w", err)
	}
	return nil
}

// ListAgents returns the cached agent directory ordered by id. Histories
// are not populated; use GetHistory per agent.
func (s *SQLiteStore) ListAgents(ctx context.Context) ([]api.Agent, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, prompt FROM agents ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying agents: %w", err)
	}
	defer rows.Close()

	var agents []api.Agent
	for rows.Next() {
		var a api.Agent
		if err := rows.Scan(&a.ID, &a.Name, &a.Prompt); err != nil {
			return nil, fmt.Errorf("scanning agent: %w", err)
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// SaveHistory replaces the cached conversation for one agent. The agent
// row is created if the directory has not been cached yet.
func (s *SQLiteStore) SaveHistory(ctx context.Context, agentID int, messages []api.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO agents (id, name, prompt) VALUES (?, '', '')",
		agentID); err != nil {
		return fmt.Errorf("ensuring agent row: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM messages WHERE agent_id = ?", agentID); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	for seq, msg := range messages {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO messages (agent_id, seq, message_id, sender, text) VALUES (?, ?, ?, ?, ?)",
			agentID, seq, msg.ID, string(msg.Sender), msg.Text); err != nil {
			return fmt.Errorf("inserting message %d: %w", seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing history: %w", err)
	}

	s.logger.Debug("history cached", "agent_id", agentID, "count", len(messages))
	return nil
}

// GetHistory returns the cached conversation for one agent in send order.
// An unknown agent yields an empty slice, not an error.
func (s *SQLiteStore) GetHistory(ctx context.Context, agentID int) ([]api.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT message_id, sender, text FROM messages WHERE agent_id = ? ORDER BY seq", agentID)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var messages []api.Message
	for rows.Next() {
		var msg api.Message
		var sender string
		if err := rows.Scan(&msg.ID, &sender, &msg.Text); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msg.Sender = api.Role(sender)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// DeleteAgent removes one agent and its cached history.
func (s *SQLiteStore) DeleteAgent(ctx context.Context, agentID int) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM agents WHERE id = ?", agentID); err != nil {
		return fmt.Errorf("deleting agent: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
