// ABOUTME: Conversation calls: fetch an agent's history and send a message.
// ABOUTME: SendMessage blocks for the full round trip; streaming happens above this layer.

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// GetMessages fetches an agent's full conversation history, oldest first.
func (c *Client) GetMessages(ctx context.Context, agentID int) ([]Message, error) {
	url := fmt.Sprintf("%s/api/agents/%d/messages", c.baseURL, agentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var messages []Message
	if err := c.doJSON(req, &messages); err != nil {
		return nil, fmt.Errorf("fetching messages for agent %d: %w", agentID, err)
	}
	return messages, nil
}

// SendMessage posts a user message to an agent and returns the bot reply
// text. The backend records both sides of the exchange.
func (c *Client) SendMessage(ctx context.Context, agentID int, text string) (string, error) {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/api/agents/%d/messages", c.baseURL, agentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var reply Message
	if err := c.doJSON(req, &reply); err != nil {
		return "", fmt.Errorf("sending message to agent %d: %w", agentID, err)
	}
	return reply.Text, nil
}
