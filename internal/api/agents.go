// ABOUTME: Agent directory calls: list, create, update, delete.
// ABOUTME: Create and update send multipart forms with name, prompt, and files.

package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// ListAgents fetches all agents owned by the authenticated user.
func (c *Client) ListAgents(ctx context.Context) ([]Agent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/agents", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var agents []Agent
	if err := c.doJSON(req, &agents); err != nil {
		return nil, fmt.Errorf("fetching agents: %w", err)
	}
	return agents, nil
}

// CreateAgent creates a new agent with the given name, prompt, and optional
// document uploads. The backend assigns the id.
func (c *Client) CreateAgent(ctx context.Context, name, prompt string, files []FileUpload) (*Agent, error) {
	body, contentType, err := agentForm(name, prompt, files)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/agents", body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	var agent Agent
	if err := c.doJSON(req, &agent); err != nil {
		return nil, fmt.Errorf("creating agent: %w", err)
	}
	return &agent, nil
}

// UpdateAgent replaces an agent's name and prompt and appends any new
// document uploads. Existing files are removed separately via DeleteFile.
func (c *Client) UpdateAgent(ctx context.Context, id int, name, prompt string, files []FileUpload) (*Agent, error) {
	body, contentType, err := agentForm(name, prompt, files)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/api/agents/%d", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	var agent Agent
	if err := c.doJSON(req, &agent); err != nil {
		return nil, fmt.Errorf("updating agent %d: %w", id, err)
	}
	return &agent, nil
}

// DeleteAgent removes an agent and, server-side, its documents and history.
func (c *Client) DeleteAgent(ctx context.Context, id int) error {
	url := fmt.Sprintf("%s/api/agents/%d", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if err := c.doJSON(req, nil); err != nil {
		return fmt.Errorf("deleting agent %d: %w", id, err)
	}
	return nil
}

// agentForm builds the multipart body shared by CreateAgent and UpdateAgent.
func agentForm(name, prompt string, files []FileUpload) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("name", name); err != nil {
		return nil, "", fmt.Errorf("writing form: %w", err)
	}
	if err := w.WriteField("prompt", prompt); err != nil {
		return nil, "", fmt.Errorf("writing form: %w", err)
	}
	for _, f := range files {
		part, err := w.CreateFormFile("files", f.Name)
		if err != nil {
			return nil, "", fmt.Errorf("writing form file %q: %w", f.Name, err)
		}
		if _, err := part.Write(f.Content); err != nil {
			return nil, "", fmt.Errorf("writing form file %q: %w", f.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing form: %w", err)
	}

	return &buf, w.FormDataContentType(), nil
}
