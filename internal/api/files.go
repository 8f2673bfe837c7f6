// ABOUTME: Document calls: fetch a file's PDF stream and delete a file.
// ABOUTME: FetchFile hands the raw body to the caller, who must close it.

package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// FetchFile streams a document's content (a PDF). The caller must close
// the returned reader.
func (c *Client) FetchFile(ctx context.Context, fileID int) (io.ReadCloser, error) {
	url := fmt.Sprintf("%s/api/files/%d", c.baseURL, fileID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching file %d: %w", fileID, err)
	}
	return resp.Body, nil
}

// DeleteFile removes a single uploaded document from its agent.
func (c *Client) DeleteFile(ctx context.Context, fileID int) error {
	url := fmt.Sprintf("%s/api/files/%d", c.baseURL, fileID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if err := c.doJSON(req, nil); err != nil {
		return fmt.Errorf("deleting file %d: %w", fileID, err)
	}
	return nil
}
