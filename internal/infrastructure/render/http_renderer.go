// Package render turns persisted invoices into printable documents by
// delegating to an external rendering service over HTTP.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"clinibill/internal/domain/billing"
	"clinibill/internal/domain/documents/invoice"
)

const defaultTimeout = 30 * time.Second

// HTTPRenderer posts the invoice payload to a rendering service and returns
// the document bytes it produces. Implements billing.Renderer.
type HTTPRenderer struct {
	endpoint string
	client   *http.Client
}

var _ billing.Renderer = (*HTTPRenderer)(nil)

// NewHTTPRenderer creates a renderer client for the given endpoint.
func NewHTTPRenderer(endpoint string) *HTTPRenderer {
	return &HTTPRenderer{
		endpoint: endpoint,
		client:   &http.Client{Timeout: defaultTimeout},
	}
}

// renderRequest is the payload sent to the rendering service.
type renderRequest struct {
	Invoice *invoice.Invoice `json:"invoice"`
	Lines   []invoice.Line   `json:"lines"`
}

// Render requests a rendered document. Callers treat failures as
// best-effort: the invoice stays valid without the artifact.
func (r *HTTPRenderer) Render(ctx context.Context, inv *invoice.Invoice, lines []invoice.Line) ([]byte, error) {
	body, err := json.Marshal(renderRequest{Invoice: inv, Lines: lines})
	if err != nil {
		return nil, fmt.Errorf("marshal render request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build render request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call renderer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("renderer returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read rendered document: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("renderer returned empty document")
	}

	return data, nil
}
