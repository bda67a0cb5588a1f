// Package inspector talks to a process's V8 inspector endpoint: it discovers
// debug targets over the /json HTTP surface and drives CPU profiling
// sessions over the DevTools WebSocket protocol. It consumes the tree's node
// records but never touches reconciliation state.
package inspector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
)

// DebugTarget is one entry of the inspector's /json/list response.
type DebugTarget struct {
	ID                   string `json:"id"`
	Title                string `json:"title"`
	Type                 string `json:"type"`
	URL                  string `json:"url"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// Discover queries the inspector listening on port for its debug targets
// and returns the first one exposing a WebSocket debugger URL. The endpoint
// can be briefly unavailable right after a process enables its inspector,
// so the request retries a couple of times.
func Discover(ctx context.Context, port int) (*DebugTarget, error) {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.Logger = nil

	url := fmt.Sprintf("http://127.0.0.1:%d/json/list", port)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build discovery request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inspector not reachable on port %d: %w", port, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inspector on port %d answered %s", port, resp.Status)
	}

	var targets []DebugTarget
	if err := json.NewDecoder(resp.Body).Decode(&targets); err != nil {
		return nil, fmt.Errorf("failed to decode target list from port %d: %w", port, err)
	}

	for _, t := range targets {
		if t.WebSocketDebuggerURL != "" {
			target := t
			return &target, nil
		}
	}
	return nil, fmt.Errorf("inspector on port %d exposes no attachable target", port)
}
