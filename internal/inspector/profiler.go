package inspector

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// cdpRequest is one DevTools protocol command.
type cdpRequest struct {
	ID     int             `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// cdpResponse is a command reply or an event; events carry no ID.
type cdpResponse struct {
	ID     int             `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *cdpError       `json:"error"`
	Method string          `json:"method"`
}

type cdpError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *cdpError) Error() string {
	return fmt.Sprintf("devtools error %d: %s", e.Code, e.Message)
}

// Session is a running CPU profiling session against one debug target.
// End it with Stop (writes the artifact) or Discard (drops it).
type Session struct {
	conn   *websocket.Conn
	nextID int
}

// StartProfile dials the target's debugger WebSocket and starts the V8 CPU
// profiler. The returned session keeps the connection open; profiling runs
// inside the target until Stop or Discard.
func StartProfile(ctx context.Context, wsURL string) (*Session, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial debug target %s: %w", wsURL, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	s := &Session{conn: conn, nextID: 1}
	if _, err := s.call(ctx, "Profiler.enable"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable profiler: %w", err)
	}
	if _, err := s.call(ctx, "Profiler.start"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to start profiler: %w", err)
	}
	return s, nil
}

// call sends one command and reads frames until its reply arrives,
// discarding interleaved protocol events.
func (s *Session) call(ctx context.Context, method string) (json.RawMessage, error) {
	id := s.nextID
	s.nextID++

	deadline := time.Now().Add(30 * time.Second)
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	s.conn.SetWriteDeadline(deadline)
	s.conn.SetReadDeadline(deadline)

	if err := s.conn.WriteJSON(cdpRequest{ID: id, Method: method}); err != nil {
		return nil, fmt.Errorf("failed to send %s: %w", method, err)
	}

	for {
		var msg cdpResponse
		if err := s.conn.ReadJSON(&msg); err != nil {
			return nil, fmt.Errorf("failed to read reply to %s: %w", method, err)
		}
		if msg.Method != "" && msg.ID == 0 {
			continue // event, not our reply
		}
		if msg.ID != id {
			continue
		}
		if msg.Error != nil {
			return nil, msg.Error
		}
		return msg.Result, nil
	}
}

// Stop ends the profiling session and writes the captured profile to dir as
// <uuid>.cpuprofile, returning the artifact path.
func (s *Session) Stop(ctx context.Context, dir string) (string, error) {
	defer s.conn.Close()

	result, err := s.call(ctx, "Profiler.stop")
	if err != nil {
		return "", fmt.Errorf("failed to stop profiler: %w", err)
	}

	var payload struct {
		Profile json.RawMessage `json:"profile"`
	}
	if err := json.Unmarshal(result, &payload); err != nil {
		return "", fmt.Errorf("failed to decode profile payload: %w", err)
	}
	if len(payload.Profile) == 0 {
		return "", fmt.Errorf("profiler returned an empty profile")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create profile directory: %w", err)
	}
	path := filepath.Join(dir, uuid.NewString()+".cpuprofile")
	if err := os.WriteFile(path, payload.Profile, 0644); err != nil {
		return "", fmt.Errorf("failed to write profile artifact: %w", err)
	}
	return path, nil
}

// Discard ends the session without keeping a profile.
func (s *Session) Discard() error {
	defer s.conn.Close()
	// Best effort: the target drops the in-progress profile when the
	// connection goes away, but stopping first is tidier.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := s.call(ctx, "Profiler.stop"); err != nil {
		return fmt.Errorf("failed to stop profiler on discard: %w", err)
	}
	return nil
}
