// Package mcp talks to the automation server over JSON-RPC 2.0 on HTTP: an
// initialize handshake, one tools/list per session, then tools/call per
// intent. Transport failures are retried a bounded number of times;
// application-level tool errors are passed back to the caller untouched.
package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"webpilot/internal/apperrors"
	"webpilot/internal/application/port/output"
	"webpilot/internal/domain/entity"
)

const protocolVersion = "2024-11-05"

type Config struct {
	MaxRetries   int           // transport retries per invoke, on top of the first attempt
	RetryBackoff time.Duration // pause between attempts
	HTTPTimeout  time.Duration // per-request ceiling; browser actions can be slow
	CleanHTML    bool          // strip script/style noise from HTML payloads
	Clean        *CleanConfig
}

func DefaultConfig() Config {
	return Config{
		MaxRetries:   2,
		RetryBackoff: 500 * time.Millisecond,
		HTTPTimeout:  60 * time.Second,
		CleanHTML:    true,
	}
}

var _ output.ToolConnector = (*Connector)(nil)

type Connector struct {
	cfg    Config
	logger output.LoggerPort
	httpc  *http.Client
}

func NewConnector(cfg Config, logger output.LoggerPort) *Connector {
	return &Connector{
		cfg:    cfg,
		logger: logger,
		httpc:  &http.Client{Timeout: cfg.HTTPTimeout},
	}
}

// Open performs the handshake against the handle's endpoint and fetches the
// tool catalog. Any rejection here is a CONNECTION_ERROR: without a session
// and a catalog no task can make progress.
func (c *Connector) Open(ctx context.Context, handle *entity.ServerHandle) (output.ToolSession, error) {
	s := &Session{
		endpoint: handle.Endpoint,
		cfg:      c.cfg,
		logger:   c.logger,
		httpc:    c.httpc,
	}

	initParams := map[string]interface{}{
		"protocolVersion": protocolVersion,
		"capabilities":    map[string]interface{}{},
		"clientInfo": map[string]interface{}{
			"name":    "webpilot",
			"version": "1.0.0",
		},
	}
	if _, err := s.call(ctx, "initialize", initParams, true); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConnectionError, err,
			fmt.Sprintf("handshake with %s rejected", handle.Endpoint))
	}
	if err := s.notify(ctx, "notifications/initialized"); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConnectionError, err, "initialized notification")
	}

	raw, err := s.call(ctx, "tools/list", map[string]interface{}{}, false)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConnectionError, err, "tools/list")
	}
	var listed struct {
		Tools []struct {
			Name        string                 `json:"name"`
			Description string                 `json:"description"`
			InputSchema map[string]interface{} `json:"inputSchema"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(raw, &listed); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConnectionError, err, "decode tool catalog")
	}

	descriptors := make([]entity.ToolDescriptor, 0, len(listed.Tools))
	for _, t := range listed.Tools {
		descriptors = append(descriptors, entity.ToolDescriptor{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}
	s.catalog = entity.NewToolCatalog(descriptors)

	c.logger.Info("Tool session opened", "endpoint", handle.Endpoint, "tools", s.catalog.Len())
	return s, nil
}

var _ output.ToolSession = (*Session)(nil)

type Session struct {
	endpoint string
	cfg      Config
	logger   output.LoggerPort
	httpc    *http.Client
	catalog  *entity.ToolCatalog

	sessionID atomic.Value // string, set from the Mcp-Session-Id header
	nextID    atomic.Int64
	closeOnce sync.Once
	closed    atomic.Bool
}

// Catalog returns the catalog fetched at open time; it is never re-fetched.
func (s *Session) Catalog() *entity.ToolCatalog { return s.catalog }

// Invoke executes one tool call. Transport failures are retried up to
// MaxRetries with a pause in between; exhaustion surfaces as TRANSPORT_ERROR.
// A tool that ran and reported failure comes back as a ToolResult with
// IsError set, which is a legitimate outcome, not an error.
func (s *Session) Invoke(ctx context.Context, call entity.ToolCall) (*entity.ToolResult, error) {
	if s.closed.Load() {
		return nil, apperrors.New(apperrors.CodeConnectionError, "session is closed")
	}

	args := map[string]interface{}{}
	if strings.TrimSpace(call.Arguments) != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			// Malformed arguments go back to the model as a failed result so
			// it can correct itself on the next turn.
			return &entity.ToolResult{
				CallID:  call.ID,
				Payload: fmt.Sprintf("Error: arguments for %s are not valid JSON: %v", call.Name, err),
				IsError: true,
			}, nil
		}
	}

	params := map[string]interface{}{
		"name":      call.Name,
		"arguments": args,
	}

	var raw json.RawMessage
	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			s.logger.Warn("Retrying tool call after transport failure",
				"tool", call.Name, "attempt", attempt, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, apperrors.Wrap(apperrors.CodeTransportError, ctx.Err(), "invoke canceled")
			case <-time.After(s.cfg.RetryBackoff):
			}
		}

		raw, lastErr = s.call(ctx, "tools/call", params, false)
		attempts++
		if lastErr == nil {
			break
		}
		var rpcErr *rpcError
		if errors.As(lastErr, &rpcErr) {
			// The server understood the request and refused it; retrying a
			// rejected call would just repeat the rejection.
			return &entity.ToolResult{
				CallID:  call.ID,
				Payload: "Error: " + rpcErr.Message,
				IsError: true,
			}, nil
		}
		var stErr *statusError
		if errors.As(lastErr, &stErr) && !stErr.retryable() {
			// A 4xx is deterministic; repeating the request cannot change it.
			break
		}
	}
	if lastErr != nil {
		return nil, apperrors.Wrap(apperrors.CodeTransportError, lastErr,
			fmt.Sprintf("tools/call %s failed after %d attempts", call.Name, attempts))
	}

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeTransportError, err, "decode tool result")
	}

	var sb strings.Builder
	for _, block := range result.Content {
		if block.Type != "text" || block.Text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(block.Text)
	}

	payload := sb.String()
	if s.cfg.CleanHTML {
		payload = CleanPayload(payload, s.cfg.Clean)
	}
	return &entity.ToolResult{
		CallID:  call.ID,
		Payload: payload,
		IsError: result.IsError,
	}, nil
}

// Close releases the session. Idempotent; the server-side delete is best
// effort since the process teardown will reclaim everything anyway.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		if id, _ := s.sessionID.Load().(string); id != "" {
			req, err := http.NewRequest(http.MethodDelete, s.endpoint, nil)
			if err == nil {
				req.Header.Set("Mcp-Session-Id", id)
				if resp, err := s.httpc.Do(req); err == nil {
					resp.Body.Close()
				}
			}
		}
		s.logger.Info("Tool session closed", "endpoint", s.endpoint)
	})
	return nil
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      *int64      `json:"id,omitempty"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("json-rpc error %d: %s", e.Code, e.Message)
}

// statusError is an HTTP-level rejection. Server faults (5xx) are worth
// retrying; client errors (4xx) are deterministic and are not.
type statusError struct {
	method string
	code   int
	status string
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s: server returned %s: %s", e.method, e.status, e.body)
}

func (e *statusError) retryable() bool { return e.code >= 500 }

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

// call posts one JSON-RPC request and decodes the matching response, which
// may arrive as plain JSON or wrapped in an SSE stream depending on the
// server. captureSession records the Mcp-Session-Id header (handshake only).
func (s *Session) call(ctx context.Context, method string, params interface{}, captureSession bool) (json.RawMessage, error) {
	id := s.nextID.Add(1)
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: &id, Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", method, err)
	}

	resp, err := s.post(ctx, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if captureSession {
		if sid := resp.Header.Get("Mcp-Session-Id"); sid != "" {
			s.sessionID.Store(sid)
		}
	}

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &statusError{
			method: method,
			code:   resp.StatusCode,
			status: resp.Status,
			body:   string(bytes.TrimSpace(data)),
		}
	}

	var parsed rpcResponse
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		parsed, err = decodeSSE(resp.Body)
	} else {
		err = json.NewDecoder(resp.Body).Decode(&parsed)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s response: %w", method, err)
	}
	if parsed.Error != nil {
		return nil, parsed.Error
	}
	return parsed.Result, nil
}

// notify posts a JSON-RPC notification (no id, no response body expected).
func (s *Session) notify(ctx context.Context, method string) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", Method: method})
	if err != nil {
		return err
	}
	resp, err := s.post(ctx, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s: server returned %s", method, resp.Status)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

func (s *Session) post(ctx context.Context, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	if id, _ := s.sessionID.Load().(string); id != "" {
		req.Header.Set("Mcp-Session-Id", id)
	}
	return s.httpc.Do(req)
}

// decodeSSE extracts the first JSON-RPC response carried in an SSE stream.
func decodeSSE(r io.Reader) (rpcResponse, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data:") {
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
			continue
		}
		if line == "" && data.Len() > 0 {
			var parsed rpcResponse
			if err := json.Unmarshal([]byte(data.String()), &parsed); err == nil &&
				(parsed.Result != nil || parsed.Error != nil) {
				return parsed, nil
			}
			data.Reset()
		}
	}
	if data.Len() > 0 {
		var parsed rpcResponse
		if err := json.Unmarshal([]byte(data.String()), &parsed); err == nil {
			return parsed, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return rpcResponse{}, err
	}
	return rpcResponse{}, fmt.Errorf("no json-rpc response in event stream")
}
