// Package jsonrpc implements the JSON-RPC 2.0 transport client, grounded
// on the teacher's runtime/a2a/client.go: same envelope, same otel
// propagation-on-headers, same incremental SSE line scanner — the
// teacher's ReadSSE already scans line-by-line rather than buffering, so
// no behavior change was needed there; what changes here is the uniform
// a2a.Event model it deserializes into.
package jsonrpc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	"go.opentelemetry.io/otel"

	"github.com/a2arelay/a2arelay/a2a"
)

// Client is a JSON-RPC 2.0 + SSE transport client for one agent endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	reqID      atomic.Int64
	extensions []string
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithExtensions sets the extension URIs sent as X-A2A-Extensions.
func WithExtensions(uris ...string) Option {
	return func(cl *Client) { cl.extensions = uris }
}

// New returns a Client bound to baseURL (the transport URL from the agent
// card, not the well-known card path).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{baseURL: baseURL, httpClient: http.DefaultClient}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) nextID() int64 { return c.reqID.Add(1) }

func (c *Client) newRequest(ctx context.Context, method string, params any, accept string) (*http.Request, error) {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, a2a.NewJSONError("encoding request params", err)
	}
	envelope := a2a.JSONRPCRequest{JSONRPC: "2.0", ID: c.nextID(), Method: method, Params: paramsJSON}
	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, a2a.NewJSONError("encoding request envelope", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if len(c.extensions) > 0 {
		req.Header.Set("X-A2A-Extensions", strings.Join(c.extensions, ","))
	}
	otel.GetTextMapPropagator().Inject(ctx, propagationCarrier{req.Header})
	return req, nil
}

type propagationCarrier struct{ h http.Header }

func (p propagationCarrier) Get(key string) string { return p.h.Get(key) }
func (p propagationCarrier) Set(key, val string)    { p.h.Set(key, val) }
func (p propagationCarrier) Keys() []string {
	keys := make([]string, 0, len(p.h))
	for k := range p.h {
		keys = append(keys, k)
	}
	return keys
}

// call performs one non-streaming JSON-RPC round trip and returns the raw
// result payload.
func (c *Client) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	req, err := c.newRequest(ctx, method, params, "application/json")
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, a2a.NewHTTPError(0, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, a2a.NewHTTPError(resp.StatusCode, fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	var rpcResp a2a.JSONRPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, a2a.NewJSONError("decoding response envelope", err)
	}
	if rpcResp.Error != nil {
		return nil, a2a.NewRPCError(rpcResp.Error.Code, rpcResp.Error.Message, rpcResp.Error.Data)
	}
	return rpcResp.Result, nil
}

// SendMessage implements send_message.
func (c *Client) SendMessage(ctx context.Context, params a2a.MessageSendParams) (*a2a.Task, *a2a.Message, error) {
	raw, err := c.call(ctx, a2a.MethodSendMessage, params)
	if err != nil {
		return nil, nil, err
	}
	return decodeTaskOrMessage(raw)
}

func decodeTaskOrMessage(raw json.RawMessage) (*a2a.Task, *a2a.Message, error) {
	var probe struct {
		MessageID string `json:"messageId"`
	}
	if err := json.Unmarshal(raw, &probe); err == nil && probe.MessageID != "" {
		var msg a2a.Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, nil, a2a.NewJSONError("decoding message result", err)
		}
		return nil, &msg, nil
	}
	var task a2a.Task
	if err := json.Unmarshal(raw, &task); err != nil {
		return nil, nil, a2a.NewJSONError("decoding task result", err)
	}
	return &task, nil, nil
}

// GetTask implements get_task.
func (c *Client) GetTask(ctx context.Context, params a2a.TaskQueryParams) (*a2a.Task, error) {
	raw, err := c.call(ctx, a2a.MethodGetTask, params)
	if err != nil {
		return nil, err
	}
	var task a2a.Task
	if err := json.Unmarshal(raw, &task); err != nil {
		return nil, a2a.NewJSONError("decoding task", err)
	}
	return &task, nil
}

// CancelTask implements cancel_task.
func (c *Client) CancelTask(ctx context.Context, params a2a.TaskIDParams) (*a2a.Task, error) {
	raw, err := c.call(ctx, a2a.MethodCancelTask, params)
	if err != nil {
		return nil, err
	}
	var task a2a.Task
	if err := json.Unmarshal(raw, &task); err != nil {
		return nil, a2a.NewJSONError("decoding task", err)
	}
	return &task, nil
}

// SetTaskCallback implements set_task_callback.
func (c *Client) SetTaskCallback(ctx context.Context, cfg a2a.TaskPushNotificationConfig) (*a2a.TaskPushNotificationConfig, error) {
	raw, err := c.call(ctx, a2a.MethodSetPushConfig, cfg)
	if err != nil {
		return nil, err
	}
	var out a2a.TaskPushNotificationConfig
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, a2a.NewJSONError("decoding push config", err)
	}
	return &out, nil
}

// GetTaskCallback implements get_task_callback. The server always emits the
// full TaskPushNotificationConfig shape.
func (c *Client) GetTaskCallback(ctx context.Context, params a2a.GetTaskPushNotificationConfigParams) (*a2a.TaskPushNotificationConfig, error) {
	raw, err := c.call(ctx, a2a.MethodGetPushConfig, params)
	if err != nil {
		return nil, err
	}
	var out a2a.TaskPushNotificationConfig
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, a2a.NewJSONError("decoding push config", err)
	}
	return &out, nil
}

// streamCall issues a streaming JSON-RPC request and returns a channel of
// decoded events, reading SSE frames incrementally off the response body
// never buffer the full body.
func (c *Client) streamCall(ctx context.Context, method string, params any) (<-chan a2a.Event, <-chan error, error) {
	req, err := c.newRequest(ctx, method, params, "text/event-stream")
	if err != nil {
		return nil, nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, a2a.NewHTTPError(0, err.Error())
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, nil, a2a.NewHTTPError(resp.StatusCode, fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	events := make(chan a2a.Event)
	errs := make(chan error, 1)

	go func() {
		defer close(events)
		defer close(errs)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		var data strings.Builder

		emit := func() bool {
			if data.Len() == 0 {
				return true
			}
			line := data.String()
			data.Reset()

			var envelope a2a.JSONRPCResponse
			if err := json.Unmarshal([]byte(line), &envelope); err != nil {
				errs <- a2a.NewJSONError("decoding SSE frame envelope", err)
				return false
			}
			if envelope.Error != nil {
				errs <- a2a.NewRPCError(envelope.Error.Code, envelope.Error.Message, envelope.Error.Data)
				return false
			}
			payload := envelope.Result
			if payload == nil {
				payload = json.RawMessage(line)
			}
			var frame a2a.SSEFrame
			if err := json.Unmarshal(payload, &frame); err != nil {
				errs <- a2a.NewJSONError("decoding SSE frame", err)
				return false
			}
			event, ok := a2a.DecodeEventFrame(frame)
			if !ok {
				return true
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return false
			}
			return true
		}

		for scanner.Scan() {
			select {
			case <-ctx.Done():
				return
			default:
			}

			line := scanner.Text()
			switch {
			case line == "":
				if !emit() {
					return
				}
			case strings.HasPrefix(line, ":"):
				// comment/heartbeat
			case strings.HasPrefix(line, "data:"):
				data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
			}
		}
		if err := scanner.Err(); err != nil {
			errs <- a2a.NewJSONError("reading SSE stream", err)
			return
		}
		emit()
	}()

	return events, errs, nil
}

// SendMessageStream implements send_message_streaming.
func (c *Client) SendMessageStream(ctx context.Context, params a2a.MessageSendParams) (<-chan a2a.Event, <-chan error, error) {
	return c.streamCall(ctx, a2a.MethodSendMessageStream, params)
}

// Resubscribe implements resubscribe.
func (c *Client) Resubscribe(ctx context.Context, params a2a.TaskIDParams) (<-chan a2a.Event, <-chan error, error) {
	return c.streamCall(ctx, a2a.MethodResubscribe, params)
}

// GetCard implements get_card by fetching the authenticated extended card
// via the transport (distinct from the unauthenticated well-known GET done
// by the CardResolver's discovery fetch).
func (c *Client) GetCard(ctx context.Context) (*a2a.AgentCard, error) {
	raw, err := c.call(ctx, a2a.MethodGetExtendedCard, struct{}{})
	if err != nil {
		return nil, err
	}
	var card a2a.AgentCard
	if err := json.Unmarshal(raw, &card); err != nil {
		return nil, a2a.NewJSONError("decoding agent card", err)
	}
	return &card, nil
}
