// Package rest implements the HTTP+JSON transport client, the
// counterpart to a2asrv/rest: plain REST calls instead of a JSON-RPC
// envelope, but the same incremental SSE line scanner as a2aclient/jsonrpc,
// grounded on the same teacher SSE-reading pattern that never buffers the
// full body.
package rest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"

	"github.com/a2arelay/a2arelay/a2a"
)

// Client is an HTTP+JSON transport client for one agent endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
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
// card).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{baseURL: strings.TrimSuffix(baseURL, "/"), httpClient: http.DefaultClient}
	for _, opt := range opts {
		opt(c)
	}
	return c
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

func (c *Client) newRequest(ctx context.Context, method, path string, body any, accept string) (*http.Request, error) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, a2a.NewJSONError("encoding request body", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if len(c.extensions) > 0 {
		req.Header.Set("X-A2A-Extensions", strings.Join(c.extensions, ","))
	}
	otel.GetTextMapPropagator().Inject(ctx, propagationCarrier{req.Header})
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	req, err := c.newRequest(ctx, method, path, body, "application/json")
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return a2a.NewHTTPError(0, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeErrBody(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return a2a.NewJSONError("decoding response body", err)
	}
	return nil
}

func decodeErrBody(resp *http.Response) error {
	var body struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Data    any    `json:"data"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body.Message == "" {
		body.Message = fmt.Sprintf("unexpected status %d", resp.StatusCode)
	}
	return a2a.NewHTTPError(resp.StatusCode, body.Message)
}

// SendMessage implements send_message.
func (c *Client) SendMessage(ctx context.Context, params a2a.MessageSendParams) (*a2a.Task, *a2a.Message, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodPost, "/v1/message:send", params, &raw); err != nil {
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
	path := "/v1/tasks/" + url.PathEscape(params.ID)
	if params.HistoryLength > 0 {
		path += "?historyLength=" + strconv.Itoa(params.HistoryLength)
	}
	var task a2a.Task
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// CancelTask implements cancel_task.
func (c *Client) CancelTask(ctx context.Context, params a2a.TaskIDParams) (*a2a.Task, error) {
	var task a2a.Task
	path := "/v1/tasks/" + url.PathEscape(params.ID) + ":cancel"
	if err := c.doJSON(ctx, http.MethodPost, path, nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// SetTaskCallback implements set_task_callback.
func (c *Client) SetTaskCallback(ctx context.Context, cfg a2a.TaskPushNotificationConfig) (*a2a.TaskPushNotificationConfig, error) {
	var out a2a.TaskPushNotificationConfig
	path := "/v1/tasks/" + url.PathEscape(cfg.TaskID) + "/pushNotificationConfigs"
	if err := c.doJSON(ctx, http.MethodPost, path, cfg.PushNotificationConfig, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTaskCallback implements get_task_callback. The server always responds
// with the full TaskPushNotificationConfig shape.
func (c *Client) GetTaskCallback(ctx context.Context, params a2a.GetTaskPushNotificationConfigParams) (*a2a.TaskPushNotificationConfig, error) {
	var out a2a.TaskPushNotificationConfig
	path := "/v1/tasks/" + url.PathEscape(params.ID) + "/pushNotificationConfigs/" + url.PathEscape(params.PushNotificationConfigID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// streamCall issues a streaming GET/POST and returns a channel of decoded
// events, reading SSE frames incrementally off the response body.
func (c *Client) streamCall(ctx context.Context, method, path string, body any) (<-chan a2a.Event, <-chan error, error) {
	req, err := c.newRequest(ctx, method, path, body, "text/event-stream")
	if err != nil {
		return nil, nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, a2a.NewHTTPError(0, err.Error())
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, nil, decodeErrBody(resp)
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

			var frame a2a.SSEFrame
			if err := json.Unmarshal([]byte(line), &frame); err != nil {
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
	return c.streamCall(ctx, http.MethodPost, "/v1/message:stream", params)
}

// Resubscribe implements resubscribe.
func (c *Client) Resubscribe(ctx context.Context, params a2a.TaskIDParams) (<-chan a2a.Event, <-chan error, error) {
	path := "/v1/tasks/" + url.PathEscape(params.ID) + ":subscribe"
	return c.streamCall(ctx, http.MethodGet, path, nil)
}

// GetCard implements get_card by fetching the agent card via the transport
// (distinct from the unauthenticated well-known GET done by the
// CardResolver's discovery fetch).
func (c *Client) GetCard(ctx context.Context) (*a2a.AgentCard, error) {
	var card a2a.AgentCard
	if err := c.doJSON(ctx, http.MethodGet, "/v1/card", nil, &card); err != nil {
		return nil, err
	}
	return &card, nil
}
