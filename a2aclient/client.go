package a2aclient

import (
	"context"

	"github.com/a2arelay/a2arelay/a2a"
	"github.com/a2arelay/a2arelay/a2a/fold"
	"github.com/a2arelay/a2arelay/a2aclient/interceptor"
)

// Client is the caller-facing facade: a resolved AgentCard bound to one
// concrete Transport, with the client-side task fold applied to streaming
// calls so a caller always sees a task snapshot, not a raw event sequence.
type Client struct {
	Card      *a2a.AgentCard
	Transport Transport
}

// NewClient resolves an AgentCard at url, selects a transport, and returns
// a ready-to-use Client. This is the common entry point; callers who
// already hold a card can build a Transport via Factory.Build and construct
// a Client directly instead.
func NewClient(ctx context.Context, factory *Factory, url string, cfg Config, interceptors []interceptor.Interceptor) (*Client, error) {
	transport, card, err := factory.BuildFromURL(ctx, url, cfg, interceptors)
	if err != nil {
		return nil, err
	}
	return &Client{Card: card, Transport: transport}, nil
}

// StreamResult is what SendMessageStream folds a stream down to: either a
// direct-reply Message, or the final Task snapshot plus every raw event
// observed (for callers that want the incremental view too).
type StreamResult struct {
	Task    *a2a.Task
	Message *a2a.Message
	Events  []a2a.Event
}

// SendMessage implements the non-streaming send_message operation.
func (c *Client) SendMessage(ctx context.Context, params a2a.MessageSendParams) (*a2a.Task, *a2a.Message, error) {
	return c.Transport.SendMessage(ctx, params)
}

// SendMessageStream implements send_message_streaming, folding the wire
// events into a StreamResult as they arrive. The fold must match the
// server's fold given the same event prefix.
func (c *Client) SendMessageStream(ctx context.Context, params a2a.MessageSendParams) (*StreamResult, error) {
	events, errs, err := c.Transport.SendMessageStream(ctx, params)
	if err != nil {
		return nil, err
	}
	return foldStream(events, errs)
}

// Resubscribe implements resubscribe, folding the resumed stream the same
// way SendMessageStream does.
func (c *Client) Resubscribe(ctx context.Context, params a2a.TaskIDParams) (*StreamResult, error) {
	events, errs, err := c.Transport.Resubscribe(ctx, params)
	if err != nil {
		return nil, err
	}
	return foldStream(events, errs)
}

func foldStream(events <-chan a2a.Event, errs <-chan error) (*StreamResult, error) {
	f := fold.New()
	result := &StreamResult{}
	for events != nil || errs != nil {
		select {
		case e, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			result.Events = append(result.Events, e)
			if err := f.Apply(e); err != nil {
				return result, err
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				return result, err
			}
		}
	}
	result.Task = f.Task()
	result.Message = f.Message()
	return result, nil
}

// GetTask implements get_task.
func (c *Client) GetTask(ctx context.Context, params a2a.TaskQueryParams) (*a2a.Task, error) {
	return c.Transport.GetTask(ctx, params)
}

// CancelTask implements cancel_task.
func (c *Client) CancelTask(ctx context.Context, params a2a.TaskIDParams) (*a2a.Task, error) {
	return c.Transport.CancelTask(ctx, params)
}

// SetTaskCallback implements set_task_callback.
func (c *Client) SetTaskCallback(ctx context.Context, cfg a2a.TaskPushNotificationConfig) (*a2a.TaskPushNotificationConfig, error) {
	return c.Transport.SetTaskCallback(ctx, cfg)
}

// GetTaskCallback implements get_task_callback.
func (c *Client) GetTaskCallback(ctx context.Context, params a2a.GetTaskPushNotificationConfigParams) (*a2a.TaskPushNotificationConfig, error) {
	return c.Transport.GetTaskCallback(ctx, params)
}

// GetCard re-fetches the agent card over the selected transport (useful
// after an authenticated-extended-card upgrade invalidates the cached one).
func (c *Client) GetCard(ctx context.Context) (*a2a.AgentCard, error) {
	return c.Transport.GetCard(ctx)
}
