// Package push implements webhook delivery: on a Task snapshot change,
// POST the task body to every configured callback URL, with bounded
// retries. Delivery failures are logged and never surface to the task
// itself.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"

	"github.com/a2arelay/a2arelay/a2a"
	"github.com/a2arelay/a2arelay/a2asrv/taskstore"
	"github.com/a2arelay/a2arelay/logger"
)

// MaxRetries bounds the number of delivery attempts per notification.
const MaxRetries = 5

// Notifier implements a2asrv.PushNotificationSender.
type Notifier struct {
	configs    taskstore.PushConfigStore
	httpClient *http.Client

	mu       sync.Mutex
	limiters map[string]*rate.Limiter // callback URL -> limiter
}

// NewNotifier wires a Notifier to a PushNotificationConfigStore and an
// HTTP client (the teacher's httputil.NewHTTPClient convention).
func NewNotifier(configs taskstore.PushConfigStore, httpClient *http.Client) *Notifier {
	return &Notifier{configs: configs, httpClient: httpClient, limiters: make(map[string]*rate.Limiter)}
}

// Send submits a best-effort, non-blocking notification for every
// callback configured for task.ID.
func (n *Notifier) Send(ctx context.Context, task a2a.Task) {
	cfgs, err := n.configs.List(task.ID)
	if err != nil || len(cfgs) == 0 {
		return
	}
	body, err := json.Marshal(task)
	if err != nil {
		logger.Warn("push notifier: marshal task failed", "taskId", task.ID, "err", err)
		return
	}
	for _, cfg := range cfgs {
		go n.deliver(ctx, cfg.PushNotificationConfig, body)
	}
}

func (n *Notifier) deliver(ctx context.Context, cfg a2a.PushNotificationConfig, body []byte) {
	limiter := n.limiterFor(cfg.URL)
	op := func() (struct{}, error) {
		if err := limiter.Wait(ctx); err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, bytes.NewReader(body))
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if cfg.Token != "" {
			req.Header.Set("Authorization", "Bearer "+cfg.Token)
		}
		resp, err := n.httpClient.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 500 {
			return struct{}{}, &retriableStatus{resp.StatusCode}
		}
		if resp.StatusCode >= 400 {
			return struct{}{}, backoff.Permanent(&retriableStatus{resp.StatusCode})
		}
		return struct{}{}, nil
	}

	_, err := backoff.Retry(ctx, op, backoff.WithMaxTries(MaxRetries))
	if err != nil {
		logger.Warn("push notifier: delivery failed", "url", cfg.URL, "err", err)
	}
}

func (n *Notifier) limiterFor(url string) *rate.Limiter {
	n.mu.Lock()
	defer n.mu.Unlock()
	l, ok := n.limiters[url]
	if !ok {
		l = rate.NewLimiter(rate.Every(time.Second), 5)
		n.limiters[url] = l
	}
	return l
}

type retriableStatus struct{ code int }

func (e *retriableStatus) Error() string {
	return http.StatusText(e.code)
}
