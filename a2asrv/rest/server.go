// Package rest implements the HTTP+JSON transport server: the same
// operations as the JSON-RPC transport, mapped onto REST-shaped routes
// instead of a single RPC envelope. Grounded on a2asrv/jsonrpc's server
// (same handler wiring, same otelhttp wrapping, same incremental SSE
// writer) and on the teacher's use of net/http's ServeMux method+path
// patterns (Go 1.22+ routing, as the teacher's runtime/a2a/server.go uses).
package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/a2arelay/a2arelay/a2a"
	"github.com/a2arelay/a2arelay/a2asrv"
	"github.com/a2arelay/a2arelay/logger"
)

const (
	defaultReadHeaderTimeout = 10 * time.Second
	defaultReadTimeout       = 30 * time.Second
	defaultIdleTimeout       = 120 * time.Second
	defaultMaxBodySize       = 10 << 20
)

// Server exposes a DefaultRequestHandler over the REST wire mapping.
type Server struct {
	handler *a2asrv.DefaultRequestHandler
	card    a2a.AgentCard
	httpSrv *http.Server
}

// NewServer wires a transport server to an already-constructed request
// handler and the AgentCard to serve at /v1/card.
func NewServer(handler *a2asrv.DefaultRequestHandler, card a2a.AgentCard) *Server {
	return &Server{handler: handler, card: card}
}

// Handler returns the http.Handler implementing the REST surface.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/agent-card.json", s.handleCard)
	mux.HandleFunc("GET /v1/card", s.handleCard)
	mux.HandleFunc("POST /v1/message:send", s.handleMessageSend)
	mux.HandleFunc("POST /v1/message:stream", s.handleMessageStream)
	mux.HandleFunc("GET /v1/tasks/{id}", s.handleGetTask)
	mux.HandleFunc("POST /v1/tasks/{id}:cancel", s.handleCancelTask)
	mux.HandleFunc("GET /v1/tasks/{id}:subscribe", s.handleSubscribe)
	mux.HandleFunc("POST /v1/tasks/{id}/pushNotificationConfigs", s.handleSetPushConfig)
	mux.HandleFunc("GET /v1/tasks/{id}/pushNotificationConfigs/{configId}", s.handleGetPushConfig)
	mux.HandleFunc("GET /v1/tasks/{id}/pushNotificationConfigs", s.handleListPushConfig)
	mux.HandleFunc("DELETE /v1/tasks/{id}/pushNotificationConfigs/{configId}", s.handleDeletePushConfig)
	mux.HandleFunc("GET /v1/tasks", s.handleListTasks)
	return otelhttp.NewHandler(http.MaxBytesHandler(mux, defaultMaxBodySize), "a2a.rest")
}

// ListenAndServe starts the HTTP server on addr.
func (s *Server) ListenAndServe(addr string) error {
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		ReadTimeout:       defaultReadTimeout,
		IdleTimeout:       defaultIdleTimeout,
	}
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully drains in-flight HTTP requests and the request
// handler's background work.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			return err
		}
	}
	return s.handler.Shutdown(ctx)
}

func (s *Server) handleCard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.card)
}

func (s *Server) handleMessageSend(w http.ResponseWriter, r *http.Request) {
	var params a2a.MessageSendParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeErr(w, a2a.NewJSONError("decoding request body", err))
		return
	}
	result, err := s.handler.OnMessageSend(r.Context(), params)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleMessageStream(w http.ResponseWriter, r *http.Request) {
	var params a2a.MessageSendParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeErr(w, a2a.NewJSONError("decoding request body", err))
		return
	}
	s.streamResponse(w, r, func(ctx context.Context) (<-chan a2a.Event, error) {
		return s.handler.OnMessageSendStream(ctx, params)
	})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	params := a2a.TaskQueryParams{ID: r.PathValue("id")}
	if hl := r.URL.Query().Get("historyLength"); hl != "" {
		n, err := strconv.Atoi(hl)
		if err != nil {
			writeErr(w, a2a.NewInvalidArgsError("historyLength must be an integer"))
			return
		}
		params.HistoryLength = n
	}
	task, err := s.handler.OnGetTask(params)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleCancelTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.handler.OnCancelTask(r.Context(), a2a.TaskIDParams{ID: r.PathValue("id")})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	s.streamResponse(w, r, func(ctx context.Context) (<-chan a2a.Event, error) {
		return s.handler.OnResubscribeToTask(ctx, a2a.TaskIDParams{ID: r.PathValue("id")})
	})
}

func (s *Server) handleSetPushConfig(w http.ResponseWriter, r *http.Request) {
	var body a2a.PushNotificationConfig
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, a2a.NewJSONError("decoding request body", err))
		return
	}
	cfg := a2a.TaskPushNotificationConfig{TaskID: r.PathValue("id"), PushNotificationConfig: body}
	out, err := s.handler.OnSetTaskPushNotificationConfig(cfg)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// handleGetPushConfig always returns the full TaskPushNotificationConfig
// shape, the same way the JSON-RPC transport does: the REST GET never
// degrades to a bare PushNotificationConfig.
func (s *Server) handleGetPushConfig(w http.ResponseWriter, r *http.Request) {
	params := a2a.GetTaskPushNotificationConfigParams{ID: r.PathValue("id"), PushNotificationConfigID: r.PathValue("configId")}
	out, err := s.handler.OnGetTaskPushNotificationConfig(params)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListPushConfig(w http.ResponseWriter, r *http.Request) {
	out, err := s.handler.OnListTaskPushNotificationConfig(r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeletePushConfig(w http.ResponseWriter, r *http.Request) {
	params := a2a.GetTaskPushNotificationConfigParams{ID: r.PathValue("id"), PushNotificationConfigID: r.PathValue("configId")}
	if err := s.handler.OnDeleteTaskPushNotificationConfig(params); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	params := a2a.ListTasksParams{ContextID: r.URL.Query().Get("contextId")}
	if ps := r.URL.Query().Get("pageSize"); ps != "" {
		n, err := strconv.Atoi(ps)
		if err != nil {
			writeErr(w, a2a.NewInvalidArgsError("pageSize must be an integer"))
			return
		}
		params.PageSize = n
	}
	out, err := s.handler.OnListTasks(params)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// streamResponse writes newline-delimited JSON Server-Sent Events for each
// event the opener's channel yields, incrementally rather than buffering
// the full body, mirroring a2asrv/jsonrpc's streamResponse but framing
// bare event payloads instead of JSON-RPC-enveloped ones.
func (s *Server) streamResponse(w http.ResponseWriter, r *http.Request, open func(ctx context.Context) (<-chan a2a.Event, error)) {
	events, err := open(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErr(w, a2a.NewInvalidStateError("streaming unsupported by response writer"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for e := range events {
		frame := a2a.EncodeEventFrame(e)
		data, err := json.Marshal(frame)
		if err != nil {
			logger.Warn("rest: failed marshaling SSE frame", "err", err)
			continue
		}
		if _, err := w.Write(append(append([]byte("data: "), data...), '\n', '\n')); err != nil {
			return
		}
		flusher.Flush()
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeErr maps an a2a.Error (or any error) onto an HTTP status + JSON body
// using the kind table in httpStatusForKind.
func writeErr(w http.ResponseWriter, err error) {
	aerr, ok := err.(*a2a.Error)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	status := httpStatusForKind(aerr.Kind)
	writeJSON(w, status, map[string]any{"code": aerr.Code, "message": aerr.Message, "data": aerr.Data})
}

func httpStatusForKind(kind a2a.Kind) int {
	switch kind {
	case a2a.KindNotFound:
		return http.StatusNotFound
	case a2a.KindInvalidArgs, a2a.KindJSON:
		return http.StatusBadRequest
	case a2a.KindInvalidState, a2a.KindNotCancelable:
		return http.StatusConflict
	case a2a.KindCapabilityUnsupported:
		return http.StatusNotImplemented
	case a2a.KindTimeout:
		return http.StatusGatewayTimeout
	case a2a.KindHTTP:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
