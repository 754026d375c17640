// Package jsonrpc implements the JSON-RPC 2.0 transport server, grounded
// on the teacher's runtime/a2a/server.go and server_stream.go: the same
// mux-and-dispatch shape, the same SSE framing helpers, now dispatching
// onto a2asrv.DefaultRequestHandler instead of a PromptKit Conversation.
package jsonrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/a2arelay/a2arelay/a2a"
	"github.com/a2arelay/a2arelay/a2asrv"
	"github.com/a2arelay/a2arelay/logger"
)

const (
	// defaultReadHeaderTimeout mirrors server/a2a/server.go's Slowloris
	// mitigation constant.
	defaultReadHeaderTimeout = 10 * time.Second
	defaultReadTimeout       = 30 * time.Second
	defaultWriteTimeout      = 0 // disabled: SSE responses are long-lived
	defaultIdleTimeout       = 120 * time.Second
	defaultMaxBodySize       = 10 << 20
)

// Server exposes a DefaultRequestHandler over JSON-RPC 2.0 + SSE.
type Server struct {
	handler *a2asrv.DefaultRequestHandler
	card    a2a.AgentCard
	httpSrv *http.Server
}

// NewServer wires a transport server to an already-constructed request
// handler and the AgentCard to serve at the well-known path.
func NewServer(handler *a2asrv.DefaultRequestHandler, card a2a.AgentCard) *Server {
	return &Server{handler: handler, card: card}
}

// Handler returns the http.Handler implementing the A2A JSON-RPC surface,
// wrapped in otelhttp for request tracing (grounded on server/a2a's
// otelhttp usage).
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/agent-card.json", s.handleAgentCard)
	mux.HandleFunc("POST /a2a", s.handleRPC)
	return otelhttp.NewHandler(http.MaxBytesHandler(mux, defaultMaxBodySize), "a2a.jsonrpc")
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

func (s *Server) handleAgentCard(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.card)
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	var req a2a.JSONRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, nil, a2a.RPCParseError, "Parse error")
		return
	}

	switch req.Method {
	case a2a.MethodSendMessage:
		s.handleSendMessage(w, r, &req, false)
	case a2a.MethodSendMessageStream:
		s.handleSendMessage(w, r, &req, true)
	case a2a.MethodGetTask:
		s.handleGetTask(w, &req)
	case a2a.MethodCancelTask:
		s.handleCancelTask(w, r, &req)
	case a2a.MethodResubscribe:
		s.handleResubscribe(w, r, &req)
	case a2a.MethodSetPushConfig:
		s.handleSetPushConfig(w, &req)
	case a2a.MethodGetPushConfig:
		s.handleGetPushConfig(w, &req)
	case a2a.MethodListPushConfig:
		s.handleListPushConfig(w, &req)
	case a2a.MethodDeletePushConfig:
		s.handleDeletePushConfig(w, &req)
	default:
		writeError(w, req.ID, a2a.RPCMethodNotSupported, "Method not found")
	}
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request, req *a2a.JSONRPCRequest, streaming bool) {
	var params a2a.MessageSendParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeError(w, req.ID, a2a.RPCInvalidParams, "Invalid params")
		return
	}

	if streaming {
		s.streamResponse(w, r, req.ID, func(ctx context.Context) (<-chan a2a.Event, error) {
			return s.handler.OnMessageSendStream(ctx, params)
		})
		return
	}

	result, err := s.handler.OnMessageSend(r.Context(), params)
	if err != nil {
		writeRPCErr(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, result)
}

func (s *Server) handleGetTask(w http.ResponseWriter, req *a2a.JSONRPCRequest) {
	var params a2a.TaskQueryParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeError(w, req.ID, a2a.RPCInvalidParams, "Invalid params")
		return
	}
	task, err := s.handler.OnGetTask(params)
	if err != nil {
		writeRPCErr(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, task)
}

func (s *Server) handleCancelTask(w http.ResponseWriter, r *http.Request, req *a2a.JSONRPCRequest) {
	var params a2a.TaskIDParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeError(w, req.ID, a2a.RPCInvalidParams, "Invalid params")
		return
	}
	task, err := s.handler.OnCancelTask(r.Context(), params)
	if err != nil {
		writeRPCErr(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, task)
}

func (s *Server) handleResubscribe(w http.ResponseWriter, r *http.Request, req *a2a.JSONRPCRequest) {
	var params a2a.TaskIDParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeError(w, req.ID, a2a.RPCInvalidParams, "Invalid params")
		return
	}
	s.streamResponse(w, r, req.ID, func(ctx context.Context) (<-chan a2a.Event, error) {
		return s.handler.OnResubscribeToTask(ctx, params)
	})
}

func (s *Server) handleSetPushConfig(w http.ResponseWriter, req *a2a.JSONRPCRequest) {
	var cfg a2a.TaskPushNotificationConfig
	if err := json.Unmarshal(req.Params, &cfg); err != nil {
		writeError(w, req.ID, a2a.RPCInvalidParams, "Invalid params")
		return
	}
	out, err := s.handler.OnSetTaskPushNotificationConfig(cfg)
	if err != nil {
		writeRPCErr(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, out)
}

func (s *Server) handleGetPushConfig(w http.ResponseWriter, req *a2a.JSONRPCRequest) {
	var params a2a.GetTaskPushNotificationConfigParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeError(w, req.ID, a2a.RPCInvalidParams, "Invalid params")
		return
	}
	out, err := s.handler.OnGetTaskPushNotificationConfig(params)
	if err != nil {
		writeRPCErr(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, out)
}

func (s *Server) handleListPushConfig(w http.ResponseWriter, req *a2a.JSONRPCRequest) {
	var params a2a.TaskIDParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeError(w, req.ID, a2a.RPCInvalidParams, "Invalid params")
		return
	}
	out, err := s.handler.OnListTaskPushNotificationConfig(params.ID)
	if err != nil {
		writeRPCErr(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, out)
}

func (s *Server) handleDeletePushConfig(w http.ResponseWriter, req *a2a.JSONRPCRequest) {
	var params a2a.GetTaskPushNotificationConfigParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeError(w, req.ID, a2a.RPCInvalidParams, "Invalid params")
		return
	}
	if err := s.handler.OnDeleteTaskPushNotificationConfig(params); err != nil {
		writeRPCErr(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, struct{}{})
}

// streamResponse writes SSE frames for each event the opener's channel
// yields, incrementally: never buffer the full body. On an error that
// would otherwise be raised synchronously, it writes one last frame
// carrying a JSON-RPC error shape and closes the connection.
func (s *Server) streamResponse(w http.ResponseWriter, r *http.Request, id any, open func(ctx context.Context) (<-chan a2a.Event, error)) {
	events, err := open(r.Context())
	if err != nil {
		writeRPCErr(w, id, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeRPCErr(w, id, a2a.NewInvalidStateError("streaming unsupported by response writer"))
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
			logger.Warn("jsonrpc: failed marshaling SSE frame", "err", err)
			continue
		}
		resultEnvelope, _ := json.Marshal(a2a.JSONRPCResponse{JSONRPC: "2.0", ID: id, Result: data})
		if _, err := fmt.Fprintf(w, "data: %s\n\n", resultEnvelope); err != nil {
			// Client disconnected; the handler's own ctx.Done() path
			// (driven by r.Context()) already started a background
			// drain. Nothing further to do here.
			return
		}
		flusher.Flush()
	}
}

func writeResult(w http.ResponseWriter, id any, result any) {
	data, _ := json.Marshal(result)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(a2a.JSONRPCResponse{JSONRPC: "2.0", ID: id, Result: data})
}

func writeError(w http.ResponseWriter, id any, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(a2a.JSONRPCResponse{JSONRPC: "2.0", ID: id, Error: &a2a.JSONRPCError{Code: code, Message: msg}})
}

// writeRPCErr maps an a2a.Error (or any error) onto a JSON-RPC error
// response using the code table in errors.go.
func writeRPCErr(w http.ResponseWriter, id any, err error) {
	if aerr, ok := err.(*a2a.Error); ok {
		code := aerr.Code
		if aerr.Kind != a2a.KindRPC {
			code = a2a.RPCCodeForKind(aerr.Kind)
		}
		writeError(w, id, code, aerr.Message)
		return
	}
	writeError(w, id, a2a.RPCInternalError, err.Error())
}
