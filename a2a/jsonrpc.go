package a2a

import "encoding/json"

// JSON-RPC 2.0 method names used by the JSON-RPC transport.
const (
	MethodSendMessage           = "message/send"
	MethodSendMessageStream     = "message/stream"
	MethodGetTask               = "tasks/get"
	MethodCancelTask            = "tasks/cancel"
	MethodSetPushConfig         = "tasks/pushNotificationConfig/set"
	MethodGetPushConfig         = "tasks/pushNotificationConfig/get"
	MethodListPushConfig        = "tasks/pushNotificationConfig/list"
	MethodDeletePushConfig      = "tasks/pushNotificationConfig/delete"
	MethodResubscribe           = "tasks/resubscribe"
	MethodGetExtendedCard       = "agent/getAuthenticatedExtendedCard"
)

// JSONRPCRequest is the envelope sent to the transport URL.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCError is the structured error object of a JSONRPCResponse.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// JSONRPCResponse is the envelope returned from the transport URL; exactly
// one of Result/Error is populated.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// SSEFrame is one deserialized `data:` payload from an event stream,
// discriminated by Kind.
type SSEFrame struct {
	Kind            string                   `json:"kind"`
	Task            *Task                    `json:"task,omitempty"`
	Message         *Message                 `json:"message,omitempty"`
	StatusUpdate    *TaskStatusUpdateEvent   `json:"statusUpdate,omitempty"`
	ArtifactUpdate  *TaskArtifactUpdateEvent `json:"artifactUpdate,omitempty"`
}

const (
	SSEKindTask           = "task"
	SSEKindMessage        = "message"
	SSEKindStatusUpdate   = "status-update"
	SSEKindArtifactUpdate = "artifact-update"
)

// EncodeEventFrame converts a published Event into its wire SSEFrame shape.
func EncodeEventFrame(e Event) SSEFrame {
	switch v := e.(type) {
	case Task:
		return SSEFrame{Kind: SSEKindTask, Task: &v}
	case *Message:
		return SSEFrame{Kind: SSEKindMessage, Message: v}
	case *TaskStatusUpdateEvent:
		return SSEFrame{Kind: SSEKindStatusUpdate, StatusUpdate: v}
	case *TaskArtifactUpdateEvent:
		return SSEFrame{Kind: SSEKindArtifactUpdate, ArtifactUpdate: v}
	default:
		return SSEFrame{}
	}
}

// DecodeEventFrame recovers the Event carried by an SSEFrame, or nil, ok=false
// if the frame's Kind is unrecognized or empty.
func DecodeEventFrame(f SSEFrame) (Event, bool) {
	switch f.Kind {
	case SSEKindTask:
		if f.Task == nil {
			return nil, false
		}
		return *f.Task, true
	case SSEKindMessage:
		if f.Message == nil {
			return nil, false
		}
		return f.Message, true
	case SSEKindStatusUpdate:
		if f.StatusUpdate == nil {
			return nil, false
		}
		return f.StatusUpdate, true
	case SSEKindArtifactUpdate:
		if f.ArtifactUpdate == nil {
			return nil, false
		}
		return f.ArtifactUpdate, true
	default:
		return nil, false
	}
}
