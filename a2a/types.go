// Package a2a defines the wire-level data model shared by every transport
// and by both sides of an agent-to-agent exchange: messages, parts,
// artifacts, tasks, the events an executor publishes, and the agent card
// manifest. Field names follow the camelCase wire convention; Go
// identifiers are exported in PascalCase per field.
package a2a

import "encoding/json"

// Role identifies the originator of a Message.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// TaskState is the enumerated lifecycle state of a Task.
type TaskState string

const (
	TaskStateSubmitted      TaskState = "submitted"
	TaskStateWorking        TaskState = "working"
	TaskStateInputRequired  TaskState = "input-required"
	TaskStateCompleted      TaskState = "completed"
	TaskStateCanceled       TaskState = "canceled"
	TaskStateFailed         TaskState = "failed"
	TaskStateRejected       TaskState = "rejected"
	TaskStateAuthRequired   TaskState = "auth-required"
	TaskStateUnknown        TaskState = "unknown"
)

// terminalStates is the set of states a task never leaves.
var terminalStates = map[TaskState]bool{
	TaskStateCompleted: true,
	TaskStateCanceled:  true,
	TaskStateFailed:    true,
	TaskStateRejected:  true,
}

// IsTerminal reports whether the state is terminal.
func (s TaskState) IsTerminal() bool { return terminalStates[s] }

// IsInterruptable reports whether the state is terminal or one of the two
// states a stream may still resume from: terminal, auth-required, or
// input-required.
func (s TaskState) IsInterruptable() bool {
	return s.IsTerminal() || s == TaskStateAuthRequired || s == TaskStateInputRequired
}

// Part is a tagged variant of message/artifact content. Exactly one of
// Text, File, or Data should be set; the Kind discriminator governs wire
// serialization instead of subclass dispatch.
type Part struct {
	Kind     string         `json:"kind"`
	Text     string         `json:"text,omitempty"`
	File     *FilePart      `json:"file,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

const (
	PartKindText = "text"
	PartKindFile = "file"
	PartKindData = "data"
)

// FilePart carries a file either inline (Bytes, base64 via json.RawMessage
// string) or by reference (URI). Exactly one of Bytes/URI is set.
type FilePart struct {
	Bytes    []byte `json:"bytes,omitempty"`
	URI      string `json:"uri,omitempty"`
	MIMEType string `json:"mimeType,omitempty"`
	Name     string `json:"name,omitempty"`
}

// TextPart builds a Part carrying plain text.
func TextPart(text string) Part {
	return Part{Kind: PartKindText, Text: text}
}

// FileBytesPart builds a Part carrying inline file bytes.
func FileBytesPart(bytes []byte, mimeType, name string) Part {
	return Part{Kind: PartKindFile, File: &FilePart{Bytes: bytes, MIMEType: mimeType, Name: name}}
}

// FileURIPart builds a Part referencing a file by URI.
func FileURIPart(uri, mimeType, name string) Part {
	return Part{Kind: PartKindFile, File: &FilePart{URI: uri, MIMEType: mimeType, Name: name}}
}

// DataPart builds a Part carrying arbitrary structured JSON.
func DataPart(data json.RawMessage) Part {
	return Part{Kind: PartKindData, Data: data}
}

// Message is a user/agent utterance.
type Message struct {
	MessageID         string         `json:"messageId"`
	Role              Role           `json:"role"`
	Parts             []Part         `json:"parts"`
	TaskID            string         `json:"taskId,omitempty"`
	ContextID         string         `json:"contextId,omitempty"`
	ReferenceTaskIDs  []string       `json:"referenceTaskIds,omitempty"`
	Extensions        []string       `json:"extensions,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

// Artifact is an agent-produced output attached to a task.
type Artifact struct {
	ArtifactID  string         `json:"artifactId"`
	Name        string         `json:"name,omitempty"`
	Description string         `json:"description,omitempty"`
	Parts       []Part         `json:"parts"`
	Extensions  []string       `json:"extensions,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// TaskStatus is the current state of a Task plus the message and timestamp
// that produced it.
type TaskStatus struct {
	State     TaskState `json:"state"`
	Message   *Message  `json:"message,omitempty"`
	Timestamp string    `json:"timestamp,omitempty"`
}

// Task is a long-running unit of work.
type Task struct {
	ID        string         `json:"id"`
	ContextID string         `json:"contextId"`
	Status    TaskStatus     `json:"status"`
	History   []Message      `json:"history,omitempty"`
	Artifacts []Artifact     `json:"artifacts,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ApplyHistoryLength returns a copy of t whose History is truncated to the
// last n messages, all other fields preserved. Idempotent
// for n >= len(History).
func (t Task) ApplyHistoryLength(n int) Task {
	if n < 0 || n >= len(t.History) {
		return t
	}
	out := t
	out.History = append([]Message(nil), t.History[len(t.History)-n:]...)
	return out
}

// FindArtifact returns a pointer to the artifact with the given id within
// t.Artifacts, or nil.
func (t *Task) FindArtifact(artifactID string) *Artifact {
	for i := range t.Artifacts {
		if t.Artifacts[i].ArtifactID == artifactID {
			return &t.Artifacts[i]
		}
	}
	return nil
}

// Event is implemented by every value an AgentExecutor may publish into an
// EventQueue: Task, *TaskStatusUpdateEvent, *TaskArtifactUpdateEvent, and
// *Message.
type Event interface {
	eventKind() string
}

func (Task) eventKind() string                     { return "task" }
func (*TaskStatusUpdateEvent) eventKind() string    { return "status-update" }
func (*TaskArtifactUpdateEvent) eventKind() string  { return "artifact-update" }
func (*Message) eventKind() string                  { return "message" }

// EventKind returns the wire discriminator for an Event value.
func EventKind(e Event) string { return e.eventKind() }

// TaskStatusUpdateEvent reports a status transition on an in-flight task.
type TaskStatusUpdateEvent struct {
	TaskID    string         `json:"taskId"`
	ContextID string         `json:"contextId"`
	Status    TaskStatus     `json:"status"`
	Final     bool           `json:"final"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// TaskArtifactUpdateEvent reports a new or appended artifact chunk.
type TaskArtifactUpdateEvent struct {
	TaskID    string         `json:"taskId"`
	ContextID string         `json:"contextId"`
	Artifact  Artifact       `json:"artifact"`
	Append    bool           `json:"append"`
	LastChunk bool           `json:"lastChunk"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// AgentCapabilities describes optional protocol features a peer supports.
type AgentCapabilities struct {
	Streaming              bool     `json:"streaming"`
	PushNotifications      bool     `json:"pushNotifications"`
	StateTransitionHistory bool     `json:"stateTransitionHistory"`
	Extensions             []string `json:"extensions,omitempty"`
}

// AgentInterface is one transport binding a peer exposes in addition to its
// preferred transport.
type AgentInterface struct {
	Transport string `json:"transport"`
	URL       string `json:"url"`
}

// AgentSkill describes one capability an agent exposes.
type AgentSkill struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Examples     []string `json:"examples,omitempty"`
	InputModes   []string `json:"inputModes,omitempty"`
	OutputModes  []string `json:"outputModes,omitempty"`
	InputSchema  json.RawMessage `json:"inputSchema,omitempty"`
}

// SecurityScheme describes how to authenticate against a security
// requirement named in AgentCard.Security.
type SecurityScheme struct {
	Type   string `json:"type"`             // "apiKey" | "http" | "oauth2" | "openIdConnect"
	Scheme string `json:"scheme,omitempty"` // e.g. "bearer" for type=http
	In     string `json:"in,omitempty"`     // "header" | "query" | "cookie" for type=apiKey
	Name   string `json:"name,omitempty"`   // header/query/cookie name for type=apiKey
}

// AgentCard is a peer's self-describing manifest.
type AgentCard struct {
	Name                            string                    `json:"name"`
	Description                     string                    `json:"description,omitempty"`
	Version                         string                    `json:"version"`
	ProtocolVersion                 string                    `json:"protocolVersion,omitempty"`
	URL                             string                    `json:"url"`
	PreferredTransport              string                    `json:"preferredTransport"`
	AdditionalInterfaces            []AgentInterface          `json:"additionalInterfaces,omitempty"`
	Capabilities                    AgentCapabilities         `json:"capabilities"`
	Skills                          []AgentSkill              `json:"skills,omitempty"`
	Security                        []map[string][]string     `json:"security,omitempty"`
	SecuritySchemes                 map[string]SecurityScheme `json:"securitySchemes,omitempty"`
	SupportsAuthenticatedExtendedCard bool                    `json:"supportsAuthenticatedExtendedCard,omitempty"`
	Signatures                      []string                  `json:"signatures,omitempty"`
}

// MessageSendConfig controls the behavior of message/send and
// message/stream.
type MessageSendConfig struct {
	AcceptedOutputModes    []string                  `json:"acceptedOutputModes,omitempty"`
	HistoryLength          int                       `json:"historyLength,omitempty"`
	Blocking               bool                      `json:"blocking,omitempty"`
	PushNotificationConfig *TaskPushNotificationConfig `json:"pushNotificationConfig,omitempty"`
}

// MessageSendParams is the input to send_message / send_message_streaming.
type MessageSendParams struct {
	Message       Message            `json:"message"`
	Configuration *MessageSendConfig `json:"configuration,omitempty"`
}

// TaskQueryParams is the input to get_task.
type TaskQueryParams struct {
	ID            string `json:"id"`
	HistoryLength int    `json:"historyLength,omitempty"`
}

// TaskIDParams names a task for cancel_task / resubscribe.
type TaskIDParams struct {
	ID string `json:"id"`
}

// PushNotificationConfig describes a single webhook callback.
type PushNotificationConfig struct {
	ID             string `json:"id,omitempty"`
	URL            string `json:"url"`
	Token          string `json:"token,omitempty"`
	Authentication *struct {
		Schemes     []string `json:"schemes,omitempty"`
		Credentials string   `json:"credentials,omitempty"`
	} `json:"authentication,omitempty"`
}

// TaskPushNotificationConfig binds a PushNotificationConfig to a task; this
// is always the wire shape returned by get_task_callback, never the bare
// PushNotificationConfig.
type TaskPushNotificationConfig struct {
	TaskID                 string                 `json:"taskId"`
	PushNotificationConfig PushNotificationConfig `json:"pushNotificationConfig"`
}

// GetTaskPushNotificationConfigParams is the input to get_task_callback.
type GetTaskPushNotificationConfigParams struct {
	ID                       string `json:"id"`
	PushNotificationConfigID string `json:"pushNotificationConfigId,omitempty"`
}

// ListTasksParams filters tasks/list.
type ListTasksParams struct {
	ContextID string `json:"contextId,omitempty"`
	PageSize  int    `json:"pageSize,omitempty"`
	PageToken string `json:"pageToken,omitempty"`
}

// ListTasksResult is the output of tasks/list.
type ListTasksResult struct {
	Tasks         []Task `json:"tasks"`
	NextPageToken string `json:"nextPageToken,omitempty"`
}
