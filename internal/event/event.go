// Package event carries domain events between the system core's callers
// and observers such as the event logger and the SSE stream.
package event

import (
	"encoding/json"
	"math/rand"
	"reflect"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Type represents the type of event
type Type string

const (
	ProjectCreated    Type = "project.created"
	TaskCreated       Type = "task.created"
	TaskDeleted       Type = "task.deleted"
	TaskStatusChanged Type = "task.status_changed"
	TaskReplaced      Type = "task.replaced"
	TaskAssigned      Type = "task.assigned"
	TaskUnassigned    Type = "task.unassigned"
	ClockAdvanced     Type = "clock.advanced"
)

// AllTypes lists every event type, for subscribers that mirror the whole
// stream.
func AllTypes() []Type {
	return []Type{
		ProjectCreated,
		TaskCreated,
		TaskDeleted,
		TaskStatusChanged,
		TaskReplaced,
		TaskAssigned,
		TaskUnassigned,
		ClockAdvanced,
	}
}

// Event represents a typed system event.
type Event[T any] struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Data      T         `json:"data"`
}

// Message represents a serialized event for transport.
type Message struct {
	ID        string          `json:"id"`
	Type      Type            `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Source    string          `json:"source"`
	Data      json.RawMessage `json:"data"`
}

// NewEvent creates a new typed event.
func NewEvent[T any](source string, data T) *Event[T] {
	return &Event[T]{
		ID:        newEventID(),
		Timestamp: time.Now(),
		Source:    source,
		Data:      data,
	}
}

// ToMessage converts a typed event to a transport message.
func (e *Event[T]) ToMessage() (*Message, error) {
	rawData, err := json.Marshal(e.Data)
	if err != nil {
		return nil, err
	}

	return &Message{
		ID:        e.ID,
		Type:      inferType(e.Data),
		Timestamp: e.Timestamp,
		Source:    e.Source,
		Data:      rawData,
	}, nil
}

// FromMessage converts a transport message to a typed event.
func FromMessage[T any](msg *Message) (*Event[T], error) {
	var data T
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return nil, err
	}

	return &Event[T]{
		ID:        msg.ID,
		Timestamp: msg.Timestamp,
		Source:    msg.Source,
		Data:      data,
	}, nil
}

// inferType infers the event Type from the payload's Go type.
func inferType(data any) Type {
	dataType := reflect.TypeOf(data)
	if dataType.Kind() == reflect.Ptr {
		dataType = dataType.Elem()
	}

	switch dataType.Name() {
	case "ProjectCreatedData":
		return ProjectCreated
	case "TaskCreatedData":
		return TaskCreated
	case "TaskDeletedData":
		return TaskDeleted
	case "TaskStatusChangedData":
		return TaskStatusChanged
	case "TaskReplacedData":
		return TaskReplaced
	case "TaskAssignedData":
		return TaskAssigned
	case "TaskUnassignedData":
		return TaskUnassigned
	case "ClockAdvancedData":
		return ClockAdvanced
	default:
		return Type(camelToDotted(strings.TrimSuffix(dataType.Name(), "Data")))
	}
}

func camelToDotted(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteByte('.')
		}
		result.WriteRune(r)
	}
	return strings.ToLower(result.String())
}

func newEventID() string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// ProjectCreatedData represents data for a project created event.
type ProjectCreatedData struct {
	Project     string `json:"project"`
	Description string `json:"description"`
	DueTime     string `json:"due_time"`
}

// TaskCreatedData represents data for a task created event.
type TaskCreatedData struct {
	Project     string `json:"project"`
	Task        string `json:"task"`
	Description string `json:"description"`
}

// TaskDeletedData represents data for a task deleted event.
type TaskDeletedData struct {
	Project string `json:"project"`
	Task    string `json:"task"`
}

// TaskStatusChangedData represents data for a task status change.
type TaskStatusChangedData struct {
	Project    string `json:"project"`
	Task       string `json:"task"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
}

// TaskReplacedData represents data for a task replacement.
type TaskReplacedData struct {
	Project     string `json:"project"`
	Replaced    string `json:"replaced"`
	Replacement string `json:"replacement"`
}

// TaskAssignedData represents data for a user committing to a task slot.
type TaskAssignedData struct {
	Project string `json:"project"`
	Task    string `json:"task"`
	User    string `json:"user"`
	Role    string `json:"role"`
}

// TaskUnassignedData represents data for a user leaving a task slot.
type TaskUnassignedData struct {
	Project string `json:"project"`
	Task    string `json:"task"`
	User    string `json:"user"`
}

// ClockAdvancedData represents data for a clock advance.
type ClockAdvancedData struct {
	FromTime string `json:"from_time"`
	ToTime   string `json:"to_time"`
}
