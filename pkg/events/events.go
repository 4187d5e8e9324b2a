// Package events defines the event types emitted around pipeline execution.
package events

import (
	"time"
)

type EventType string

// Topic carries all execution lifecycle events.
const Topic = "ragline.executions"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	ExecutionStartedEvent  EventType = "execution.started"
	ExecutionFinishedEvent EventType = "execution.finished"
	ExecutionFailedEvent   EventType = "execution.failed"

	NodeFinishedEvent EventType = "node.finished"
	NodeFailedEvent   EventType = "node.failed"
)

type BaseEvent struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	WorkflowID  string    `json:"workflow_id"`
	ExecutionID string    `json:"execution_id"`
}

type ExecutionStarted struct {
	BaseEvent

	SessionID string `json:"session_id,omitempty"`
	Source    string `json:"source,omitempty"`
}

func (e ExecutionStarted) GetType() EventType { return ExecutionStartedEvent }

type ExecutionFinished struct {
	BaseEvent

	NodeCount int           `json:"node_count"`
	Duration  time.Duration `json:"duration"`
}

func (e ExecutionFinished) GetType() EventType { return ExecutionFinishedEvent }

type ExecutionFailed struct {
	BaseEvent

	NodeID   string        `json:"node_id,omitempty"`
	Error    string        `json:"error"`
	Duration time.Duration `json:"duration"`
}

func (e ExecutionFailed) GetType() EventType { return ExecutionFailedEvent }

type NodeFinished struct {
	BaseEvent

	NodeID   string        `json:"node_id"`
	NodeType string        `json:"node_type"`
	Duration time.Duration `json:"duration"`
}

func (e NodeFinished) GetType() EventType { return NodeFinishedEvent }

type NodeFailed struct {
	BaseEvent

	NodeID   string        `json:"node_id"`
	NodeType string        `json:"node_type"`
	Error    string        `json:"error"`
	Duration time.Duration `json:"duration"`
}

func (e NodeFailed) GetType() EventType { return NodeFailedEvent }
