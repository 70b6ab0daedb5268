// Package events defines the notifications editor sessions publish about workflows.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const Topic = "flowedit.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	WorkflowChangedEvent EventType = "workflow.changed"
	WorkflowSavedEvent   EventType = "workflow.saved"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id"`
	SessionID  string         `json:"session_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// WorkflowChanged carries the canonical flow data after a structural edit.
type WorkflowChanged struct {
	BaseEvent

	FlowData  string `json:"flow_data"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
}

func (w WorkflowChanged) GetType() EventType {
	return WorkflowChangedEvent
}

// WorkflowSaved is published once a session has persisted its workflow.
type WorkflowSaved struct {
	BaseEvent

	Name            string `json:"name"`
	ComplexityScore int    `json:"complexity_score"`
}

func (w WorkflowSaved) GetType() EventType {
	return WorkflowSavedEvent
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		Metadata:   make(map[string]any),
	}
}

func NewWorkflowChanged(workflowID, sessionID, flowData string, nodeCount, edgeCount int) WorkflowChanged {
	base := NewBaseEvent(WorkflowChangedEvent, workflowID)
	base.SessionID = sessionID

	return WorkflowChanged{
		BaseEvent: base,
		FlowData:  flowData,
		NodeCount: nodeCount,
		EdgeCount: edgeCount,
	}
}

func NewWorkflowSaved(workflowID, sessionID, name string, complexityScore int) WorkflowSaved {
	base := NewBaseEvent(WorkflowSavedEvent, workflowID)
	base.SessionID = sessionID

	return WorkflowSaved{
		BaseEvent:       base,
		Name:            name,
		ComplexityScore: complexityScore,
	}
}
