// Package models defines the host-side records the editor is mounted with.
package models

import (
	"time"

	"github.com/dukex/flowedit/pkg/graph"
)

// WorkflowType is the kind of flow a workflow is executed as.
type WorkflowType string

const (
	WorkflowTypeChatflow   WorkflowType = "CHATFLOW"
	WorkflowTypeAgentflow  WorkflowType = "AGENTFLOW"
	WorkflowTypeMultiAgent WorkflowType = "MULTIAGENT"
)

// Workflow is a persisted workflow whose FlowData holds the canonical graph JSON.
type Workflow struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"             validate:"required,min=3"`
	FlowData        string       `json:"flow_data"`
	Type            WorkflowType `json:"type"             validate:"omitempty,oneof=CHATFLOW AGENTFLOW MULTIAGENT"`
	ComplexityScore int          `json:"complexity_score" validate:"gte=0"`
	NodeCount       int          `json:"node_count"       validate:"gte=0"`
	EdgeCount       int          `json:"edge_count"       validate:"gte=0"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// ApplyFlowData stores flowData and refreshes the derived counters from doc.
func (w *Workflow) ApplyFlowData(flowData string, doc graph.Document) {
	stats := doc.Stats()

	w.FlowData = flowData
	w.NodeCount = stats.NodeCount
	w.EdgeCount = stats.EdgeCount
	w.ComplexityScore = stats.ComplexityScore
}

// Draft is the latest unsaved flow data of a workflow, written while it is being edited.
type Draft struct {
	WorkflowID string    `json:"workflow_id" validate:"required"`
	FlowData   string    `json:"flow_data"`
	UpdatedAt  time.Time `json:"updated_at"`
}
