package editor

import "github.com/dukex/flowedit/pkg/graph"

// Host receives the editor's outputs. Callbacks are invoked after the session lock is
// released, so a host may call back into the session.
type Host interface {
	OnNodeClick(node graph.Node)
	OnEditNode(node graph.Node)
	OnWorkflowChange(flowData string)
	OnSave()
	OnPreview()
}

// HostFuncs adapts plain functions to Host. Nil fields are ignored.
type HostFuncs struct {
	NodeClick      func(node graph.Node)
	EditNode       func(node graph.Node)
	WorkflowChange func(flowData string)
	Save           func()
	Preview        func()
}

var _ Host = HostFuncs{}

func (h HostFuncs) OnNodeClick(node graph.Node) {
	if h.NodeClick != nil {
		h.NodeClick(node)
	}
}

func (h HostFuncs) OnEditNode(node graph.Node) {
	if h.EditNode != nil {
		h.EditNode(node)
	}
}

func (h HostFuncs) OnWorkflowChange(flowData string) {
	if h.WorkflowChange != nil {
		h.WorkflowChange(flowData)
	}
}

func (h HostFuncs) OnSave() {
	if h.Save != nil {
		h.Save()
	}
}

func (h HostFuncs) OnPreview() {
	if h.Preview != nil {
		h.Preview()
	}
}
