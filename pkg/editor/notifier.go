package editor

import (
	"github.com/dukex/flowedit/pkg/bridge"
	"github.com/dukex/flowedit/pkg/canvas"
	"github.com/dukex/flowedit/pkg/graph"
)

// Activity classifies an Event.
type Activity string

const (
	ActivityMutation  Activity = "mutation"
	ActivityUndo      Activity = "undo"
	ActivityRedo      Activity = "redo"
	ActivityTransient Activity = "transient"
)

// Event describes something that happened in a session, for observers.
type Event struct {
	Activity Activity
	Kinds    []canvas.EventKind
	NodeID   string
	Document graph.Document
}

// onMutation records a structural change: the fresh export becomes a history snapshot and
// its JSON is forwarded to the host.
func (s *Session) onMutation(mutation bridge.Mutation) {
	doc := s.bridge.Export()
	s.history.SaveState(doc)

	s.observe(Event{Activity: ActivityMutation, Kinds: mutation.Events, Document: doc})

	flowData, err := graph.Marshal(doc)
	if err != nil {
		s.logger.Error("Failed to serialize workflow", "error", err)

		return
	}

	s.enqueue(func() { s.host.OnWorkflowChange(flowData) })
}
