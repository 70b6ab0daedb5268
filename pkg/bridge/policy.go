package bridge

import "github.com/dukex/flowedit/pkg/canvas"

// EventClass tells the bridge what an engine event means for the document.
type EventClass int

const (
	// ClassIgnored events are not relayed.
	ClassIgnored EventClass = iota
	// ClassStructural events change node/edge membership, positions or node data. Each one
	// produces a Mutation and therefore a history entry.
	ClassStructural
	// ClassTransient events only affect UI state such as selection. They never touch history.
	ClassTransient
)

func (c EventClass) String() string {
	switch c {
	case ClassStructural:
		return "structural"
	case ClassTransient:
		return "transient"
	default:
		return "ignored"
	}
}

// eventPolicy is the only place that decides which engine events are history-significant.
// The bridge subscribes to exactly the kinds listed here.
var eventPolicy = map[canvas.EventKind]EventClass{
	canvas.EventNodeCreated:       ClassStructural,
	canvas.EventNodeRemoved:       ClassStructural,
	canvas.EventNodeMoved:         ClassStructural,
	canvas.EventNodeDataChanged:   ClassStructural,
	canvas.EventConnectionCreated: ClassStructural,
	canvas.EventConnectionRemoved: ClassStructural,
	canvas.EventModuleChanged:     ClassStructural,

	canvas.EventNodeSelected:     ClassTransient,
	canvas.EventNodeUnselected:   ClassTransient,
	canvas.EventConnectionStart:  ClassTransient,
	canvas.EventConnectionEnd:    ClassTransient,
	canvas.EventConnectionCancel: ClassTransient,
}

// Classify returns the class of an engine event kind.
func Classify(kind canvas.EventKind) EventClass {
	return eventPolicy[kind]
}
