package editor

import "strings"

// KeyEvent is a keydown on the canvas.
type KeyEvent struct {
	Key   string `json:"key"   validate:"required"`
	Ctrl  bool   `json:"ctrl"`
	Meta  bool   `json:"meta"`
	Shift bool   `json:"shift"`
}

// KeyAction is what a key binding resolved to.
type KeyAction string

const (
	KeyActionNone   KeyAction = ""
	KeyActionUndo   KeyAction = "undo"
	KeyActionRedo   KeyAction = "redo"
	KeyActionDelete KeyAction = "delete"
)

// Action resolves the key binding: Ctrl/Cmd+Z undoes, Ctrl/Cmd+Shift+Z and Ctrl/Cmd+Y
// redo, Delete and Backspace delete the selected node.
func (k KeyEvent) Action() KeyAction {
	modifier := k.Ctrl || k.Meta

	switch {
	case modifier && strings.EqualFold(k.Key, "z"):
		if k.Shift {
			return KeyActionRedo
		}

		return KeyActionUndo
	case modifier && strings.EqualFold(k.Key, "y"):
		return KeyActionRedo
	case k.Key == "Delete" || k.Key == "Backspace":
		return KeyActionDelete
	default:
		return KeyActionNone
	}
}

// KeyDown applies a key binding and returns the action taken. Delete with nothing selected
// and unbound keys return KeyActionNone.
func (s *Session) KeyDown(event KeyEvent) (KeyAction, error) {
	action := event.Action()

	switch action {
	case KeyActionUndo:
		_, err := s.Undo()

		return action, err
	case KeyActionRedo:
		_, err := s.Redo()

		return action, err
	case KeyActionDelete:
		deleted := false

		err := s.do(func() error {
			if !s.selection.Selected() {
				return nil
			}

			deleted = true

			return s.deleteNode(s.selection.NodeID)
		})
		if !deleted {
			return KeyActionNone, err
		}

		return action, err
	default:
		return KeyActionNone, nil
	}
}
