package editor

import (
	"errors"

	"github.com/dukex/flowedit/pkg/bridge"
)

var (
	// ErrNotInitialized is returned by every operation until the canvas engine has loaded.
	ErrNotInitialized = errors.New("editor is not initialized")

	// ErrUnmounted is returned by every operation once the session has been unmounted.
	ErrUnmounted = errors.New("editor is unmounted")

	// ErrCanvasUnavailable is returned when the canvas engine failed to load.
	ErrCanvasUnavailable = errors.New("canvas engine is unavailable")

	// ErrAlreadyMounted is returned by a second Mount.
	ErrAlreadyMounted = errors.New("editor is already mounted")

	// ErrEmptyDropPayload is returned when a drop carries no node type.
	ErrEmptyDropPayload = errors.New("drop payload has no node type")

	// ErrNodeNotFound is the bridge's missing-node error.
	ErrNodeNotFound = bridge.ErrNodeNotFound
)

// IsUnavailable reports whether err means the session cannot serve operations right now.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrNotInitialized) ||
		errors.Is(err, ErrUnmounted) ||
		errors.Is(err, ErrCanvasUnavailable)
}
