package sessions

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrManagerClosed   = errors.New("session manager closed")
)

// IsSessionNotFound checks if an error indicates a session was not found.
func IsSessionNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}
