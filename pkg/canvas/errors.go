package canvas

import "errors"

var (
	ErrClosed              = errors.New("canvas: editor closed")
	ErrNodeNotFound        = errors.New("canvas: node not found")
	ErrPortNotFound        = errors.New("canvas: port not found")
	ErrConnectionNotFound  = errors.New("canvas: connection not found")
	ErrModuleNotFound      = errors.New("canvas: module not found")
	ErrModuleExists        = errors.New("canvas: module already exists")
	ErrInvalidPorts        = errors.New("canvas: port count must not be negative")
	ErrReadOnly            = errors.New("canvas: editor is in view mode")
	ErrNoPendingConnection = errors.New("canvas: no connection in progress")
)
