package shiftlib

import "errors"

var (
	ErrTaskIDMissing  = errors.New("task record has no task_id")
	ErrSessionClosed  = errors.New("session is closed and can no longer be mutated")
	ErrSessionNotOpen = errors.New("no open session checkpoint found")
)
