package state

import "errors"

var (
	// ErrNoCheckpoint is returned by Store.Load when there is nothing to resume.
	ErrNoCheckpoint = errors.New("no checkpoint")

	// ErrCorruptCheckpoint is returned when the checkpoint file cannot be decoded.
	ErrCorruptCheckpoint = errors.New("corrupt checkpoint")

	// ErrCheckpointMismatch is returned when a checkpoint belongs to another seed.
	ErrCheckpointMismatch = errors.New("checkpoint does not match seed")
)
