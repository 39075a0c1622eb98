package domain

import (
	"fmt"
	"time"
)

// CommandEntry is one unit of the replay sequence.
// Entries are immutable after construction; use NewCommandEntry so the
// payload slice is not shared with the caller.
type CommandEntry struct {
	// Payload is the raw bytes written to the target.
	Payload []byte

	// Description is the human-readable label logged with every transmission.
	Description string

	// ExpectResponse makes the driver wait for an acknowledgement after writing.
	ExpectResponse bool

	// PostDelay is the pause after the entry is sent (and acknowledged).
	PostDelay time.Duration
}

// NewCommandEntry creates a CommandEntry holding a copy of payload.
func NewCommandEntry(payload []byte, description string, expectResponse bool, postDelay time.Duration) CommandEntry {
	p := make([]byte, len(payload))
	copy(p, payload)
	return CommandEntry{
		Payload:        p,
		Description:    description,
		ExpectResponse: expectResponse,
		PostDelay:      postDelay,
	}
}

// Validate checks the entry invariants.
func (e CommandEntry) Validate() error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%w: payload must not be empty", ErrInvalidConfig)
	}
	if e.PostDelay < 0 {
		return fmt.Errorf("%w: post delay must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Label returns the description, or the payload text when no description is set.
func (e CommandEntry) Label() string {
	if e.Description != "" {
		return e.Description
	}
	return fmt.Sprintf("%q", e.Payload)
}
