package ports

import "github.com/bft-labs/panelreplay/internal/domain"

// EventHandler observes a replay run.
// Callbacks are invoked synchronously from the replay goroutine and must not block.
type EventHandler interface {
	// OnCommandSent is called after entry index has been written in full.
	OnCommandSent(index int, entry domain.CommandEntry)

	// OnResponse is called with the bytes read in response to entry index.
	OnResponse(index int, response []byte)

	// OnStateChange is called when the session state changes.
	OnStateChange(previous, current domain.SessionState)
}
