package domain

import (
	"fmt"
	"time"
)

// DefaultReadBufferSize is the maximum number of response bytes read per entry.
const DefaultReadBufferSize = 1024

// ReplayConfig describes one replay run. It is immutable after load.
type ReplayConfig struct {
	// Sequence is the ordered list of entries to transmit.
	Sequence []CommandEntry

	// Loop restarts at the first entry after the last one is sent.
	Loop bool

	// ReadTimeout bounds the response wait of entries with ExpectResponse.
	ReadTimeout time.Duration

	// WriteTimeout bounds each write. Zero disables the write deadline.
	WriteTimeout time.Duration

	// ReadBufferSize is the size of the response buffer.
	// Zero means DefaultReadBufferSize.
	ReadBufferSize int
}

// Validate checks the sequence and the read settings.
func (c ReplayConfig) Validate() error {
	if len(c.Sequence) == 0 {
		return fmt.Errorf("%w: sequence must contain at least one command", ErrInvalidConfig)
	}
	expects := false
	for i, e := range c.Sequence {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("command %d: %w", i, err)
		}
		expects = expects || e.ExpectResponse
	}
	if expects && c.ReadTimeout <= 0 {
		return fmt.Errorf("%w: read timeout must be positive when a response is expected", ErrInvalidConfig)
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("%w: write timeout must not be negative", ErrInvalidConfig)
	}
	if c.ReadBufferSize < 0 {
		return fmt.Errorf("%w: read buffer size must not be negative", ErrInvalidConfig)
	}
	return nil
}

// BufferSize returns the effective response buffer size.
func (c ReplayConfig) BufferSize() int {
	if c.ReadBufferSize <= 0 {
		return DefaultReadBufferSize
	}
	return c.ReadBufferSize
}
