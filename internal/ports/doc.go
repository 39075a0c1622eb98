// Package ports defines the interfaces (ports) that connect the replay
// driver to infrastructure adapters.
//
// # Port Interfaces
//
//   - [Dialer]: Opens a stream connection to the test target
//   - [Conn]: The byte stream owned by one session
//   - [Logger]: Structured logging abstraction
//   - [EventHandler]: Optional observer of transmissions and state changes
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement them with concrete
// implementations (TCP, zerolog).
package ports
