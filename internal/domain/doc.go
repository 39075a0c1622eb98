// Package domain contains the core entities and value objects for panelreplay.
//
// This package has no dependencies on infrastructure concerns (sockets,
// files, logging) and contains only the replay model and its invariants.
//
// # Entities
//
//   - [CommandEntry]: one unit of the replay sequence (payload, timing, expectations)
//   - [ReplayConfig]: the ordered sequence plus loop and read settings
//   - [SessionState]: lifecycle of the connection owned by one replay run
//
// # Errors
//
// [ConnectionError] and [TransportError] carry the failure taxonomy of a run
// and match the sentinel errors in errors.go through errors.Is.
package domain
