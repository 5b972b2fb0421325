// Package cli provides the interactive scouting shell that runs on a device.
//
// It wires configuration, the local SQLite store, the gRPC client and the
// sync agent, then reads commands from stdin. Observations are always
// recorded into the local outbox first, so the shell works the same with or
// without a connection; a background loop pushes and pulls whenever the
// server is reachable.
//
// Commands:
//   - sessions / observations: browse the local cache
//   - record: queue an observation edit
//   - sync, push, pull: synchronize on demand
//   - conflicts: review edits the server did not apply
//   - photo: upload a photo for a session
//
// The shell is started via App.Run(ctx), which blocks until the user exits.
package cli
