// Package cli provides the interactive command surface of the manager.
//
// It wires configuration, the accounts store, the token lifecycle, the
// process controller and the switch orchestrator into named commands, and
// runs them either one-shot (command-line arguments) or from an interactive
// loop (no arguments).
//
// Key commands:
//   - list / status    — inspect stored accounts and the host's identity
//   - switch           — the full stop-inject-restart sequence
//   - refresh / validate / quota — token and quota upkeep
//   - export / import  — move accounts between machines
//   - doctor           — environment self-checks
//
// The loop is started via App.Root(ctx), which blocks until the user exits.
package cli
