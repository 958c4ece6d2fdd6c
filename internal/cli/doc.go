// Package cli implements the flowbridge command-line interface.
//
// Each cobra command is a thin wrapper: it builds an exec.Runner (or a
// cache.WorkspaceCache) from the loaded settings, calls it, and renders the
// result for a human or, with --json, as a JSON envelope.
//
// # Command Structure
//
//	flowbridge exec <args...>            - Run flow, print captured stdout
//	flowbridge json <args...>            - Run flow with --output json, print decoded JSON
//	flowbridge run <verb> <id> [-- ...]  - Stream an executable's output
//	flowbridge cache path|show|watch     - Read or follow the workspace cache
//	flowbridge doctor                    - Diagnose binary, shell and cache
//	flowbridge version                   - Print build information
//
// # Errors and Exit Status
//
// Errors travel up to Execute unchanged. A failed flow invocation keeps its
// errors.CommandError so the JSON envelope can carry kind, command, exit
// code and raw output. Non-zero exits from flow are mirrored as the
// process status. Commands that already reported a failure return an
// errors.ExitError so nothing is printed twice.
//
// # Flag Handling
//
// Global flags (--config, --verbose, --json, --no-color) live on the root
// command. exec and json stop flag parsing at their first argument so that
// flow's own flags pass through untouched.
package cli
