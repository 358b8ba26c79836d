// Package tool defines the dispatch and execution core shared by every
// diagnostic operation.
//
// The package is split by concern:
//   - spec: operation catalog entries and their JSON Schema rendering
//   - args: coercion of untyped wire arguments
//   - dispatcher: name → tool lookup behind the validation gate
//   - strategy: ordered preferred/fallback execution chains
//   - process: bounded subprocess execution
//   - pool: bounded offload of blocking library calls
//   - error: structured error codes that protocol adapters map to wire errors
//
// The package is transport-agnostic so the stream and HTTP adapters share one
// dispatcher and one error contract.
package tool
