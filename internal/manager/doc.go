// Package manager coordinates a single completion against a local model. It is
// structured into small files by concern:
//
//   - manager.go: core Manager type, constructor, simple getters.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - errors.go: error types and helpers (IsModelNotFound, IsDependencyUnavailable, ...).
//   - helpers.go: model lookup and llama-server discovery.
//   - complete.go: the Complete entry point (one blocking generation, buffered).
//   - sanity.go: SanityCheck report for the configured backend.
//   - events.go: lifecycle events and publishers.
//
// Backends:
//
//   - In-process llama (backend "llama"):
//     Uses the go-llama.cpp adapter. Enabled with `-tags=llama`.
//     Files: adapter_llama.go, llama_cgo.go (linker rpath hints).
//     A no-CGO stub is compiled when the tag is not set: adapter_llama_stub.go.
//
//   - External llama.cpp server (backend "server"):
//     Talks to an already running server over its OpenAI-compatible
//     /v1/completions endpoint. File: adapter_llama_server.go.
//
//   - Spawned llama.cpp server (backend "spawn"):
//     Starts llama-server for the duration of one session and stops it on
//     Close. File: adapter_llama_spawn.go.
//
// Both HTTP backends share the stream parser in openai_stream.go.
package manager
