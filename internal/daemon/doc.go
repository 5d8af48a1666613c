// Package daemon coordinates the long-running captioner process.
//
// It wires configuration, the job store, the progress hub, the scheduler, the
// pipeline orchestrator, and the HTTP API into a single lifecycle with
// flock-based locking to prevent multiple instances. On start it fails jobs a
// previous process left mid-flight and re-enqueues jobs that never started.
//
// Keep orchestration logic here: pipeline steps live in internal/pipeline while
// the daemon focuses on startup, shutdown, and recovery.
package daemon
