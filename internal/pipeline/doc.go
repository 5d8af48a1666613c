// Package pipeline drives subtitle jobs from video to translated SRT files.
//
// The Orchestrator validates and persists new jobs (Start), executes them on a
// scheduler worker (Run), and derives user-facing progress from the stored
// job (Status). Collaborators are small interfaces so deployments can swap
// transcription, translation, storage, and scheduling providers:
//
//   - Transcriber turns a video URL into timestamped words
//   - Translator translates one batch of SRT blocks
//   - Storage persists SRT files under a tenant-scoped path
//   - Reporter receives fire-and-forget progress events
//   - JobStore is the source of truth for job and translation state
//   - Scheduler queues Run invocations off the request path
//
// A run is sequential across stages: transcription, source SRT generation
// and upload, then per-language translation. Languages are independent; a
// failure in one marks that translation failed and the job still completes.
// Only transcription failures fail the whole job.
package pipeline
