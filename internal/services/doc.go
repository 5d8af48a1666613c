// Package services defines shared utilities consumed by the pipeline and its
// external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, subject IDs, stage names, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures (not found, conflict, validation, external) with errors.Is.
//
// Use these helpers when wiring new pipeline logic or provider clients so
// operational behaviour (error handling, observability) stays uniform.
package services
