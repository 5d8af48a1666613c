// Package jobs persists subtitle processing jobs, their per-language
// translations, and the subject catalog in SQLite.
//
// The Store is the single source of truth for job state. Every write to an
// existing job goes through Mutate, which serializes updates per job ID and
// applies them inside one transaction so translation counters and statuses
// never diverge from the job row. Mutate also rejects transitions that would
// reopen a terminal translation or move counters backwards.
//
// Schema changes bump schemaVersion in schema.go; operators clear the
// database to adopt the new schema.
package jobs
