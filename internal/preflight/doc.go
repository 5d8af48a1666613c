// Package preflight provides readiness checks for the external services
// and filesystem paths captioner depends on.
//
// The daemon runs RunAll once at startup and logs each failure with a hint;
// a failed check does not stop the daemon because jobs may still succeed once
// the dependency recovers. The CLI "captioner status" command renders the
// same results as a table.
package preflight
