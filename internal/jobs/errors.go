package jobs

import "errors"

var (
	// ErrJobNotFound is returned by Mutate when the job row no longer exists.
	ErrJobNotFound = errors.New("job not found")
	// ErrActiveJob is returned by Create when the subject already has an active job.
	ErrActiveJob = errors.New("subject already has an active job")
	// ErrInvalidTransition is returned by Mutate when a mutation breaks a lifecycle rule.
	ErrInvalidTransition = errors.New("invalid job transition")
	// ErrNotClaimable is returned by Claim when the job has left pending.
	ErrNotClaimable = errors.New("job is not pending")
	// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
	ErrSchemaMismatch = errors.New("schema version mismatch")
)
