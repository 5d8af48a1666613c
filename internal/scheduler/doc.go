// Package scheduler delivers job ids to the pipeline's Run handler.
//
// Pool keeps ids in a bounded in-process channel drained by a fixed number of
// worker goroutines; it is the default for a single daemon. AMQP publishes ids
// to a durable RabbitMQ queue and acknowledges each delivery only after the
// handler returns, so several daemons can share one queue with at-least-once
// delivery. Handlers must tolerate duplicates; the pipeline's Run does, since
// it only claims pending jobs.
package scheduler
