// Package notifications delivers job outcome events via ntfy.
//
// NewService returns an ntfy publisher when a topic is configured and a no-op
// otherwise. Callers publish an Event with a loosely typed Payload; the
// service formats the message and drops events the configuration disables.
package notifications
