// Package progress fans out live job progress events.
//
// Hub keeps a bounded ring of recent events and wakes long-poll waiters when
// new events arrive. The pipeline reports through Hub.Report, which never
// fails the job; the HTTP API exposes Fetch as a long-poll endpoint and
// ServeWebSocket as a push stream for one job.
package progress
