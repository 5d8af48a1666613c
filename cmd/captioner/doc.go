// Command captioner runs the subtitle daemon and provides operator tooling.
//
// "captioner daemon" starts the long-running service. "start" and "status"
// talk to that daemon over its HTTP API; "jobs" and "subjects" open the job
// store directly so they work while the daemon is down.
package main
