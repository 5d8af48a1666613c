// Package transcription wraps the hosted speech-to-text API.
//
// Client.Transcribe resolves the job's video source first. Direct URLs are
// handed to the provider as cloud_storage_url; cloud-drive links are
// rewritten to a direct download, fetched, and streamed to the provider as a
// multipart upload. Download and API failures come back as services-tagged
// errors so callers can log a classification without inspecting transport
// details.
package transcription
