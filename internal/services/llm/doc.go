// Package llm provides the chat-completion client that translates subtitle
// batches.
//
// TranslateBatch sends one SRT fragment with a system prompt that pins block
// numbering and timestamps, then cleans the reply (code fences, preambles)
// before handing it back. HealthCheck issues a tiny JSON ping so the daemon
// can verify the key and model at startup.
//
// Requests that fail with HTTP 408/429/5xx, network timeouts, or an empty
// completion are retried with exponential backoff (Retry-After wins when the
// provider sends one). Context cancellation stops retries immediately.
package llm
