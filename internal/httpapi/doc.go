// Package httpapi exposes the daemon over HTTP.
//
// Routes live under /api: subjects are upserted with PUT, subtitle jobs are
// started with POST and polled through the status view, and individual jobs
// can be inspected, long-polled for progress events, or streamed over a
// websocket. Handlers translate services error markers into status codes
// (not found 404, conflict 409, validation 400, upstream failures 502).
//
// When paths.api_token is set every route except /api/health requires
// "Authorization: Bearer <token>".
package httpapi
