// Package srt renders word-level transcripts as SubRip subtitle text and
// splits existing SRT documents into blocks and translation batches.
//
// Everything here is pure and synchronous; callers own I/O.
package srt
