package srt

import (
	"regexp"
	"strings"
)

var blockSeparator = regexp.MustCompile(`\r?\n(?:[ \t]*\r?\n)+`)

// SplitBlocks splits SRT text on blank-line separators. CRLF line endings
// are accepted; whitespace-only input yields no blocks. Only the line breaks
// at a block's edges are stripped, so spaces inside a block survive a
// join/split round trip.
func SplitBlocks(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	parts := blockSeparator.Split(text, -1)
	blocks := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		blocks = append(blocks, strings.Trim(part, "\r\n"))
	}
	return blocks
}

// CountBlocks returns len(SplitBlocks(text)).
func CountBlocks(text string) int {
	return len(SplitBlocks(text))
}

// Batch is a contiguous run of blocks sent to a translator in one call.
type Batch struct {
	Index  int
	Blocks []string
}

// Text renders the batch as SRT text.
func (b Batch) Text() string {
	return strings.Join(b.Blocks, "\n\n")
}

// Count returns the number of blocks in the batch.
func (b Batch) Count() int {
	return len(b.Blocks)
}

// Batches groups blocks into consecutive batches of at most size blocks,
// preserving source order.
func Batches(blocks []string, size int) []Batch {
	if len(blocks) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(blocks)
	}
	out := make([]Batch, 0, (len(blocks)+size-1)/size)
	for start := 0; start < len(blocks); start += size {
		end := min(start+size, len(blocks))
		out = append(out, Batch{Index: len(out), Blocks: blocks[start:end]})
	}
	return out
}

// Concat joins translated batch texts in order, producing a document shaped
// like Generate output (each block followed by a blank line).
func Concat(parts []string) string {
	var b strings.Builder
	for _, part := range parts {
		for _, block := range SplitBlocks(part) {
			b.WriteString(block)
			b.WriteString("\n\n")
		}
	}
	return b.String()
}
