package srt

import (
	"fmt"
	"strings"
)

// Validate reports format issues in SRT text. An empty slice means the
// document looks usable.
func Validate(text string) []string {
	blocks := SplitBlocks(text)
	if len(blocks) == 0 {
		return []string{"empty_subtitle_file"}
	}
	var issues []string
	var previousStart float64
	for i, block := range blocks {
		lines := strings.Split(strings.ReplaceAll(block, "\r\n", "\n"), "\n")
		timing := ""
		for _, line := range lines {
			if strings.Contains(line, "-->") {
				timing = line
				break
			}
		}
		if timing == "" {
			issues = append(issues, fmt.Sprintf("block %d: missing timing line", i+1))
			continue
		}
		startText, endText, _ := strings.Cut(timing, "-->")
		start, errStart := ParseTimestamp(startText)
		end, errEnd := ParseTimestamp(endText)
		if errStart != nil || errEnd != nil {
			issues = append(issues, fmt.Sprintf("block %d: invalid timestamp", i+1))
			continue
		}
		if end < start {
			issues = append(issues, fmt.Sprintf("block %d: end before start", i+1))
		}
		if start < previousStart {
			issues = append(issues, fmt.Sprintf("block %d: timestamps not monotonic", i+1))
		}
		previousStart = start
	}
	return issues
}
