package llm

import (
	"fmt"
	"regexp"
	"strings"
)

const translationPrompt = `You are a professional subtitle translator for corporate training videos.
Translate the SRT subtitles supplied by the user into %s.

Rules:
- Keep every block number and timestamp line exactly as given.
- Keep the same number of blocks in the same order.
- Translate only the text lines. Do not merge or split blocks.
- Keep product names, code, and proper nouns untranslated.
- Respond with the translated SRT only, with no commentary or code fences.`

const healthPrompt = "You must respond with JSON only."

// TranslationPrompt returns the system prompt for a target language.
func TranslationPrompt(language string) string {
	return fmt.Sprintf(translationPrompt, strings.TrimSpace(language))
}

var leadingBlockNumber = regexp.MustCompile(`(?m)^\s*\d+\s*$`)

// CleanTranslation strips code fences and any chatter before the first block
// number. Text without a recognizable block is returned trimmed.
func CleanTranslation(content string) string {
	trimmed := strings.TrimSpace(content)
	if idx := strings.Index(trimmed, "```"); idx >= 0 {
		trimmed = stripCodeFenceBlock(trimmed[idx:])
	}
	if loc := leadingBlockNumber.FindStringIndex(trimmed); loc != nil && loc[0] > 0 {
		trimmed = trimmed[loc[0]:]
	}
	trimmed = strings.ReplaceAll(trimmed, "\r\n", "\n")
	return strings.TrimSpace(trimmed)
}

func stripCodeFenceBlock(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := trimmed[3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.Contains(body[:nl], "-->") {
		// drop the language tag line ("srt", "json", ...)
		body = body[nl+1:]
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

func summarizePayloadSnippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	clean := strings.Join(strings.Fields(trimmed), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
