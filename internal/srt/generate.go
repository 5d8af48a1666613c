package srt

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Element types reported by word-level transcription providers.
const (
	TypeWord        = "word"
	TypeSpacing     = "spacing"
	TypePunctuation = "punctuation"
	TypeAudioEvent  = "audio_event"
)

// DefaultWordsPerSubtitle caps block length when callers pass a non-positive limit.
const DefaultWordsPerSubtitle = 10

// Word is one timestamped transcript element.
type Word struct {
	Text  string  `json:"text"`
	Type  string  `json:"type"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Transcript is a word-level transcription result. Raw keeps the provider's
// response body for auditing.
type Transcript struct {
	Text         string
	LanguageCode string
	Words        []Word
	Raw          string
}

func (w Word) eligible() bool {
	switch w.Type {
	case TypeSpacing, TypeAudioEvent:
		return false
	}
	return strings.TrimSpace(w.Text) != ""
}

func endsSentence(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	switch text[len(text)-1] {
	case '.', '?', '!':
		return true
	}
	return false
}

// Generate groups words into numbered subtitle blocks of at most
// wordsPerSubtitle words, closing a block early after sentence-ending
// punctuation. Empty or fully ineligible input yields "".
func Generate(words []Word, wordsPerSubtitle int) string {
	if wordsPerSubtitle <= 0 {
		wordsPerSubtitle = DefaultWordsPerSubtitle
	}

	var b strings.Builder
	index := 0
	current := make([]Word, 0, wordsPerSubtitle)

	flush := func() {
		if len(current) == 0 {
			return
		}
		index++
		texts := make([]string, len(current))
		for i, w := range current {
			texts[i] = strings.TrimSpace(w.Text)
		}
		b.WriteString(strconv.Itoa(index))
		b.WriteByte('\n')
		b.WriteString(FormatTimestamp(current[0].Start))
		b.WriteString(" --> ")
		b.WriteString(FormatTimestamp(current[len(current)-1].End))
		b.WriteByte('\n')
		b.WriteString(strings.Join(texts, " "))
		b.WriteString("\n\n")
		current = current[:0]
	}

	for _, w := range words {
		if !w.eligible() {
			continue
		}
		current = append(current, w)
		if len(current) >= wordsPerSubtitle || endsSentence(w.Text) {
			flush()
		}
	}
	flush()
	return b.String()
}

// FormatTimestamp renders seconds as HH:MM:SS,mmm. Milliseconds are rounded,
// carrying into the seconds field; negative input clamps to zero.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	totalMillis := int64(math.Round(seconds * 1000))
	hours := totalMillis / 3_600_000
	minutes := (totalMillis / 60_000) % 60
	secs := (totalMillis / 1000) % 60
	millis := totalMillis % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// ParseTimestamp converts HH:MM:SS,mmm (or HH:MM:SS.mmm) back to seconds.
func ParseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	clock, fraction, ok := strings.Cut(value, ",")
	if !ok {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(clock, ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	secs, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(fraction)
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+secs) + float64(millis)/1000, nil
}
