package language

import (
	"strings"
	"sync"

	"golang.org/x/text/cases"
	xlang "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

type entry struct {
	code2   string   // ISO 639-1
	code3   string   // ISO 639-2
	display string   // English name
	words   []string // accepted lower-case spellings
}

var languages = []entry{
	{"en", "eng", "English", []string{"english"}},
	{"es", "spa", "Spanish", []string{"spanish", "español", "espanol", "castilian"}},
	{"fr", "fra", "French", []string{"french", "français", "francais"}},
	{"de", "deu", "German", []string{"german", "deutsch"}},
	{"it", "ita", "Italian", []string{"italian", "italiano"}},
	{"pt", "por", "Portuguese", []string{"portuguese", "português", "portugues"}},
	{"ja", "jpn", "Japanese", []string{"japanese"}},
	{"ko", "kor", "Korean", []string{"korean"}},
	{"zh", "zho", "Chinese", []string{"chinese", "mandarin"}},
	{"ru", "rus", "Russian", []string{"russian"}},
	{"ar", "ara", "Arabic", []string{"arabic"}},
	{"hi", "hin", "Hindi", []string{"hindi"}},
	{"nl", "nld", "Dutch", []string{"dutch", "flemish"}},
	{"pl", "pol", "Polish", []string{"polish", "polski"}},
	{"sv", "swe", "Swedish", []string{"swedish"}},
	{"da", "dan", "Danish", []string{"danish"}},
	{"no", "nor", "Norwegian", []string{"norwegian"}},
	{"fi", "fin", "Finnish", []string{"finnish"}},
	{"tr", "tur", "Turkish", []string{"turkish"}},
	{"uk", "ukr", "Ukrainian", []string{"ukrainian"}},
	{"vi", "vie", "Vietnamese", []string{"vietnamese"}},
	{"th", "tha", "Thai", []string{"thai"}},
	{"id", "ind", "Indonesian", []string{"indonesian", "bahasa"}},
	{"ro", "ron", "Romanian", []string{"romanian"}},
	{"cs", "ces", "Czech", []string{"czech"}},
	{"el", "ell", "Greek", []string{"greek"}},
	{"he", "heb", "Hebrew", []string{"hebrew"}},
	{"hu", "hun", "Hungarian", []string{"hungarian"}},
	{"tl", "tgl", "Tagalog", []string{"tagalog", "filipino"}},
}

var (
	byCode2 map[string]*entry
	byCode3 map[string]*entry
	byWord  map[string]*entry

	namerOnce sync.Once
	namer     display.Namer
)

func init() {
	byCode2 = make(map[string]*entry, len(languages))
	byCode3 = make(map[string]*entry, len(languages))
	byWord = make(map[string]*entry, len(languages)*2)
	for i := range languages {
		e := &languages[i]
		byCode2[e.code2] = e
		byCode3[e.code3] = e
		for _, w := range e.words {
			byWord[w] = e
		}
	}
}

func englishNamer() display.Namer {
	namerOnce.Do(func() {
		namer = display.English.Languages()
	})
	return namer
}

func normalize(value string) string {
	return strings.ToLower(strings.Join(strings.Fields(value), " "))
}

func lookup(value string) *entry {
	key := normalize(value)
	if key == "" {
		return nil
	}
	if e, ok := byWord[key]; ok {
		return e
	}
	if e, ok := byCode2[key]; ok {
		return e
	}
	if e, ok := byCode3[key]; ok {
		return e
	}
	return nil
}

// Lookup resolves a language name or code to its ISO 639-1 code. The boolean
// is false when neither the table nor x/text recognizes the input.
func Lookup(name string) (string, bool) {
	if e := lookup(name); e != nil {
		return e.code2, true
	}
	key := normalize(name)
	if key == "" {
		return "", false
	}
	if len(key) <= 3 || strings.ContainsAny(key, "-_") {
		if tag, err := xlang.Parse(key); err == nil {
			if base, conf := tag.Base(); conf != xlang.No {
				return base.String(), true
			}
		}
	}
	// Match against English display names, e.g. "Swahili" -> "sw".
	for _, candidate := range displayCandidates {
		tag := xlang.Make(candidate)
		if normalize(englishNamer().Name(tag)) == key {
			return candidate, true
		}
	}
	return "", false
}

// Resolve maps a language name to its ISO code. Unrecognized names fall back
// to their normalized lower-case form with spaces replaced by hyphens so that
// deduplication by code still behaves predictably.
func Resolve(name string) string {
	if code, ok := Lookup(name); ok {
		return code
	}
	return strings.ReplaceAll(normalize(name), " ", "-")
}

// DisplayName returns the English name for a code or name. Empty input yields
// "Unknown"; unrecognized input is title-cased.
func DisplayName(value string) string {
	if strings.TrimSpace(value) == "" {
		return "Unknown"
	}
	if e := lookup(value); e != nil {
		return e.display
	}
	if code, ok := Lookup(value); ok {
		if name := englishNamer().Name(xlang.Make(code)); name != "" {
			return name
		}
	}
	return cases.Title(xlang.English).String(normalize(value))
}

// ToISO3 converts a recognized language to its ISO 639-2 code, or "und".
func ToISO3(value string) string {
	if e := lookup(value); e != nil {
		return e.code3
	}
	if code, ok := Lookup(value); ok {
		if base, err := xlang.ParseBase(code); err == nil {
			return base.ISO3()
		}
	}
	return "und"
}

// Target is one resolved translation language.
type Target struct {
	Name string
	Code string
}

// Targets resolves the requested language names into an ordered, de-duplicated
// list that always starts with the source language. Requests resolving to the
// same code as an earlier entry are dropped.
func Targets(source string, requested []string) []Target {
	out := make([]Target, 0, len(requested)+1)
	seen := make(map[string]struct{}, len(requested)+1)
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		code := Resolve(name)
		if _, ok := seen[code]; ok {
			return
		}
		seen[code] = struct{}{}
		label := name
		if e := lookup(name); e != nil {
			label = e.display
		}
		out = append(out, Target{Name: label, Code: code})
	}
	add(source)
	for _, name := range requested {
		add(name)
	}
	return out
}

// displayCandidates lists additional ISO 639-1 codes checked by English name
// when the curated table misses.
var displayCandidates = []string{
	"af", "am", "az", "be", "bg", "bn", "bs", "ca", "cy", "et", "eu", "fa",
	"ga", "gl", "gu", "ha", "hr", "hy", "is", "ka", "kk", "km", "kn", "lo",
	"lt", "lv", "mk", "ml", "mn", "mr", "ms", "my", "ne", "pa", "ps", "si",
	"sk", "sl", "so", "sq", "sr", "sw", "ta", "te", "ur", "uz", "xh", "yo",
	"zu",
}
