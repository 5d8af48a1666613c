// Package language resolves human-readable language names ("Spanish") to
// ISO 639-1 codes ("es") and back.
//
// A curated table covers the languages the pipeline is normally asked for.
// Anything outside it falls back to golang.org/x/text parsing so that BCP 47
// tags ("pt-BR") and less common English names still resolve.
package language
