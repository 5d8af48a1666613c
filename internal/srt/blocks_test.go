package srt_test

import (
	"slices"
	"strings"
	"testing"

	"captioner/internal/srt"
)

func TestSplitBlocksRoundTrip(t *testing.T) {
	for _, eol := range []string{"\n", "\r\n"} {
		blocks := []string{
			strings.Join([]string{"1", "00:00:00,000 --> 00:00:01,000", "Hello"}, eol),
			strings.Join([]string{"2", "00:00:01,000 --> 00:00:02,000", "World"}, eol),
			strings.Join([]string{"3", "00:00:02,000 --> 00:00:03,000", "Again"}, eol),
		}
		got := srt.SplitBlocks(strings.Join(blocks, "\n\n"))
		if !slices.Equal(got, blocks) {
			t.Fatalf("eol %q: got %q want %q", eol, got, blocks)
		}
		got = srt.SplitBlocks(strings.Join(blocks, eol+eol))
		if !slices.Equal(got, blocks) {
			t.Fatalf("eol %q doubled: got %q want %q", eol, got, blocks)
		}
	}
}

func TestSplitBlocksKeepsInnerWhitespace(t *testing.T) {
	blocks := []string{"a  ", " b", "1\n00:00:00,000 --> 00:00:01,000\n  indented line "}
	for _, sep := range []string{"\n\n", "\r\n\r\n"} {
		got := srt.SplitBlocks(strings.Join(blocks, sep))
		if !slices.Equal(got, blocks) {
			t.Fatalf("sep %q: got %q want %q", sep, got, blocks)
		}
	}
	if got := srt.SplitBlocks("\n\nonly\n\n\n"); !slices.Equal(got, []string{"only"}) {
		t.Fatalf("edge line breaks not stripped: %q", got)
	}
}

func TestSplitBlocksWhitespaceOnly(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\n\r\n", "\t"} {
		if got := srt.SplitBlocks(input); len(got) != 0 {
			t.Fatalf("SplitBlocks(%q) = %q", input, got)
		}
	}
}

func TestCountBlocksMatchesGenerate(t *testing.T) {
	out := srt.Generate(words("a.", "b.", "c.", "d"), 10)
	if got := srt.CountBlocks(out); got != 4 {
		t.Fatalf("expected 4 blocks, got %d", got)
	}
}

func TestBatchesPreserveOrder(t *testing.T) {
	blocks := []string{"1", "2", "3", "4", "5"}
	batches := srt.Batches(blocks, 2)
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}
	var flattened []string
	for i, batch := range batches {
		if batch.Index != i {
			t.Fatalf("batch %d has index %d", i, batch.Index)
		}
		flattened = append(flattened, batch.Blocks...)
	}
	if !slices.Equal(flattened, blocks) {
		t.Fatalf("order not preserved: %v", flattened)
	}
	if batches[2].Count() != 1 {
		t.Fatalf("expected trailing batch of 1, got %d", batches[2].Count())
	}
	if got := batches[0].Text(); got != "1\n\n2" {
		t.Fatalf("unexpected batch text %q", got)
	}
	if srt.Batches(nil, 30) != nil {
		t.Fatal("expected nil batches for no blocks")
	}
}

func TestConcatNormalizesSeparators(t *testing.T) {
	got := srt.Concat([]string{"1\nA\n", "\n2\nB\r\n\r\n3\nC"})
	want := "1\nA\n\n2\nB\n\n3\nC\n\n"
	if got != want {
		t.Fatalf("Concat = %q, want %q", got, want)
	}
}

func TestValidate(t *testing.T) {
	good := srt.Generate(words("Hello", "world."), 10)
	if issues := srt.Validate(good); len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
	if issues := srt.Validate(""); len(issues) != 1 || issues[0] != "empty_subtitle_file" {
		t.Fatalf("unexpected issues for empty: %v", issues)
	}
	bad := "1\n00:00:05,000 --> 00:00:04,000\nBackwards\n\n2\nno timing\n"
	if issues := srt.Validate(bad); len(issues) != 2 {
		t.Fatalf("expected 2 issues, got %v", issues)
	}
}
