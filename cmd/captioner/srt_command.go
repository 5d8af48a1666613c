package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"captioner/internal/srt"
)

func newSRTCommand() *cobra.Command {
	srtCmd := &cobra.Command{
		Use:         "srt",
		Short:       "Offline subtitle utilities",
		Annotations: map[string]string{"skipConfigLoad": "true"},
	}
	srtCmd.AddCommand(newSRTGenerateCommand())
	srtCmd.AddCommand(newSRTValidateCommand())
	return srtCmd
}

func newSRTGenerateCommand() *cobra.Command {
	var (
		wordsPerSubtitle int
		outputPath       string
	)

	cmd := &cobra.Command{
		Use:   "generate <words.json>",
		Short: "Build an SRT file from a word-level transcription",
		Long: "Reads either a transcription response ({\"words\": [...]}) or a bare JSON array of\n" +
			"words with text, type, start, and end fields, and writes SRT to stdout or --output.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			words, err := readWords(args[0])
			if err != nil {
				return err
			}
			text := srt.Generate(words, wordsPerSubtitle)
			if text == "" {
				return fmt.Errorf("%s contains no subtitle words", args[0])
			}
			if outputPath == "" {
				fmt.Fprint(cmd.OutOrStdout(), text)
				return nil
			}
			if err := os.WriteFile(outputPath, []byte(text), 0o644); err != nil {
				return fmt.Errorf("write srt: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d subtitles to %s\n", srt.CountBlocks(text), outputPath)
			return nil
		},
	}
	cmd.Flags().IntVarP(&wordsPerSubtitle, "words", "w", srt.DefaultWordsPerSubtitle, "Maximum words per subtitle block")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the SRT to this file instead of stdout")
	return cmd
}

func newSRTValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file.srt>",
		Short: "Report timing and numbering problems in an SRT file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read srt: %w", err)
			}
			issues := srt.Validate(string(data))
			if len(issues) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d subtitles, no issues\n", args[0], srt.CountBlocks(string(data)))
				return nil
			}
			for _, issue := range issues {
				fmt.Fprintln(cmd.OutOrStdout(), issue)
			}
			return fmt.Errorf("%s: %d issues", args[0], len(issues))
		},
	}
}

func readWords(path string) ([]srt.Word, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read words: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var words []srt.Word
		if err := json.Unmarshal(data, &words); err != nil {
			return nil, fmt.Errorf("parse words: %w", err)
		}
		return words, nil
	}
	var envelope struct {
		Words []srt.Word `json:"words"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("parse words: %w", err)
	}
	return envelope.Words, nil
}
