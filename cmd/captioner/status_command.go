package main

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"captioner/internal/httpapi"
	"captioner/internal/pipeline"
	"captioner/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var (
		asJSON bool
		check  bool
	)

	cmd := &cobra.Command{
		Use:   "status [subject]",
		Short: "Show daemon status, or the subtitle progress of one subject",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				view, err := client.SubjectStatus(cmd.Context(), args[0])
				if err != nil {
					return daemonError(err)
				}
				if asJSON {
					return writeJSON(cmd, view)
				}
				fmt.Fprint(cmd.OutOrStdout(), renderSubjectStatus(view, shouldColorize(cmd.OutOrStdout())))
				return nil
			}

			status, err := client.Status(cmd.Context())
			if err != nil && !errors.Is(err, httpapi.ErrDaemonUnavailable) {
				return err
			}
			if asJSON {
				if status == nil {
					status = &httpapi.DaemonStatus{}
				}
				return writeJSON(cmd, status)
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			colorize := shouldColorize(cmd.OutOrStdout())
			lines := renderSectionHeader("Daemon", colorize)
			if status == nil {
				lines = append(lines, renderStatusLine("Daemon", statusError, "not running", colorize))
			} else {
				lines = append(lines,
					renderStatusLine("Daemon", statusOK, fmt.Sprintf("running (pid %d, up %s)", status.PID, time.Duration(status.UptimeSeconds)*time.Second), colorize),
					renderStatusLine("Scheduler", statusInfo, fmt.Sprintf("%s: %d queued, %d running, %d processed, %d failed",
						status.Scheduler.Backend, status.Scheduler.Queued, status.Scheduler.Running, status.Scheduler.Processed, status.Scheduler.Failed), colorize),
				)
			}
			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Services", colorize)...)
			results := []preflight.Result{preflight.StorageFromConfig(cfg), preflight.NotificationsFromConfig(cfg)}
			if check {
				results = append(results, preflight.RunAll(cmd.Context(), cfg)...)
			}
			for _, result := range results {
				kind := statusOK
				if !result.Passed {
					kind = statusError
				}
				lines = append(lines, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(lines, "\n"))

			if status != nil && len(status.Jobs) > 0 {
				fmt.Fprintln(cmd.OutOrStdout())
				fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Status", "Jobs"}, countRows(status.Jobs), []columnAlignment{alignLeft, alignRight}))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&check, "check", false, "Run live preflight checks against external services")
	return cmd
}

func renderSubjectStatus(view *pipeline.StatusView, colorize bool) string {
	var b strings.Builder
	fmt.Fprintln(&b, renderStatusLine("Job", jobStatusKind(string(view.Status)), view.JobID, colorize))
	fmt.Fprintln(&b, renderStatusLine("Step", statusInfo, fmt.Sprintf("%s (%d%%)", view.CurrentStep, view.OverallPercentage), colorize))
	if view.ErrorMessage != "" {
		fmt.Fprintln(&b, renderStatusLine("Error", statusError, view.ErrorMessage, colorize))
	}
	rows := make([][]string, 0, len(view.Translations))
	for _, tr := range view.Translations {
		detail := tr.SRTURL
		if tr.ErrorMessage != "" {
			detail = tr.ErrorMessage
		}
		rows = append(rows, []string{
			tr.Language,
			tr.LanguageCode,
			string(tr.Status),
			fmt.Sprintf("%d/%d", tr.SubtitlesProcessed, tr.TotalSubtitles),
			strconv.Itoa(tr.Percentage) + "%",
			detail,
		})
	}
	b.WriteString(renderTable(
		[]string{"Language", "Code", "Status", "Subtitles", "Progress", "Result"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	))
	return b.String()
}

func countRows(counts map[string]int) [][]string {
	keys := make([]string, 0, len(counts))
	for key, count := range counts {
		if count > 0 {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{key, strconv.Itoa(counts[key])})
	}
	return rows
}
