package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"captioner/internal/httpapi"
	"captioner/internal/jobs"
	"captioner/internal/pipeline"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and maintain the job store",
	}

	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsStatsCommand(ctx))
	jobsCmd.AddCommand(newJobsClearCommand(ctx))
	jobsCmd.AddCommand(newJobsRemoveCommand(ctx))
	jobsCmd.AddCommand(newJobsHealthCommand(ctx))

	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var (
		statusFlags []string
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatuses(statusFlags)
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *jobs.Store) error {
				list, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if asJSON {
					resp := httpapi.JobListResponse{Jobs: make([]httpapi.JobResponse, 0, len(list))}
					for _, job := range list {
						resp.Jobs = append(resp.Jobs, httpapi.NewJobResponse(job, false))
					}
					return writeJSON(cmd, resp)
				}
				if len(list) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Subject", "Tenant", "Status", "Progress", "Languages", "Created"},
					buildJobRows(list),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statusFlags, "status", "s", nil, "Filter by status (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func buildJobRows(list []*jobs.Job) [][]string {
	rows := make([][]string, 0, len(list))
	for _, job := range list {
		codes := make([]string, 0, len(job.Translations))
		for _, tr := range job.Translations {
			codes = append(codes, tr.LanguageCode)
		}
		rows = append(rows, []string{
			job.ID,
			job.SubjectID,
			job.TenantID,
			string(job.Status),
			strconv.Itoa(pipeline.OverallPercentage(job)) + "%",
			strings.Join(codes, ","),
			job.CreatedAt.Local().Format(time.DateTime),
		})
	}
	return rows
}

func parseStatuses(values []string) ([]jobs.Status, error) {
	var statuses []jobs.Status
	for _, value := range values {
		status, ok := jobs.ParseStatus(value)
		if !ok {
			return nil, fmt.Errorf("unknown status %q", value)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	var withTranscript bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a job record as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *jobs.Store) error {
				job, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if job == nil {
					return fmt.Errorf("job %s not found", args[0])
				}
				return writeJSON(cmd, httpapi.NewJobResponse(job, withTranscript))
			})
		},
	}
	cmd.Flags().BoolVar(&withTranscript, "transcript", false, "Include the raw transcription response")
	return cmd
}

func newJobsStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show job counts per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *jobs.Store) error {
				counts, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(counts))
				for _, status := range jobs.AllStatuses() {
					if n := counts[status]; n > 0 {
						rows = append(rows, []string{string(status), strconv.Itoa(n)})
					}
				}
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Status", "Jobs"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
}

func newJobsClearCommand(ctx *commandContext) *cobra.Command {
	var completed, failed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove finished jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !completed && !failed {
				return fmt.Errorf("choose --completed, --failed, or both")
			}
			return ctx.withJanitor(func(janitor *pipeline.Janitor) error {
				out := cmd.OutOrStdout()
				var targets []jobs.Status
				if completed {
					targets = append(targets, jobs.StatusCompleted)
				}
				if failed {
					targets = append(targets, jobs.StatusFailed)
				}
				for _, status := range targets {
					n, result, err := janitor.Clear(cmd.Context(), status)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Removed %d %s jobs%s\n", n, status, filesSummary(result))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&completed, "completed", false, "Remove completed jobs")
	cmd.Flags().BoolVar(&failed, "failed", false, "Remove failed jobs")
	return cmd
}

func newJobsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>...",
		Short: "Remove specific jobs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJanitor(func(janitor *pipeline.Janitor) error {
				for _, id := range args {
					result, err := janitor.Remove(cmd.Context(), id)
					if err != nil {
						return err
					}
					if result.Removed {
						fmt.Fprintf(cmd.OutOrStdout(), "Removed job %s%s\n", id, filesSummary(result))
					} else {
						fmt.Fprintf(cmd.OutOrStdout(), "Job %s not found\n", id)
					}
				}
				return nil
			})
		},
	}
}

func newJobsHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the job database schema and integrity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *jobs.Store) error {
				health, err := store.CheckHealth(cmd.Context())
				if err != nil {
					return err
				}
				colorize := shouldColorize(cmd.OutOrStdout())
				lines := renderSectionHeader("Database", colorize)
				lines = append(lines,
					renderStatusLine("Path", statusInfo, health.DBPath, colorize),
					renderStatusLine("Readable", boolKind(health.DatabaseReadable), yesNo(health.DatabaseReadable), colorize),
					renderStatusLine("Schema version", statusInfo, strconv.Itoa(health.SchemaVersion), colorize),
					renderStatusLine("Integrity", boolKind(health.IntegrityCheck), yesNo(health.IntegrityCheck), colorize),
					renderStatusLine("Jobs", statusInfo, strconv.Itoa(health.TotalJobs), colorize),
				)
				if len(health.MissingTables) > 0 {
					lines = append(lines, renderStatusLine("Missing tables", statusError, strings.Join(health.MissingTables, ", "), colorize))
				}
				if health.Error != "" {
					lines = append(lines, renderStatusLine("Error", statusError, health.Error, colorize))
				}
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(lines, "\n"))
				return nil
			})
		},
	}
}

// filesSummary describes stored subtitle files touched by a removal.
func filesSummary(result pipeline.RemoveResult) string {
	if result.FilesDeleted == 0 && result.FilesKept == 0 {
		return ""
	}
	summary := fmt.Sprintf(" (deleted %d subtitle files", result.FilesDeleted)
	if result.FilesKept > 0 {
		summary += fmt.Sprintf(", kept %d still used by newer jobs", result.FilesKept)
	}
	return summary + ")"
}

func boolKind(ok bool) statusKind {
	if ok {
		return statusOK
	}
	return statusError
}
