package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"captioner/internal/httpapi"
	"captioner/internal/progress"
)

const followPollWait = 25 * time.Second

func newStartCommand(ctx *commandContext) *cobra.Command {
	var (
		videoURL  string
		source    string
		languages []string
		tenant    string
		title     string
		follow    bool
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "start <subject>",
		Short: "Request subtitles for a subject's training video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subjectID := strings.TrimSpace(args[0])
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if title != "" {
				if _, err := client.UpsertSubject(cmd.Context(), subjectID, httpapi.SubjectRequest{TenantID: tenant, Title: title}); err != nil {
					return daemonError(err)
				}
			}

			jobID, err := client.StartSubtitles(cmd.Context(), subjectID, httpapi.StartRequest{
				VideoURL:    videoURL,
				VideoSource: source,
				Languages:   languages,
				TenantID:    tenant,
			})
			if err != nil {
				return daemonError(err)
			}
			if asJSON && !follow {
				return writeJSON(cmd, httpapi.StartResponse{JobID: jobID})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued job %s for subject %s\n", jobID, subjectID)
			if !follow {
				return nil
			}
			return followJob(cmd.Context(), client, jobID, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&videoURL, "video", "", "Video URL (direct link or cloud drive share link)")
	cmd.Flags().StringVar(&source, "source", "direct_url", "Video source: direct_url or cloud_drive")
	cmd.Flags().StringSliceVarP(&languages, "lang", "l", nil, "Target language name (repeatable or comma separated)")
	cmd.Flags().StringVar(&tenant, "tenant", "", "Tenant owning the subtitles (defaults to tenant.default_id)")
	cmd.Flags().StringVar(&title, "title", "", "Create or rename the subject before starting")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Stream progress until the job finishes")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the job id as JSON")
	_ = cmd.MarkFlagRequired("video")
	return cmd
}

// followJob long-polls progress events until a terminal event arrives.
func followJob(ctx context.Context, client *httpapi.Client, jobID string, out io.Writer) error {
	var since uint64
	for {
		resp, err := client.Events(ctx, jobID, since, followPollWait)
		if err != nil {
			return daemonError(err)
		}
		for _, evt := range resp.Events {
			fmt.Fprintln(out, formatEvent(evt))
			if evt.Terminal() {
				if evt.Status == "failed" {
					return fmt.Errorf("job %s failed", jobID)
				}
				return nil
			}
		}
		since = resp.Next
	}
}

func formatEvent(evt progress.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %3d%% %-12s", evt.Timestamp.Local().Format("15:04:05"), evt.OverallPercentage, evt.Status)
	if evt.LanguageCode != "" {
		fmt.Fprintf(&b, " [%s %d/%d]", evt.LanguageCode, evt.Processed, evt.Total)
	}
	if evt.Message != "" {
		b.WriteString(" " + evt.Message)
	}
	return b.String()
}

func daemonError(err error) error {
	if errors.Is(err, httpapi.ErrDaemonUnavailable) {
		return fmt.Errorf("%w; start it with `captioner daemon`", err)
	}
	return err
}
