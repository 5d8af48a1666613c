package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"captioner/internal/jobs"
)

func newSubjectsCommand(ctx *commandContext) *cobra.Command {
	subjectsCmd := &cobra.Command{
		Use:   "subjects",
		Short: "Manage training subjects",
	}
	subjectsCmd.AddCommand(newSubjectsAddCommand(ctx))
	subjectsCmd.AddCommand(newSubjectsListCommand(ctx))
	subjectsCmd.AddCommand(newSubjectsFetchCommand(ctx))
	return subjectsCmd
}

func newSubjectsAddCommand(ctx *commandContext) *cobra.Command {
	var title, tenant string

	cmd := &cobra.Command{
		Use:   "add <id>",
		Short: "Create a subject, or update its title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(tenant) == "" {
				tenant = cfg.Tenant.DefaultID
			}
			return ctx.withStore(func(store *jobs.Store) error {
				subject, err := store.UpsertSubject(cmd.Context(), jobs.Subject{
					ID:       strings.TrimSpace(args[0]),
					TenantID: strings.TrimSpace(tenant),
					Title:    strings.TrimSpace(title),
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Subject %s saved (tenant %s)\n", subject.ID, subject.TenantID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Human readable subject title")
	cmd.Flags().StringVar(&tenant, "tenant", "", "Owning tenant (defaults to tenant.default_id)")
	return cmd
}

func newSubjectsListCommand(ctx *commandContext) *cobra.Command {
	var tenant string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List subjects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *jobs.Store) error {
				subjects, err := store.ListSubjects(cmd.Context(), strings.TrimSpace(tenant))
				if err != nil {
					return err
				}
				if len(subjects) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No subjects")
					return nil
				}
				rows := make([][]string, 0, len(subjects))
				for _, s := range subjects {
					rows = append(rows, []string{s.ID, s.TenantID, s.Title, s.UpdatedAt.Local().Format(time.DateTime)})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"ID", "Tenant", "Title", "Updated"}, rows, nil))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "Only list subjects owned by this tenant")
	return cmd
}

func newSubjectsFetchCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "fetch <subject> <language>",
		Short: "Download a published subtitle file from the daemon",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			content, err := client.Subtitle(cmd.Context(), strings.TrimSpace(args[0]), strings.TrimSpace(args[1]))
			if err != nil {
				return daemonError(err)
			}
			if output == "" {
				fmt.Fprint(cmd.OutOrStdout(), content)
				return nil
			}
			if err := os.WriteFile(output, []byte(content), 0o644); err != nil {
				return fmt.Errorf("write subtitles: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")
	return cmd
}
