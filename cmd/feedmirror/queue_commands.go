package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"feedmirror/internal/config"
	"feedmirror/internal/store"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the release queue",
	}
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued posts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				var statuses []store.Status
				if statusFlag != "" {
					for _, raw := range strings.Split(statusFlag, ",") {
						status, ok := store.ParseStatus(raw)
						if !ok {
							return fmt.Errorf("unknown status %q", raw)
						}
						statuses = append(statuses, status)
					}
				}

				posts, err := st.ListPosts(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if len(posts) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty.")
					return nil
				}

				rows := make([][]string, 0, len(posts))
				for _, post := range posts {
					errText := post.ErrorMessage
					if len(errText) > 48 {
						errText = errText[:45] + "..."
					}
					rows = append(rows, []string{
						strconv.FormatInt(post.ID, 10),
						string(post.Status),
						strconv.FormatInt(post.SourceChannelID, 10),
						strconv.FormatInt(post.SourceMessageID, 10),
						shortFingerprint(post.Fingerprint),
						post.ScheduledAt.Local().Format("2006-01-02 15:04:05"),
						errText,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Status", "Channel", "Message", "Fingerprint", "Scheduled", "Error"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&statusFlag, "status", "", "Comma-separated status filter (pending, processing, completed, failed)")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id...]",
		Short: "Re-submit failed posts for immediate release",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				count, err := st.RetryFailed(cmd.Context(), ids...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Re-submitted %d post(s).\n", count)
				return nil
			})
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a post from the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid post id %q", args[0])
			}
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				removed, err := st.RemovePost(cmd.Context(), id)
				if err != nil {
					return err
				}
				if !removed {
					fmt.Fprintf(cmd.OutOrStdout(), "Post %d not found.\n", id)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed post %d.\n", id)
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove terminal posts from the queue",
	}
	clearCmd.AddCommand(&cobra.Command{
		Use:   "failed",
		Short: "Remove all failed posts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				count, err := st.ClearFailed(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d failed post(s).\n", count)
				return nil
			})
		},
	})
	clearCmd.AddCommand(&cobra.Command{
		Use:   "completed",
		Short: "Remove all completed posts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				count, err := st.ClearCompleted(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d completed post(s).\n", count)
				return nil
			})
		},
	})
	return clearCmd
}

func newStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show queue and archive statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				counts, err := st.CountByStatus(cmd.Context())
				if err != nil {
					return err
				}
				archived, err := st.ArchivedCount(cmd.Context())
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(counts)+1)
				for _, status := range store.AllStatuses() {
					rows = append(rows, []string{string(status), strconv.Itoa(counts[status])})
				}
				rows = append(rows, []string{"archived", strconv.FormatInt(archived, 10)})
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Status", "Count"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid post id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
