package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"feedmirror/internal/config"
	"feedmirror/internal/store"
)

func newSettingsCommand(ctx *commandContext) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect and change mirror settings",
	}
	settingsCmd.AddCommand(newSettingsShowCommand(ctx))
	settingsCmd.AddCommand(newSettingsSetCommand(ctx))
	return settingsCmd
}

func newSettingsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current mirror settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				settings, err := st.GetSettings(cmd.Context())
				if err != nil {
					return err
				}
				target := settings.TargetChatID
				if target == "" {
					target = "(unset)"
				}
				rows := [][]string{
					{"target_chat_id", target},
					{"queue_enabled", strconv.FormatBool(settings.QueueEnabled)},
					{"min_interval_seconds", strconv.Itoa(settings.MinIntervalSeconds)},
					{"max_interval_seconds", strconv.Itoa(settings.MaxIntervalSeconds)},
					{"needs_reload", strconv.FormatBool(settings.NeedsReload)},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Setting", "Value"},
					rows,
					[]columnAlignment{alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}

func newSettingsSetCommand(ctx *commandContext) *cobra.Command {
	var (
		targetChat  string
		queueOn     bool
		queueOff    bool
		minInterval int
		maxInterval int
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change mirror settings and signal the daemon to reload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if queueOn && queueOff {
				return fmt.Errorf("--queue-on and --queue-off are mutually exclusive")
			}
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				settings, err := st.GetSettings(cmd.Context())
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("target-chat") {
					settings.TargetChatID = targetChat
				}
				if queueOn {
					settings.QueueEnabled = true
				}
				if queueOff {
					settings.QueueEnabled = false
				}
				if cmd.Flags().Changed("min-interval") {
					settings.MinIntervalSeconds = minInterval
				}
				if cmd.Flags().Changed("max-interval") {
					settings.MaxIntervalSeconds = maxInterval
				}
				if settings.MinIntervalSeconds < 0 {
					return fmt.Errorf("min interval must not be negative")
				}
				if settings.MaxIntervalSeconds < settings.MinIntervalSeconds {
					return fmt.Errorf("max interval must not be below min interval")
				}
				if err := st.UpdateSettings(cmd.Context(), settings); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Settings updated; daemon will reload on its next check.")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&targetChat, "target-chat", "", "Target chat identifier for published posts")
	cmd.Flags().BoolVar(&queueOn, "queue-on", false, "Route admitted posts through the release queue")
	cmd.Flags().BoolVar(&queueOff, "queue-off", false, "Publish admitted posts immediately")
	cmd.Flags().IntVar(&minInterval, "min-interval", 0, "Minimum seconds between releases")
	cmd.Flags().IntVar(&maxInterval, "max-interval", 0, "Maximum seconds between releases")
	return cmd
}
