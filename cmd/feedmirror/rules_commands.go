package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"feedmirror/internal/config"
	"feedmirror/internal/filtering"
	"feedmirror/internal/store"
)

func newRulesCommand(ctx *commandContext) *cobra.Command {
	rulesCmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage suppression rules",
	}

	rulesCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List suppression rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				rules, err := st.ListFilterRules(cmd.Context())
				if err != nil {
					return err
				}
				if len(rules) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No suppression rules configured.")
					return nil
				}
				rows := make([][]string, 0, len(rules))
				for _, rule := range rules {
					kind := "literal"
					if rule.IsRegex {
						kind = "regex"
					}
					rows = append(rows, []string{
						rule.Pattern,
						kind,
						strconv.FormatBool(rule.Enabled),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Pattern", "Kind", "Enabled"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	})

	var isRegex bool
	addCmd := &cobra.Command{
		Use:   "add <pattern>",
		Short: "Add a suppression rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				rule := filtering.Rule{Pattern: args[0], IsRegex: isRegex, Enabled: true}
				if err := st.AddFilterRule(cmd.Context(), rule); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added rule %q.\n", args[0])
				return nil
			})
		},
	}
	addCmd.Flags().BoolVar(&isRegex, "regex", false, "Treat the pattern as a regular expression")
	rulesCmd.AddCommand(addCmd)

	return rulesCmd
}

func newChannelsCommand(ctx *commandContext) *cobra.Command {
	channelsCmd := &cobra.Command{
		Use:   "channels",
		Short: "Manage the source channel whitelist",
	}

	channelsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List whitelisted channels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				specifiers, err := st.ListWhitelist(cmd.Context())
				if err != nil {
					return err
				}
				if len(specifiers) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Whitelist is empty; all channels are rejected.")
					return nil
				}
				rows := make([][]string, 0, len(specifiers))
				for _, spec := range specifiers {
					rows = append(rows, []string{spec})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Specifier"},
					rows,
					[]columnAlignment{alignLeft},
				))
				return nil
			})
		},
	})

	channelsCmd.AddCommand(&cobra.Command{
		Use:   "add <specifier>",
		Short: "Whitelist a channel by numeric id or @username",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				if err := st.AddWhitelistEntry(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Whitelisted %q.\n", args[0])
				return nil
			})
		},
	})

	return channelsCmd
}
