package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"feedmirror/internal/media"
	"feedmirror/internal/publisher"
)

func newPublishTestCommand(ctx *commandContext) *cobra.Command {
	var chatID string

	cmd := &cobra.Command{
		Use:   "publish-test <file>",
		Short: "Publish a local file to the target chat, bypassing the queue",
		Long: `Publish a local file directly through the configured bot credentials.
The post is not fingerprinted, archived, or scheduled; this command exists to
verify credentials and connectivity before enabling the mirror.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Target.BotToken == "" {
				return fmt.Errorf("no bot token configured; set target.bot_token first")
			}

			payload, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read file: %w", err)
			}

			fileName := filepath.Base(args[0])
			item := media.Item{
				Payload:  payload,
				FileName: fileName,
				MimeType: mime.TypeByExtension(filepath.Ext(fileName)),
			}

			if chatID == "" {
				return fmt.Errorf("--chat is required")
			}

			result, err := publisher.New(cfg).Publish(cmd.Context(), item, chatID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Published %s as message %d.\n", fileName, result.TargetMessageID)
			return nil
		},
	}

	cmd.Flags().StringVar(&chatID, "chat", "", "Target chat identifier")
	return cmd
}
