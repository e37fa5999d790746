package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Enriquefft/tgdispatch/internal/telegram"
)

func newSendCmd() *cobra.Command {
	var (
		chatID int64
		text   string
	)

	cmd := &cobra.Command{
		Use:   "send [chat-id] [text...]",
		Short: "Send a text message as the bot",
		Example: `  tgdispatch send --chat 12345 --text "hello"
  tgdispatch send 12345 hello there`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Allow positional: send CHAT_ID message...
			if chatID == 0 && len(args) > 0 {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("chat id %q: %w", args[0], err)
				}
				chatID, args = id, args[1:]
			}
			if text == "" {
				text = strings.Join(args, " ")
			}
			if chatID == 0 || text == "" {
				return fmt.Errorf("usage: tgdispatch send --chat CHAT_ID --text \"message\"")
			}

			cfg, err := loadConfig(false)
			if err != nil {
				return err
			}
			if cfg.Telegram.Token == "" {
				return fmt.Errorf("TGDISPATCH_TOKEN or telegram.token must be set")
			}

			client, err := telegram.NewClient(cfg.Telegram.Token, telegram.WithAPIServer(cfg.Telegram.APIServer))
			if err != nil {
				return err
			}
			if err := client.SendText(cmd.Context(), chatID, text); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "sent")
			return nil
		},
	}

	cmd.Flags().Int64Var(&chatID, "chat", 0, "target chat id")
	cmd.Flags().StringVar(&text, "text", "", "message text")
	return cmd
}
