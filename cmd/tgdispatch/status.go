package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Enriquefft/tgdispatch/internal/config"
	"github.com/Enriquefft/tgdispatch/internal/telegram"
)

func newStatusCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check the bot token, the saved offset and the webhook server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(false)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if path := config.Path(); path == "" {
				fmt.Fprintln(out, "config: none")
			} else if _, err := os.Stat(path); err != nil {
				fmt.Fprintf(out, "config: %s (not found, using defaults)\n", path)
			} else {
				fmt.Fprintf(out, "config: %s\n", path)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			if cfg.Telegram.Token != "" {
				client, err := telegram.NewClient(cfg.Telegram.Token, telegram.WithAPIServer(cfg.Telegram.APIServer))
				if err != nil {
					return err
				}
				name, err := client.Username(ctx)
				if err != nil {
					fmt.Fprintf(out, "bot: unreachable (%v)\n", err)
				} else {
					fmt.Fprintf(out, "bot: @%s\n", name)
				}
			} else {
				fmt.Fprintln(out, "bot: no token configured")
			}

			store, closeStore, err := newStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()
			if offset, err := store.Load(ctx); err != nil {
				fmt.Fprintf(out, "offset: unreadable (%v)\n", err)
			} else {
				fmt.Fprintf(out, "offset: %d (%s)\n", offset, cfg.State.Backend)
			}

			if addr == "" && !hasMode(cfg, config.ModeWebhook) {
				return nil
			}
			if addr == "" {
				addr = healthBase(cfg.Webhook.Addr)
			}
			return checkHealth(ctx, out, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "webhook server base URL (default from webhook.addr)")
	return cmd
}

func hasMode(cfg *config.Config, mode string) bool {
	for _, m := range cfg.Modes() {
		if m == mode {
			return true
		}
	}
	return false
}

// healthBase turns a listen address such as ":18790" into a URL.
func healthBase(listen string) string {
	if strings.HasPrefix(listen, ":") {
		return "http://localhost" + listen
	}
	if !strings.Contains(listen, "://") {
		return "http://" + listen
	}
	return listen
}

func checkHealth(ctx context.Context, out io.Writer, base string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(base, "/")+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook server unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook server: unhealthy (status %d)", resp.StatusCode)
	}
	fmt.Fprintln(out, "webhook server: ok")
	return nil
}
