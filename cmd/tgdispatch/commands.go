package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCommandsCmd() *cobra.Command {
	var (
		parse string
		bot   string
		group bool
		names bool
	)

	cmd := &cobra.Command{
		Use:   "commands",
		Short: "List the bot commands, or show how a text parses",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(false)
			if err != nil {
				return err
			}
			g, err := newGrammar(cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			switch {
			case names:
				for _, name := range g.Names() {
					fmt.Fprintln(out, name)
				}
				return nil
			case parse == "":
				fmt.Fprintln(out, g.Help())
				return nil
			}

			if bot == "" {
				bot = cfg.Telegram.BotName
			}
			c, err := g.ParseIn(parse, bot, group)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s %v\n", c.Name, c.Args)
			return nil
		},
	}

	cmd.Flags().StringVar(&parse, "parse", "", "parse this text instead of listing")
	cmd.Flags().StringVar(&bot, "bot", "", "bot username to parse for (default telegram.bot_name)")
	cmd.Flags().BoolVar(&group, "group", false, "parse as if sent in a group chat")
	cmd.Flags().BoolVar(&names, "names", false, "print only the command names, sorted")
	return cmd
}
