// Package bot is the dice bot: it rolls a die for every text message and
// answers a handful of commands.
package bot

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/Enriquefft/tgdispatch/internal/command"
	"github.com/Enriquefft/tgdispatch/internal/demux"
	"github.com/Enriquefft/tgdispatch/internal/dispatch"
	"github.com/Enriquefft/tgdispatch/internal/refine"
	"github.com/Enriquefft/tgdispatch/internal/update"
)

//go:embed commands.yaml
var defaultTable []byte

const maxSides = 1000

// DefaultCommands returns the built-in command table.
func DefaultCommands() ([]command.Capability, error) {
	return command.LoadTable(bytes.NewReader(defaultTable))
}

// Bot holds the handlers. Name is the bot's @username, used to tell
// commands addressed to it from commands addressed to other bots.
type Bot struct {
	Grammar *command.Grammar
	Name    string
	// Roll returns a number in [1, sides]. Nil uses math/rand.
	Roll   func(sides int) int
	Logger *slog.Logger
}

// New creates a Bot.
func New(g *command.Grammar, name string, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{Grammar: g, Name: name, Logger: logger}
}

// Register declares the bot's arms on dm and attaches its handlers to d.
// Kinds the bot does not declare fall through to dm's policy.
func (b *Bot) Register(dm *demux.Demux, d *dispatch.Dispatcher) error {
	messages, err := dm.Declare(update.Message)
	if err != nil {
		return err
	}
	edits, err := dm.Declare(update.EditedMessage)
	if err != nil {
		return err
	}
	callbacks, err := dm.Declare(update.CallbackQuery)
	if err != nil {
		return err
	}

	// One copy of the text stream is narrowed to commands, the other keeps
	// every text so plain messages and bad commands can be answered.
	texts := refine.Tee(refine.Texts(messages.C()), 2)
	if err := dispatch.Handle(d, "command", refine.Commands(texts[0], b.Grammar, b.Name), b.OnCommand); err != nil {
		return err
	}
	if err := dispatch.Handle(d, "text", texts[1], b.OnText); err != nil {
		return err
	}
	if err := dispatch.HandleStream(d, edits.C(), b.OnEdits); err != nil {
		return err
	}
	return dispatch.Handle(d, "callback", callbacks.C(), b.OnCallback)
}

// OnCommand answers one parsed command.
func (b *Bot) OnCommand(ctx context.Context, cm refine.CommandMessage) {
	b.reply(ctx, cm.Event, b.answer(cm.Command))
}

// OnText answers the texts the command stream leaves out: plain text gets a
// roll, unknown or malformed commands get an explanation. Texts that parse
// are left to OnCommand.
func (b *Bot) OnText(ctx context.Context, tm refine.TextMessage) {
	group := tm.Event.Session != nil && tm.Event.Session.Group
	_, err := b.Grammar.ParseIn(tm.Text, b.Name, group)
	switch {
	case err == nil:
		return
	case errors.Is(err, command.ErrNotCommand):
		b.reply(ctx, tm.Event, fmt.Sprintf("You rolled %d", b.roll(6)))
	case errors.Is(err, command.ErrWrongRecipient), errors.Is(err, command.ErrMentionRequired):
		// Meant for another bot in the same group.
	case errors.Is(err, command.ErrUnknownCommand):
		b.reply(ctx, tm.Event, "Unknown command. Try /help")
	default:
		b.reply(ctx, tm.Event, "Could not read that: "+err.Error())
	}
}

func (b *Bot) answer(cmd command.Command) string {
	switch cmd.Name {
	case "help":
		return b.Grammar.Help()
	case "start":
		return "Hi! Send me anything and I will roll a die.\n\n" + b.Grammar.Help()
	case "roll":
		return fmt.Sprintf("You rolled %d", b.roll(6))
	case "dice":
		sides := cmd.IntArg(0)
		if sides < 2 || sides > maxSides {
			return fmt.Sprintf("A die needs between 2 and %d sides", maxSides)
		}
		return fmt.Sprintf("You rolled %d (d%d)", b.roll(sides), sides)
	case "echo":
		if text := cmd.StringArg(0); text != "" {
			return text
		}
		return "Nothing to echo"
	default:
		return "That command is not implemented yet"
	}
}

// OnEdits consumes the edited-message stream to completion. Edits are only
// logged.
func (b *Bot) OnEdits(ctx context.Context, in <-chan update.Event) {
	for ev := range in {
		text, _ := refine.TextOf(ev)
		b.Logger.InfoContext(ctx, "message edited",
			"update_id", ev.ID(),
			"session", ev.Session.ID.String(),
			"text", text,
		)
	}
}

// OnCallback logs a callback query.
func (b *Bot) OnCallback(ctx context.Context, ev update.Event) {
	q := ev.Update.CallbackQuery
	b.Logger.InfoContext(ctx, "callback query",
		"update_id", ev.ID(),
		"session", ev.Session.ID.String(),
		"from", q.From.ID,
		"data", q.Data,
	)
}

func (b *Bot) roll(sides int) int {
	if b.Roll != nil {
		return b.Roll(sides)
	}
	return rand.IntN(sides) + 1
}

func (b *Bot) reply(ctx context.Context, ev update.Event, text string) {
	if ev.Session == nil || ev.Session.Bot == nil {
		b.Logger.WarnContext(ctx, "no sender for reply", "update_id", ev.ID())
		return
	}
	if err := ev.Session.Reply(ctx, text); err != nil {
		b.Logger.ErrorContext(ctx, "reply failed",
			"update_id", ev.ID(),
			"session", ev.Session.ID.String(),
			"chat_id", ev.Session.ChatID,
			"error", err,
		)
	}
}
