// Package telegram talks to the Bot API through telego.
package telegram

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// MaxMessageLen is the Bot API limit on a single text message.
const MaxMessageLen = 4096

// Client sends and receives through the Telegram Bot API.
type Client struct {
	bot *telego.Bot
}

// Option configures a Client.
type Option func(*options)

type options struct {
	apiServer string
	debug     bool
}

// WithAPIServer points the client at a different Bot API server.
func WithAPIServer(url string) Option {
	return func(o *options) { o.apiServer = url }
}

// WithDebug turns on telego's request logging.
func WithDebug(on bool) Option {
	return func(o *options) { o.debug = on }
}

// NewClient creates a Bot API client for token.
func NewClient(token string, opts ...Option) (*Client, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	botOpts := []telego.BotOption{telego.WithDiscardLogger()}
	if o.debug {
		botOpts = []telego.BotOption{telego.WithDefaultDebugLogger()}
	}
	if o.apiServer != "" {
		botOpts = append(botOpts, telego.WithAPIServer(o.apiServer))
	}

	bot, err := telego.NewBot(token, botOpts...)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	return &Client{bot: bot}, nil
}

// Updates long-polls getUpdates starting at offset.
func (c *Client) Updates(ctx context.Context, offset, limit, timeout int) ([]telego.Update, error) {
	updates, err := c.bot.GetUpdates(ctx, &telego.GetUpdatesParams{
		Offset:  offset,
		Limit:   limit,
		Timeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("get updates: %w", err)
	}
	return updates, nil
}

// SendText sends text to chatID, split into as many messages as the length
// limit requires.
func (c *Client) SendText(ctx context.Context, chatID int64, text string) error {
	for i, chunk := range splitMessage(text, MaxMessageLen) {
		if _, err := c.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), chunk)); err != nil {
			return fmt.Errorf("send chunk %d to %d: %w", i+1, chatID, err)
		}
	}
	return nil
}

// Command is one entry of the bot's command menu.
type Command struct {
	Name        string
	Description string
}

// SetCommands replaces the command menu Telegram clients show for the bot.
func (c *Client) SetCommands(ctx context.Context, commands []Command) error {
	params := &telego.SetMyCommandsParams{Commands: make([]telego.BotCommand, 0, len(commands))}
	for _, cmd := range commands {
		params.Commands = append(params.Commands, telego.BotCommand{
			Command:     cmd.Name,
			Description: cmd.Description,
		})
	}
	if err := c.bot.SetMyCommands(ctx, params); err != nil {
		return fmt.Errorf("set my commands: %w", err)
	}
	return nil
}

// Username returns the bot's @username without the leading @.
func (c *Client) Username(ctx context.Context) (string, error) {
	me, err := c.bot.GetMe(ctx)
	if err != nil {
		return "", fmt.Errorf("get me: %w", err)
	}
	return me.Username, nil
}
