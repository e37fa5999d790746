// Package command parses chat text into structured bot commands.
//
// A Grammar is built from a caller-supplied table of capabilities. Text such
// as "/roll@dicebot 20" is split into the command name, an optional bot
// mention and the argument text, which the matching capability converts
// into typed fields.
package command

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// DefaultPrefix starts every command unless configured otherwise.
const DefaultPrefix = "/"

// Mention controls whether a command must carry an "@bot" suffix.
type Mention int

const (
	// MentionOptional accepts commands with or without a suffix.
	MentionOptional Mention = iota
	// MentionRequired rejects commands without a suffix.
	MentionRequired
	// MentionInGroups requires a suffix in group chats only.
	MentionInGroups
)

// ParseMention maps "optional", "required" and "groups" to a Mention.
func ParseMention(s string) (Mention, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "optional", "":
		return MentionOptional, nil
	case "required":
		return MentionRequired, nil
	case "groups", "in_groups":
		return MentionInGroups, nil
	default:
		return 0, fmt.Errorf("unknown mention mode %q", s)
	}
}

// Options tunes how text is matched against the table.
type Options struct {
	Prefix          string
	CaseInsensitive bool
	Mention         Mention
}

// Command is a successfully parsed command.
type Command struct {
	Name string
	Args []any
}

// Arg returns the i-th field, or nil when out of range.
func (c Command) Arg(i int) any {
	if i < 0 || i >= len(c.Args) {
		return nil
	}
	return c.Args[i]
}

// StringArg returns the i-th field if it is a string.
func (c Command) StringArg(i int) string {
	s, _ := c.Arg(i).(string)
	return s
}

// IntArg returns the i-th field if it is an int.
func (c Command) IntArg(i int) int {
	n, _ := c.Arg(i).(int)
	return n
}

// Grammar matches text against a fixed command table.
type Grammar struct {
	opts  Options
	caps  map[string]Capability
	order []Capability
}

// NewGrammar builds a grammar over caps. Names must be unique (after case
// folding when CaseInsensitive is set) and definitions must validate.
func NewGrammar(opts Options, caps ...Capability) (*Grammar, error) {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}

	g := &Grammar{
		opts: opts,
		caps: make(map[string]Capability, len(caps)),
	}
	for _, c := range caps {
		if v, ok := c.(interface{ Validate() error }); ok {
			if err := v.Validate(); err != nil {
				return nil, err
			}
		}
		key := g.key(c.Name())
		if key == "" {
			return nil, fmt.Errorf("command without name")
		}
		if _, dup := g.caps[key]; dup {
			return nil, fmt.Errorf("duplicate command %q", c.Name())
		}
		g.caps[key] = c
		g.order = append(g.order, c)
	}
	return g, nil
}

func (g *Grammar) key(name string) string {
	if g.opts.CaseInsensitive {
		return strings.ToLower(name)
	}
	return name
}

// Commands returns the table in declaration order.
func (g *Grammar) Commands() []Capability {
	return append([]Capability(nil), g.order...)
}

// Parse parses text sent in a private chat.
func (g *Grammar) Parse(text, bot string) (Command, error) {
	return g.ParseIn(text, bot, false)
}

// ParseIn parses text for the bot named bot; group tells whether the text
// was sent in a group chat.
func (g *Grammar) ParseIn(text, bot string, group bool) (Command, error) {
	body, ok := strings.CutPrefix(text, g.opts.Prefix)
	if !ok {
		return Command{}, ErrNotCommand
	}

	head, rest := body, ""
	if i := strings.IndexFunc(body, unicode.IsSpace); i >= 0 {
		head, rest = body[:i], body[i:]
	}

	name, suffix, addressed := strings.Cut(head, "@")
	if name == "" {
		return Command{}, ErrNotCommand
	}

	c, ok := g.caps[g.key(name)]
	if !ok {
		return Command{}, fmt.Errorf("%w %q", ErrUnknownCommand, name)
	}

	if addressed {
		if !strings.EqualFold(suffix, strings.TrimPrefix(bot, "@")) {
			return Command{}, fmt.Errorf("%w: %q", ErrWrongRecipient, suffix)
		}
	} else if g.mentionRequired(group) {
		return Command{}, ErrMentionRequired
	}

	args, err := c.ParseArgs(strings.TrimLeftFunc(rest, unicode.IsSpace))
	if err != nil {
		return Command{}, err
	}
	return Command{Name: c.Name(), Args: args}, nil
}

func (g *Grammar) mentionRequired(group bool) bool {
	switch g.opts.Mention {
	case MentionRequired:
		return true
	case MentionInGroups:
		return group
	default:
		return false
	}
}

// Help lists the commands with their descriptions, one per line.
func (g *Grammar) Help() string {
	lines := make([]string, 0, len(g.order))
	for _, c := range g.order {
		line := g.opts.Prefix + c.Name()
		desc := ""
		if d, ok := c.(Definition); ok {
			line = d.usage(g.opts.Prefix)
			desc = d.Description
		}
		if desc != "" {
			line += " - " + desc
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// Names returns the sorted command names.
func (g *Grammar) Names() []string {
	names := make([]string, 0, len(g.order))
	for _, c := range g.order {
		names = append(names, c.Name())
	}
	sort.Strings(names)
	return names
}
