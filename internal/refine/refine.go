// Package refine narrows message streams: from messages to text messages,
// and from text messages to parsed commands.
//
// Refiners are stateless. Each runs one goroutine, keeps the order of its
// input and closes its output once the input is closed.
package refine

import (
	"github.com/Enriquefft/tgdispatch/internal/command"
	"github.com/Enriquefft/tgdispatch/internal/update"
)

// TextMessage is a message event together with its text.
type TextMessage struct {
	Event update.Event
	Text  string
}

// CommandMessage is a message event together with the command it carries.
type CommandMessage struct {
	Event   update.Event
	Command command.Command
}

// Texts keeps the events whose message has non-empty text. Events without
// a message payload are dropped as well.
func Texts(in <-chan update.Event) <-chan TextMessage {
	out := make(chan TextMessage)

	go func() {
		defer close(out)
		for ev := range in {
			if text, ok := TextOf(ev); ok {
				out <- TextMessage{Event: ev, Text: text}
			}
		}
	}()

	return out
}

// TextOf returns the text of ev's message.
func TextOf(ev update.Event) (string, bool) {
	msg := ev.Message()
	if msg == nil || msg.Text == "" {
		return "", false
	}
	return msg.Text, true
}

// Commands keeps the texts that parse as a command for bot. Texts that do not
// parse are dropped; they are not errors.
func Commands(in <-chan TextMessage, g *command.Grammar, bot string) <-chan CommandMessage {
	out := make(chan CommandMessage)

	go func() {
		defer close(out)
		for tm := range in {
			group := tm.Event.Session != nil && tm.Event.Session.Group
			cmd, err := g.ParseIn(tm.Text, bot, group)
			if err != nil {
				continue
			}
			out <- CommandMessage{Event: tm.Event, Command: cmd}
		}
	}()

	return out
}

// CommandsFromEvents is Commands(Texts(in), g, bot).
func CommandsFromEvents(in <-chan update.Event, g *command.Grammar, bot string) <-chan CommandMessage {
	return Commands(Texts(in), g, bot)
}

// Tee copies every item of in to n outputs, in order. Each item is handed to
// the outputs one after another, so a slow consumer holds back the others.
// The outputs are closed once in is closed.
func Tee[T any](in <-chan T, n int) []<-chan T {
	outs := make([]chan T, n)
	ro := make([]<-chan T, n)
	for i := range outs {
		outs[i] = make(chan T)
		ro[i] = outs[i]
	}

	go func() {
		defer func() {
			for _, out := range outs {
				close(out)
			}
		}()
		for item := range in {
			for _, out := range outs {
				out <- item
			}
		}
	}()

	return ro
}
