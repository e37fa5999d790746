package update

import (
	"context"

	"github.com/google/uuid"
	"github.com/mymmrac/telego"
)

// Sender is the outbound reply capability handlers reach through a Session.
// Implementations must be safe for concurrent use.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// Session is the context an update arrived in. It is shared by pointer across
// every refinement of the event and is never mutated by the pipeline.
type Session struct {
	ID     uuid.UUID // correlation id for logs
	ChatID int64     // reply target, 0 when the update has no chat
	Group  bool      // chat is a group or supergroup
	Bot    Sender
}

// Reply sends text back to the chat the update came from.
func (s *Session) Reply(ctx context.Context, text string) error {
	return s.Bot.SendText(ctx, s.ChatID, text)
}

// Event is one update tagged with its kind and wrapped with its session.
// Kind is fixed at construction.
type Event struct {
	kind    Kind
	Update  telego.Update
	Session *Session
}

// NewEvent tags u with its kind and attaches a fresh session bound to bot.
func NewEvent(u telego.Update, bot Sender) Event {
	chatID, group := chatOf(u)
	return Event{
		kind:   KindOf(u),
		Update: u,
		Session: &Session{
			ID:     uuid.New(),
			ChatID: chatID,
			Group:  group,
			Bot:    bot,
		},
	}
}

// Kind returns the discriminant.
func (e Event) Kind() Kind { return e.kind }

// ID returns the Telegram update id.
func (e Event) ID() int { return e.Update.UpdateID }

// Message returns the message payload for the message-bearing kinds, nil otherwise.
func (e Event) Message() *telego.Message {
	return messageOf(e.Update)
}

func messageOf(u telego.Update) *telego.Message {
	switch {
	case u.Message != nil:
		return u.Message
	case u.EditedMessage != nil:
		return u.EditedMessage
	case u.ChannelPost != nil:
		return u.ChannelPost
	case u.EditedChannelPost != nil:
		return u.EditedChannelPost
	case u.BusinessMessage != nil:
		return u.BusinessMessage
	}
	return nil
}

func chatOf(u telego.Update) (int64, bool) {
	if msg := messageOf(u); msg != nil {
		return msg.Chat.ID, isGroup(msg.Chat.Type)
	}
	switch {
	case u.CallbackQuery != nil:
		return u.CallbackQuery.From.ID, false
	case u.InlineQuery != nil:
		return u.InlineQuery.From.ID, false
	case u.ChosenInlineResult != nil:
		return u.ChosenInlineResult.From.ID, false
	case u.MyChatMember != nil:
		return u.MyChatMember.Chat.ID, isGroup(u.MyChatMember.Chat.Type)
	case u.ChatMember != nil:
		return u.ChatMember.Chat.ID, isGroup(u.ChatMember.Chat.Type)
	case u.ChatJoinRequest != nil:
		return u.ChatJoinRequest.Chat.ID, isGroup(u.ChatJoinRequest.Chat.Type)
	}
	return 0, false
}

func isGroup(chatType string) bool {
	return chatType == "group" || chatType == "supergroup"
}
