package update

import (
	"fmt"

	"github.com/mymmrac/telego"
)

// Kind is the discriminant of an update: which payload field is set.
type Kind int

const (
	Unknown Kind = iota
	Message
	EditedMessage
	ChannelPost
	EditedChannelPost
	BusinessMessage
	InlineQuery
	ChosenInlineResult
	CallbackQuery
	ShippingQuery
	PreCheckoutQuery
	Poll
	PollAnswer
	MyChatMember
	ChatMember
	ChatJoinRequest

	numKinds
)

var kindNames = [numKinds]string{
	Unknown:            "unknown",
	Message:            "message",
	EditedMessage:      "edited_message",
	ChannelPost:        "channel_post",
	EditedChannelPost:  "edited_channel_post",
	BusinessMessage:    "business_message",
	InlineQuery:        "inline_query",
	ChosenInlineResult: "chosen_inline_result",
	CallbackQuery:      "callback_query",
	ShippingQuery:      "shipping_query",
	PreCheckoutQuery:   "pre_checkout_query",
	Poll:               "poll",
	PollAnswer:         "poll_answer",
	MyChatMember:       "my_chat_member",
	ChatMember:         "chat_member",
	ChatJoinRequest:    "chat_join_request",
}

// Kinds returns every routable kind, Unknown excluded.
func Kinds() []Kind {
	out := make([]Kind, 0, numKinds-1)
	for k := Message; k < numKinds; k++ {
		out = append(out, k)
	}
	return out
}

// Valid reports whether k names a routable kind.
func (k Kind) Valid() bool {
	return k > Unknown && k < numKinds
}

func (k Kind) String() string {
	if k < 0 || k >= numKinds {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind maps a Bot API field name (e.g. "callback_query") to its Kind.
func ParseKind(s string) (Kind, error) {
	for k := Message; k < numKinds; k++ {
		if kindNames[k] == s {
			return k, nil
		}
	}
	return Unknown, fmt.Errorf("unknown update kind %q", s)
}

// KindOf derives the discriminant from whichever payload field is set.
// Telegram sets at most one of them per update.
func KindOf(u telego.Update) Kind {
	switch {
	case u.Message != nil:
		return Message
	case u.EditedMessage != nil:
		return EditedMessage
	case u.ChannelPost != nil:
		return ChannelPost
	case u.EditedChannelPost != nil:
		return EditedChannelPost
	case u.BusinessMessage != nil:
		return BusinessMessage
	case u.InlineQuery != nil:
		return InlineQuery
	case u.ChosenInlineResult != nil:
		return ChosenInlineResult
	case u.CallbackQuery != nil:
		return CallbackQuery
	case u.ShippingQuery != nil:
		return ShippingQuery
	case u.PreCheckoutQuery != nil:
		return PreCheckoutQuery
	case u.Poll != nil:
		return Poll
	case u.PollAnswer != nil:
		return PollAnswer
	case u.MyChatMember != nil:
		return MyChatMember
	case u.ChatMember != nil:
		return ChatMember
	case u.ChatJoinRequest != nil:
		return ChatJoinRequest
	default:
		return Unknown
	}
}
