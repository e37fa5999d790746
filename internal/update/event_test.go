package update

import (
	"context"
	"testing"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopSender struct{}

func (nopSender) SendText(context.Context, int64, string) error { return nil }

func TestKindOf(t *testing.T) {
	msg := &telego.Message{Chat: telego.Chat{ID: 7, Type: "private"}, Text: "hi"}

	cases := []struct {
		name string
		upd  telego.Update
		want Kind
	}{
		{"message", telego.Update{Message: msg}, Message},
		{"edited", telego.Update{EditedMessage: msg}, EditedMessage},
		{"channel post", telego.Update{ChannelPost: msg}, ChannelPost},
		{"callback", telego.Update{CallbackQuery: &telego.CallbackQuery{ID: "q"}}, CallbackQuery},
		{"inline", telego.Update{InlineQuery: &telego.InlineQuery{ID: "i"}}, InlineQuery},
		{"poll", telego.Update{Poll: &telego.Poll{ID: "p"}}, Poll},
		{"empty", telego.Update{UpdateID: 3}, Unknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, KindOf(tc.upd))
		})
	}
}

func TestParseKindRoundTrip(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	_, err := ParseKind("unknown")
	assert.Error(t, err)
	_, err = ParseKind("nope")
	assert.Error(t, err)
}

func TestKindValid(t *testing.T) {
	assert.False(t, Unknown.Valid())
	assert.True(t, Message.Valid())
	assert.False(t, Kind(999).Valid())
	assert.Equal(t, "kind(999)", Kind(999).String())
}

func TestNewEventSession(t *testing.T) {
	upd := telego.Update{
		UpdateID: 42,
		Message:  &telego.Message{Chat: telego.Chat{ID: -100, Type: "supergroup"}, Text: "/roll"},
	}

	ev := NewEvent(upd, nopSender{})

	assert.Equal(t, Message, ev.Kind())
	assert.Equal(t, 42, ev.ID())
	require.NotNil(t, ev.Session)
	assert.Equal(t, int64(-100), ev.Session.ChatID)
	assert.True(t, ev.Session.Group)
	assert.NotEmpty(t, ev.Session.ID.String())
	require.NotNil(t, ev.Message())
	assert.Equal(t, "/roll", ev.Message().Text)
}

func TestNewEventCallbackRepliesToSender(t *testing.T) {
	upd := telego.Update{
		UpdateID: 1,
		CallbackQuery: &telego.CallbackQuery{
			ID:   "cb",
			From: telego.User{ID: 99},
		},
	}

	ev := NewEvent(upd, nopSender{})

	assert.Equal(t, CallbackQuery, ev.Kind())
	assert.Equal(t, int64(99), ev.Session.ChatID)
	assert.False(t, ev.Session.Group)
	assert.Nil(t, ev.Message())
}
