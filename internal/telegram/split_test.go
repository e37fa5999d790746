package telegram

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		maxLen int
		want   []string
	}{
		{"short", "hello", 10, []string{"hello"}},
		{"paragraph", "aaaa aaaa\n\nbbbb", 12, []string{"aaaa aaaa", "bbbb"}},
		{"line", "aaaa aaaa\nbbbb", 12, []string{"aaaa aaaa", "bbbb"}},
		{"sentence", "One two. Three four", 12, []string{"One two.", "Three four"}},
		{"word", "alpha beta gamma", 12, []string{"alpha beta", "gamma"}},
		{"hard", "abcdefghijklmnop", 8, []string{"abcdefgh", "ijklmnop"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitMessage(tt.text, tt.maxLen))
		})
	}
}

func TestSplitMessageRespectsLimit(t *testing.T) {
	text := strings.Repeat("word ", 3000)
	for _, chunk := range splitMessage(text, MaxMessageLen) {
		assert.LessOrEqual(t, len(chunk), MaxMessageLen)
		assert.NotEmpty(t, chunk)
	}
}

func TestSplitMessageKeepsRunesWhole(t *testing.T) {
	text := strings.Repeat("€", 3000)

	chunks := splitMessage(text, MaxMessageLen)
	assert.Equal(t, text, strings.Join(chunks, ""))
	for i, chunk := range chunks {
		assert.Truef(t, utf8.ValidString(chunk), "chunk %d is not valid UTF-8", i)
		assert.LessOrEqual(t, len(chunk), MaxMessageLen)
	}

	assert.Equal(t, []string{"ab", "€c", "d"}, splitMessage("ab€cd", 4))
}
