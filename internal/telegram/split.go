package telegram

import (
	"strings"
	"unicode/utf8"
)

// splitMessage splits text into chunks of at most maxLen bytes, preferring
// paragraph, line, sentence and word boundaries in that order.
func splitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	minSplit := maxLen / 4
	var chunks []string

	for len(text) > maxLen {
		at := splitPoint(text[:maxLen], minSplit)
		if at < 0 {
			at = runeBoundary(text, maxLen)
		}
		chunks = append(chunks, strings.TrimSpace(text[:at]))
		text = strings.TrimSpace(text[at:])
	}

	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

func splitPoint(chunk string, minSplit int) int {
	if i := strings.LastIndex(chunk, "\n\n"); i >= minSplit {
		return i
	}
	if i := strings.LastIndex(chunk, "\n"); i >= minSplit {
		return i
	}

	at := -1
	for _, sep := range []string{". ", "? ", "! "} {
		if i := strings.LastIndex(chunk, sep); i >= minSplit && i+1 > at {
			at = i + 1
		}
	}
	if at >= 0 {
		return at
	}

	if i := strings.LastIndex(chunk, " "); i >= minSplit {
		return i
	}
	return -1
}

// runeBoundary returns the largest offset <= at that does not split a rune.
// A text starting with one rune longer than at is cut after that rune.
func runeBoundary(text string, at int) int {
	for i := at; i > 0; i-- {
		if utf8.RuneStart(text[i]) {
			return i
		}
	}
	_, size := utf8.DecodeRuneInString(text)
	return size
}
