package mode

import "strings"

// Compress shortens text to at most roughly maxLen runes before it is
// woven into a rendered prompt. Text within the limit passes through
// unchanged; otherwise it prefers a sentence-boundary summary, falling
// back to a word-boundary truncation.
func Compress(text string, maxLen int) string {
	if maxLen <= 0 || len([]rune(text)) <= maxLen {
		return text
	}

	if first, last, ok := splitSentences(text); ok {
		return truncateWords(first, maxLen/2) + " [...] " + truncateWords(last, maxLen/2)
	}

	return truncateWords(text, maxLen) + "..."
}

// splitSentences finds the first and last sentence boundary (. ? !
// followed by whitespace) in text and returns the text up to the first
// boundary and from after the last one.
func splitSentences(text string) (first, last string, ok bool) {
	firstEnd := -1
	lastStart := -1

	runes := []rune(text)
	for i := 0; i < len(runes)-1; i++ {
		if isSentenceEnd(runes[i]) && isSpace(runes[i+1]) {
			if firstEnd == -1 {
				firstEnd = i + 1
			}
			lastStart = i + 1
		}
	}

	if firstEnd == -1 {
		return "", "", false
	}

	first = strings.TrimSpace(string(runes[:firstEnd]))
	last = strings.TrimSpace(string(runes[lastStart:]))
	if last == "" {
		last = first
	}
	return first, last, true
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '?' || r == '!'
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n'
}

// truncateWords cuts s to at most maxLen runes, backing up to the last
// word boundary so it does not split a word in half. If it finds no
// whitespace to back up to, it cuts at exactly maxLen runes, mid-word.
func truncateWords(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}

	cut := maxLen
	for cut > 0 && !isSpace(runes[cut]) {
		cut--
	}
	if cut == 0 {
		cut = maxLen
	}
	return strings.TrimSpace(string(runes[:cut]))
}
