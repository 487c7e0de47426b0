package moderation

import "strings"

// DefaultBlockedWords is the fallback word list used when none is configured.
var DefaultBlockedWords = []string{
	"idiot",
	"stupid",
	"hack",
	"scam",
	"noob",
	"loser",
}

// Scanner matches message text against a blocked-word list.
type Scanner struct {
	words []string
}

// NewScanner builds a scanner from a word list. Words are matched lowercase;
// empty entries are dropped.
func NewScanner(words []string) *Scanner {
	if len(words) == 0 {
		words = DefaultBlockedWords
	}
	lowered := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			lowered = append(lowered, w)
		}
	}
	return &Scanner{words: lowered}
}

// Contains reports whether text contains any blocked word. The match is a
// case-insensitive substring check: no tokenization and no word boundaries,
// so a blocked word inside an unrelated longer word is still a hit.
func (s *Scanner) Contains(text string) bool {
	lowered := strings.ToLower(text)
	for _, w := range s.words {
		if strings.Contains(lowered, w) {
			return true
		}
	}
	return false
}
