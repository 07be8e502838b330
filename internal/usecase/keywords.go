package usecase

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	minKeywordRunes = 3
	minQueryRunes   = 3
)

var keywordNoise = regexp.MustCompile(`[,"':;!?()\[\]{}<>/\\|@#$%^&*=+~]`)

// ExtractKeywords builds a follow-up search query from a headline: punctuation
// is stripped, tokens of two runes or fewer are dropped and at most maxTokens
// remain. A result shorter than three runes yields defaultTopic.
func ExtractKeywords(title string, maxTokens int, defaultTopic string) string {
	clean := keywordNoise.ReplaceAllString(title, " ")

	var tokens []string
	for _, tok := range strings.Fields(clean) {
		if utf8.RuneCountInString(tok) < minKeywordRunes {
			continue
		}
		tokens = append(tokens, tok)
		if maxTokens > 0 && len(tokens) == maxTokens {
			break
		}
	}

	query := strings.Join(tokens, " ")
	if utf8.RuneCountInString(query) < minQueryRunes {
		return defaultTopic
	}
	return query
}
