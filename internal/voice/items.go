package voice

import (
	"regexp"
	"strings"
)

var (
	itemSeparators = regexp.MustCompile(`(?i)\s*(?:,|;|\n|\band also\b|\balso\b|\bplus\b|\band then\b|\band\b)\s*`)
	leadingFiller  = regexp.MustCompile(`(?i)^(?:(?:i(?:'d| would) like|can i (?:get|have)|could i (?:get|have)|i'll have|give me|we(?:'ll| will) have|please|um+|uh+)\s+)+`)
	trailingFiller = regexp.MustCompile(`(?i)[\s.!?]*(?:\bplease\b)?[\s.!?]*$`)
)

// ParseItems splits a dictated order into item strings.
// "I'd like a burger, fries and a coke please" -> [a burger, fries, a coke].
func ParseItems(transcript string) []string {
	items := []string{}
	for _, part := range itemSeparators.Split(transcript, -1) {
		part = strings.TrimSpace(part)
		part = leadingFiller.ReplaceAllString(part, "")
		part = trailingFiller.ReplaceAllString(part, "")
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		items = append(items, part)
	}
	return items
}
