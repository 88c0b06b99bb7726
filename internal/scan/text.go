package scan

import (
	"html"
	"strings"
	"unicode"

	"golang.org/x/text/language"
)

// LanguageUnknown is the BCP-47 tag for an undetermined language.
const LanguageUnknown = "und"

var stopWords = map[string][]string{
	"en": {"the", "and", "is", "are", "was", "for", "with", "this", "that", "you", "our", "we", "have", "not", "of", "to"},
	"pt": {"de", "que", "não", "uma", "para", "com", "os", "as", "nosso", "nossa", "é", "são", "muito", "mais", "da", "do"},
	"es": {"el", "los", "las", "que", "una", "para", "con", "es", "son", "muy", "más", "del", "nuestro", "pero", "y", "por"},
}

// detectOrder fixes the evaluation order so ties resolve deterministically.
var detectOrder = []string{"en", "pt", "es"}

// DetectLanguage returns the base language of a post. A language reported by
// the network wins when it parses as a BCP-47 tag; otherwise the text is
// scored against small stop-word lists.
func DetectLanguage(reported, text string) string {
	if reported != "" {
		if tag, err := language.Parse(reported); err == nil {
			if base, conf := tag.Base(); conf != language.No && base.String() != LanguageUnknown {
				return base.String()
			}
		}
	}

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if len(words) == 0 {
		return LanguageUnknown
	}

	counts := make(map[string]int, len(stopWords))
	for _, w := range words {
		for lang, list := range stopWords {
			for _, sw := range list {
				if w == sw {
					counts[lang]++
					break
				}
			}
		}
	}

	best, bestCount, runnerUp := LanguageUnknown, 0, 0
	for _, lang := range detectOrder {
		switch c := counts[lang]; {
		case c > bestCount:
			runnerUp = bestCount
			best, bestCount = lang, c
		case c > runnerUp:
			runnerUp = c
		}
	}
	if bestCount < 2 || bestCount == runnerUp {
		return LanguageUnknown
	}
	return language.Make(best).String()
}

// sanitize strips markup from network text and normalises whitespace.
func (s *Scanner) sanitize(text string) string {
	clean := html.UnescapeString(s.policy.Sanitize(text))
	return strings.Join(strings.Fields(clean), " ")
}
