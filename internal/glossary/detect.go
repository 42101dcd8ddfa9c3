package glossary

import (
	"strings"
	"unicode"
)

// DetectCandidates scans source text for tokens likely to be proper nouns or
// untranslatable cultural terms that are not already covered by the existing
// glossary. It is deliberately recall-oriented: false positives are filtered
// later during human review.
func DetectCandidates(sourceText string, existing map[string]Term) []string {
	known := make(map[string]struct{}, len(existing))
	for key := range existing {
		known[strings.ToLower(key)] = struct{}{}
	}

	seen := make(map[string]struct{})
	var candidates []string
	for _, token := range tokenize(sourceText) {
		if !likelyProperNoun(token) {
			continue
		}
		key := strings.ToLower(token)
		if _, ok := stopwords[key]; ok {
			continue
		}
		if _, ok := known[key]; ok {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		candidates = append(candidates, token)
	}
	return candidates
}

// stopwords are capitalized English words common at sentence starts, plus
// the words used by the page delimiter markers. Lowercase keys.
var stopwords = map[string]struct{}{
	"page": {}, "end": {},
	"the": {}, "a": {}, "an": {}, "and": {}, "but": {}, "or": {},
	"i": {}, "he": {}, "she": {}, "it": {}, "we": {}, "you": {}, "they": {},
	"this": {}, "that": {}, "what": {}, "why": {}, "how": {}, "when": {}, "where": {},
	"no": {}, "yes": {}, "not": {}, "if": {}, "so": {},
}

func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// likelyProperNoun accepts Latin tokens with a leading capital and any token
// containing Hangul, Kana, or Han runes.
func likelyProperNoun(token string) bool {
	runes := []rune(token)
	if len(runes) == 0 {
		return false
	}
	for _, r := range runes {
		if unicode.In(r, unicode.Hangul, unicode.Hiragana, unicode.Katakana, unicode.Han) {
			return true
		}
	}
	if len(runes) < 2 {
		return false
	}
	return unicode.IsUpper(runes[0]) && unicode.In(runes[0], unicode.Latin)
}
