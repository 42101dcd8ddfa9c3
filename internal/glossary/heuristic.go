package glossary

import "unicode"

// HeuristicTerms is the deterministic fallback classifier used when the
// suggestion model returns nothing parseable. Classification is by Unicode
// script plus the honorific table; translations for unknown terms default to
// the source token so a human can fill them in during review.
func HeuristicTerms(candidates []string) []Term {
	terms := make([]Term, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		if term, ok := LookupHonorific(candidate); ok {
			terms = append(terms, term)
			continue
		}
		terms = append(terms, Term{
			SourceTerm:     candidate,
			TranslatedTerm: candidate,
			EntityType:     classifyByScript(candidate),
			Gender:         GenderUnknown,
			Role:           RoleOther,
			Notes:          "heuristic suggestion, translation needs manual confirmation",
			AutoSuggested:  true,
			Status:         StatusPending,
		})
	}
	return dedupe(terms)
}

// classifyByScript guesses an entity type from the token's script. Latin
// tokens reached candidate detection through the leading-capital rule, so
// they are most likely names; CJK tokens default to Term.
func classifyByScript(token string) EntityType {
	for _, r := range token {
		if unicode.In(r, unicode.Hangul, unicode.Hiragana, unicode.Katakana, unicode.Han) {
			return EntityTerm
		}
	}
	return EntityPerson
}
