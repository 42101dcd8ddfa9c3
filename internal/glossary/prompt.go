package glossary

import (
	"fmt"
	"strings"
)

const suggestionSystemPrompt = `You are a terminology specialist for webtoon and manga translation. You propose glossary entries that keep character names, places, techniques, and cultural terms consistent across an entire series.

Rules:
- Honorifics and relational terms (Korean 형/오빠/누나/언니, Chinese 哥哥/姐姐, Japanese 先輩/お嬢様, and similar) must NEVER be translated to an English equivalent such as "older brother". Keep the original term or its established transliteration as the translation.
- Infer gender and narrative role only when the source context supports it; otherwise use "Unknown" and "Other".
- Keep proposed translations consistent with the existing glossary.

Respond with a single JSON object:
{"suggestedTerms": [{"sourceTerm": "...", "translatedTerm": "...", "entityType": "Person|Place|Technique|Organization|Item|Term|Honorific - Korean|Honorific - Chinese|Honorific - Japanese|Formal Title|Family Relation", "gender": "Male|Female|Unknown", "role": "Protagonist|Antagonist|Supporting|Minor|Mentor|Family|Other", "notes": "..."}]}

Return JSON only, no commentary.`

func suggestionUserPrompt(candidates []string, existing map[string]Term, sourceContext string) string {
	var b strings.Builder
	b.WriteString("Candidate terms:\n")
	for _, candidate := range candidates {
		fmt.Fprintf(&b, "- %s\n", candidate)
	}

	if len(existing) > 0 {
		b.WriteString("\nExisting glossary (do not re-propose, keep new suggestions consistent with these):\n")
		for _, term := range existing {
			fmt.Fprintf(&b, "- %s -> %s (%s)\n", term.SourceTerm, term.TranslatedTerm, term.EntityType)
		}
	}

	if sourceContext != "" {
		b.WriteString("\nSource text for context:\n")
		b.WriteString(sourceContext)
		b.WriteString("\n")
	}
	return b.String()
}
