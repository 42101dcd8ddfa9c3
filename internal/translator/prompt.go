package translator

import (
	"fmt"
	"sort"
	"strings"
)

func translationSystemPrompt(meta Metadata) string {
	target := meta.TargetLanguage
	if target == "" {
		target = "English"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert %s-to-%s translator for webtoons and manga.\n\n", orUnknown(meta.SourceLanguage), target)
	if meta.Title != "" {
		fmt.Fprintf(&b, "Series: %s\n", meta.Title)
	}
	if meta.Genre != "" {
		fmt.Fprintf(&b, "Genre: %s\n", meta.Genre)
	}
	if meta.ToneNotes != "" {
		fmt.Fprintf(&b, "Tone notes: %s\n", meta.ToneNotes)
	}
	b.WriteString(`
Rules:
- Preserve the "=== Page N ===" / "=== End Page N ===" delimiters exactly. Every page in the input must appear in the output.
- Use the glossary translations exactly as given. Never substitute your own rendering for a glossary term.
- Honorifics and relational terms stay in the source language or their established transliteration.
- Keep sound effects stylized, not literal.

After translating, review your own output and respond with a single JSON object:
{"translatedText": "...", "qualityReport": {"issues": [], "suggestions": [], "culturalNotes": [], "glossarySuggestions": [{"sourceTerm": "...", "translatedTerm": "...", "entityType": "...", "gender": "...", "role": "...", "notes": "..."}], "chapterMemory": "...", "chapterSummary": "..."}}

chapterMemory is 2-4 sentences of plot/character state the next chapter's translator needs. chapterSummary is one sentence. Return JSON only.`)
	return b.String()
}

func translationUserPrompt(req Request) string {
	var b strings.Builder
	if len(req.Glossary) > 0 {
		b.WriteString("Glossary:\n")
		keys := make([]string, 0, len(req.Glossary))
		for key := range req.Glossary {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			term := req.Glossary[key]
			fmt.Fprintf(&b, "- %s -> %s", term.SourceTerm, term.TranslatedTerm)
			var meta []string
			if term.EntityType != "" {
				meta = append(meta, string(term.EntityType))
			}
			if term.Gender != "" && term.Gender != "Unknown" {
				meta = append(meta, string(term.Gender))
			}
			if term.Role != "" && term.Role != "Other" {
				meta = append(meta, string(term.Role))
			}
			if term.Notes != "" {
				meta = append(meta, term.Notes)
			}
			if len(meta) > 0 {
				fmt.Fprintf(&b, " (%s)", strings.Join(meta, ", "))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	if req.PriorMemory != "" {
		b.WriteString("Previous chapter memory:\n")
		b.WriteString(req.PriorMemory)
		b.WriteString("\n\n")
	}
	if len(req.Improvements) > 0 {
		b.WriteString("Apply these reviewer-approved improvements:\n")
		for _, improvement := range req.Improvements {
			fmt.Fprintf(&b, "- %s\n", improvement)
		}
		b.WriteString("\n")
	}
	b.WriteString("Source text:\n")
	b.WriteString(req.CombinedText)
	return b.String()
}

func orUnknown(language string) string {
	if language == "" {
		return "source-language"
	}
	return language
}
