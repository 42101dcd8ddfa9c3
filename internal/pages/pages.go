// Package pages models OCR page results and the combined chapter document.
//
// The delimiter convention is a wire contract: downstream splitting depends on
// the literal "=== Page N ===" / "=== End Page N ===" marker pair.
package pages

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Page is one source image's extraction result. Immutable once produced.
type Page struct {
	PageNumber    int
	ExtractedText string
	Overview      string
}

var (
	pageMarkerPattern = regexp.MustCompile(`=== Page (\d+) ===`)
	endMarkerPattern  = regexp.MustCompile(`=== End Page (\d+) ===`)
	excessNewlines    = regexp.MustCompile(`\n{3,}`)
)

var textNormalizer = transform.Chain(norm.NFC, width.Fold)

// NormalizeText applies unicode normalization (NFC plus width folding) and
// collapses runs of three or more newlines down to two. Idempotent.
func NormalizeText(text string) string {
	if normalized, _, err := transform.String(textNormalizer, text); err == nil {
		text = normalized
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = excessNewlines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// Combine concatenates pages into a single delimited document.
//
// Pages are ordered by page number (input order breaks ties), exact duplicate
// pages are dropped keeping the first occurrence, and the survivors are
// renumbered 1..K regardless of gaps or duplicates in the input numbering.
func Combine(input []Page) string {
	ordered := make([]Page, len(input))
	copy(ordered, input)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].PageNumber < ordered[j].PageNumber
	})

	seen := make(map[string]struct{}, len(ordered))
	var sections []string
	number := 0
	for _, page := range ordered {
		content := NormalizeText(page.ExtractedText)
		key := contentKey(content)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		number++
		sections = append(sections, fmt.Sprintf("=== Page %d ===\n%s\n=== End Page %d ===", number, content, number))
	}
	return strings.Join(sections, "\n\n")
}

// Split reverses Combine: it parses a delimited document back into pages.
// Content between a page marker and its end marker is returned verbatim
// (minus the surrounding newlines the formatter inserted).
func Split(document string) []Page {
	markers := pageMarkerPattern.FindAllStringSubmatchIndex(document, -1)
	if len(markers) == 0 {
		return nil
	}
	out := make([]Page, 0, len(markers))
	for _, loc := range markers {
		number, err := strconv.Atoi(document[loc[2]:loc[3]])
		if err != nil {
			continue
		}
		rest := document[loc[1]:]
		end := endMarkerPattern.FindStringIndex(rest)
		var content string
		if end != nil {
			content = rest[:end[0]]
		} else if next := pageMarkerPattern.FindStringIndex(rest); next != nil {
			content = rest[:next[0]]
		} else {
			content = rest
		}
		out = append(out, Page{
			PageNumber:    number,
			ExtractedText: strings.Trim(content, "\n"),
		})
	}
	return out
}

// contentKey produces the identity used for duplicate suppression: content
// compared ignoring surrounding and internal whitespace differences.
func contentKey(content string) string {
	return strings.Join(strings.Fields(content), " ")
}
