// Package metadata guesses a paper's title and authors from its text and filename.
package metadata

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Defaults of the heuristic extractor.
const (
	DefaultScanRunes  = 3000
	DefaultMaxAuthors = 3
	FallbackAuthor    = "Research Team"
)

// Metadata is what the extractor recovers for one upload.
type Metadata struct {
	Title      string
	Authors    []string
	SourceFile string
}

// Extractor derives metadata from extracted text and the upload's filename.
type Extractor interface {
	Extract(text, filename string) Metadata
}

var (
	// Leading parts of the author-section heuristics. The captured name list
	// runs lazily to the first terminator, see terminatedAt.
	authorsLabel = regexp.MustCompile(`(?i)authors?[:\s]+`)
	byLine       = regexp.MustCompile(`(?i)by\s+`)
	etAl         = regexp.MustCompile(`(?i)([A-Z][a-z]+ [A-Z][a-z]+(?:\s+and\s+[A-Z][a-z]+ [A-Z][a-z]+)*)\s+et al\.`)

	nameSeparator = regexp.MustCompile(`,|\band\b|&`)
	fullName      = regexp.MustCompile(`^[A-Z][a-z]+ [A-Z][a-z]+$`)

	titleCaser = cases.Title(language.Und)
)

// Heuristic scans the start of the text for author sections.
type Heuristic struct {
	ScanRunes  int
	MaxAuthors int
}

var _ Extractor = Heuristic{}

// NewHeuristic returns the extractor with default limits.
func NewHeuristic() Heuristic {
	return Heuristic{ScanRunes: DefaultScanRunes, MaxAuthors: DefaultMaxAuthors}
}

// Extract never fails. Authors fall back to FallbackAuthor.
func (h Heuristic) Extract(text, filename string) Metadata {
	window := text
	if h.ScanRunes > 0 {
		window = firstRunes(text, h.ScanRunes)
	}

	var authors []string
	for _, find := range []func(string) []string{labelled(authorsLabel), labelled(byLine), etAlNames} {
		matches := find(window)
		if len(matches) == 0 {
			continue
		}
		for _, m := range matches {
			lower := strings.ToLower(m)
			if strings.Contains(lower, "university") || strings.Contains(lower, "email") {
				continue
			}
			for _, candidate := range nameSeparator.Split(m, -1) {
				name := strings.TrimSpace(candidate)
				if fullName.MatchString(name) && !slices.Contains(authors, name) {
					authors = append(authors, name)
				}
			}
		}
		break
	}

	if len(authors) == 0 {
		authors = []string{FallbackAuthor}
	}
	if h.MaxAuthors > 0 && len(authors) > h.MaxAuthors {
		authors = authors[:h.MaxAuthors]
	}

	return Metadata{Title: TitleFromFilename(filename), Authors: authors, SourceFile: filename}
}

// TitleFromFilename drops ".pdf", turns underscores into spaces and title-cases the rest.
func TitleFromFilename(filename string) string {
	name := strings.ReplaceAll(filename, ".pdf", "")
	name = strings.ReplaceAll(name, "_", " ")
	return titleCaser.String(name)
}

// labelled finds every prefix match and captures the shortest run of
// non-newline characters after it that ends at a terminator.
func labelled(prefix *regexp.Regexp) func(string) []string {
	return func(s string) []string {
		var out []string
		pos := 0
		for pos < len(s) {
			loc := prefix.FindStringIndex(s[pos:])
			if loc == nil {
				break
			}
			start := pos + loc[1]
			if end, ok := lazyCapture(s, start); ok {
				out = append(out, s[start:end])
				pos = end
				continue
			}
			_, size := utf8.DecodeRuneInString(s[pos+loc[0]:])
			pos += loc[0] + size
		}
		return out
	}
}

// lazyCapture returns the smallest end > start such that s[start:end] holds no
// newline and a terminator follows it.
func lazyCapture(s string, start int) (int, bool) {
	if start >= len(s) || s[start] == '\n' {
		return 0, false
	}
	for i := start; i < len(s); {
		_, size := utf8.DecodeRuneInString(s[i:])
		end := i + size
		if terminatedAt(s, end) {
			return end, true
		}
		if end >= len(s) || s[end] == '\n' {
			return 0, false
		}
		i = end
	}
	return 0, false
}

// terminatedAt reports whether a blank line, the end of the text, or an
// "abstract" or "introduction" heading starts at i.
func terminatedAt(s string, i int) bool {
	if i == len(s) || (i == len(s)-1 && s[i] == '\n') {
		return true
	}
	if s[i] == '\n' {
		for j := i + 1; j < len(s); j++ {
			if s[j] == '\n' {
				return true
			}
			if !unicode.IsSpace(rune(s[j])) {
				break
			}
		}
	}
	rest := s[i:]
	return hasPrefixFold(rest, "abstract") || hasPrefixFold(rest, "introduction")
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func etAlNames(s string) []string {
	var out []string
	for _, m := range etAl.FindAllStringSubmatch(s, -1) {
		out = append(out, m[1])
	}
	return out
}

func firstRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
