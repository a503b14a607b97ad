// Package redact detects personally identifiable spans in free text and
// masks them with type-tagged placeholders before the text leaves the
// system.
package redact

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Entity is one detected PII span. End is exclusive.
type Entity struct {
	Type  string
	Start int
	End   int
}

// Entity type tags used in placeholders.
const (
	TypeEmail  = "EMAIL_ADDRESS"
	TypePhone  = "PHONE_NUMBER"
	TypeURL    = "URL"
	TypePerson = "PERSON"
)

// Analyzer is a locale-scoped PII analyzer built on pattern recognizers
// plus a capitalization heuristic for person names.
type Analyzer struct {
	locale   string
	emailRe  *regexp.Regexp
	urlRe    *regexp.Regexp
	phoneRe  *regexp.Regexp
	personRe *regexp.Regexp
	notNames map[string]struct{}
}

// NewAnalyzer creates an analyzer for the given locale. Only "en" is
// supported; an empty locale defaults to it.
func NewAnalyzer(locale string) (*Analyzer, error) {
	if locale == "" {
		locale = "en"
	}
	if locale != "en" {
		return nil, fmt.Errorf("unsupported redaction locale %q", locale)
	}
	return &Analyzer{
		locale:   locale,
		emailRe:  regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`),
		urlRe:    regexp.MustCompile(`https?://[^\s<>"]+`),
		phoneRe:  regexp.MustCompile(`\+?\d[\d\-\s().]{7,}\d`),
		personRe: regexp.MustCompile(`\b[A-Z][a-z]{1,}\s+[A-Z][a-z]{1,}\b`),
		notNames: nonNameWords(),
	}, nil
}

// Locale returns the analyzer's locale.
func (a *Analyzer) Locale() string { return a.locale }

// Analyze returns the detected entity spans, longest-leftmost on
// overlap, in ascending start order.
func (a *Analyzer) Analyze(text string) []Entity {
	var entities []Entity
	collect := func(re *regexp.Regexp, typ string, accept func(string) bool) {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			match := text[loc[0]:loc[1]]
			if accept != nil && !accept(match) {
				continue
			}
			entities = append(entities, Entity{Type: typ, Start: loc[0], End: loc[1]})
		}
	}

	collect(a.emailRe, TypeEmail, nil)
	collect(a.urlRe, TypeURL, nil)
	collect(a.phoneRe, TypePhone, func(m string) bool {
		digits := 0
		for _, r := range m {
			if r >= '0' && r <= '9' {
				digits++
			}
		}
		return digits >= 9
	})
	collect(a.personRe, TypePerson, func(m string) bool {
		for _, word := range strings.Fields(m) {
			if _, common := a.notNames[strings.ToLower(word)]; common {
				return false
			}
		}
		return true
	})

	return resolveOverlaps(entities)
}

// Redact replaces every detected span with a <ENTITY_TYPE> placeholder.
func (a *Analyzer) Redact(text string) string {
	entities := a.Analyze(text)
	if len(entities) == 0 {
		return text
	}
	var b strings.Builder
	prev := 0
	for _, e := range entities {
		b.WriteString(text[prev:e.Start])
		b.WriteString("<" + e.Type + ">")
		prev = e.End
	}
	b.WriteString(text[prev:])
	return b.String()
}

// resolveOverlaps keeps the longest span when two overlap, preferring
// the earlier one on equal length.
func resolveOverlaps(entities []Entity) []Entity {
	sort.SliceStable(entities, func(i, j int) bool {
		if entities[i].Start != entities[j].Start {
			return entities[i].Start < entities[j].Start
		}
		return entities[i].End-entities[i].Start > entities[j].End-entities[j].Start
	})
	var out []Entity
	lastEnd := -1
	for _, e := range entities {
		if e.Start < lastEnd {
			continue
		}
		out = append(out, e)
		lastEnd = e.End
	}
	return out
}

// nonNameWords lists capitalized words that commonly start sentences or
// name technologies, which the person heuristic must not treat as names.
func nonNameWords() map[string]struct{} {
	words := []string{
		"the", "this", "that", "these", "those", "a", "an",
		"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
		"january", "february", "march", "april", "may", "june", "july",
		"august", "september", "october", "november", "december",
		"senior", "junior", "lead", "staff", "principal",
		"developer", "engineer", "manager", "analyst", "architect", "designer",
		"software", "data", "cloud", "machine", "learning", "deep",
		"python", "java", "golang", "docker", "kubernetes", "linux", "windows",
		"amazon", "google", "microsoft", "apache", "oracle",
		"university", "college", "bachelor", "master", "degree",
		"experience", "skills", "education", "summary", "projects", "work",
		"looking", "seeking", "responsible", "proficient",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
