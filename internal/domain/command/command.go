// Package command normalizes misspelled chat commands to their canonical
// phrases using a fixed substitution table.
package command

import "strings"

// Canonical command phrases.
const (
	Remember     = "remember this:"
	WhatAsked    = "what i asked you to remember"
	DidIAsk      = "did i ask you to remember"
	RemindMe     = "remind me"
	JokeSlash    = "/joke"
	SummarySlash = "/summary"
)

// Entry maps one canonical phrase to its accepted spellings. Variants are
// tried in order before the canonical phrase itself, so a longer misspelling
// such as "remind meee" is not split by the shorter canonical prefix.
type Entry struct {
	Canonical string
	Variants  []string
}

// Table is an ordered substitution table. The first entry with a matching
// variant wins.
type Table []Entry

// DefaultTable is the built-in table of known misspellings.
var DefaultTable = Table{
	{Canonical: Remember, Variants: []string{"remeber this:", "rember this:", "remember this", "remembr this:"}},
	{Canonical: WhatAsked, Variants: []string{"what i ask you to remeber", "wht i asked to remember", "what i asked to rember"}},
	{Canonical: DidIAsk, Variants: []string{"did i ask you to remeber", "did i ask to rember"}},
	{Canonical: RemindMe, Variants: []string{"rimind me", "remind meee"}},
}

// Normalize rewrites raw with DefaultTable.
func Normalize(raw string) string {
	return DefaultTable.Normalize(raw)
}

// Normalize returns the canonical form of raw when its trimmed text starts
// with a known spelling, compared case-insensitively. The text after the
// spelling keeps its original case, loses leading colons and spaces, and is
// appended to the canonical phrase. Unmatched input is returned unchanged.
func (t Table) Normalize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	for _, e := range t {
		if rest, ok := e.match(trimmed); ok {
			return join(e.Canonical, strings.TrimLeft(strings.TrimSpace(rest), ": "))
		}
	}
	return raw
}

func (e Entry) match(s string) (string, bool) {
	for _, v := range e.Variants {
		if rest, ok := cutPrefixFold(s, v); ok {
			return rest, true
		}
	}
	return cutPrefixFold(s, e.Canonical)
}

// cutPrefixFold is strings.CutPrefix with ASCII case folding. All phrases in
// the table are ASCII, so byte offsets in s line up with the prefix.
func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}

func join(canonical, rest string) string {
	if rest == "" || strings.HasSuffix(canonical, ":") {
		return canonical + rest
	}
	return canonical + " " + rest
}
