package main

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ParseRedirect checks whether text is a redirect directive and extracts the
// target title. Aliases are tried in order until the first match; a match is
// either exact or against the upper-cased text. A matching alias with missing
// link brackets is a BadRedirectError; no match at all is not an error.
func ParseRedirect(text string, aliases []string) (string, bool, error) {
	for _, alias := range aliases {
		rest, ok := matchAlias(text, alias)
		if !ok {
			continue
		}
		rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
		begin := strings.Index(rest, "[[")
		if begin < 0 {
			return "", false, &BadRedirectError{Text: rest}
		}
		end := strings.Index(rest, "]]")
		if end < 0 {
			return "", false, &BadRedirectError{Text: rest}
		}
		if end < begin+2 {
			return "", false, nil
		}
		target := rest[begin+2 : end]
		if target == "" {
			return "", false, nil
		}
		return target, true, nil
	}
	return "", false, nil
}

// matchAlias reports whether text starts with alias, either exactly or after
// upper-casing, and returns the remainder. Comparison is rune-wise so that
// non-ASCII aliases slice the original text correctly.
func matchAlias(text, alias string) (string, bool) {
	rest := text
	for _, ar := range alias {
		tr, size := utf8.DecodeRuneInString(rest)
		if size == 0 {
			return "", false
		}
		if tr != ar && unicode.ToUpper(tr) != ar {
			return "", false
		}
		rest = rest[size:]
	}
	return rest, true
}
