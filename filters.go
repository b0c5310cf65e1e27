package main

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Elements carrying any of these classes never make it into dictionary
// output, no matter what the filter file says.
var builtinExcludeClasses = map[string]bool{
	"navbox":                true,
	"collapsible":           true,
	"autocollapse":          true,
	"plainlinksneverexpand": true,
	"navbar":                true,
}

// Filters holds the user-configured content exclusion and text substitution
// rules. Loaded once at startup, read-only afterwards, shared by all workers.
type Filters struct {
	pages        map[string]bool
	classes      map[string]bool
	ids          map[string]bool
	replacements []textReplacement
}

type textReplacement struct {
	re  *regexp.Regexp
	sub string
}

type filterFile struct {
	ExcludePages   []string `yaml:"EXCLUDE_PAGES"`
	ExcludeClasses []string `yaml:"EXCLUDE_CLASSES"`
	ExcludeIDs     []string `yaml:"EXCLUDE_IDS"`
	TextReplace    []struct {
		Re  string `yaml:"re"`
		Sub string `yaml:"sub"`
	} `yaml:"TEXT_REPLACE"`
}

// NewFilters returns an empty filter set; only the built-in class exclusions
// apply.
func NewFilters() *Filters {
	return &Filters{
		pages:   make(map[string]bool),
		classes: make(map[string]bool),
		ids:     make(map[string]bool),
	}
}

// LoadFilters reads the YAML filter description. Missing sections default to
// empty; a bad replacement pattern is fatal.
func LoadFilters(path string) (*Filters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading filters %s: %w", path, err)
	}
	var ff filterFile
	if err := yaml.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("parsing filters %s: %w", path, err)
	}

	f := NewFilters()
	for _, p := range ff.ExcludePages {
		f.pages[p] = true
	}
	for _, c := range ff.ExcludeClasses {
		f.classes[c] = true
	}
	for _, id := range ff.ExcludeIDs {
		f.ids[id] = true
	}
	for _, tr := range ff.TextReplace {
		re, err := regexp.Compile(tr.Re)
		if err != nil {
			return nil, fmt.Errorf("compiling replacement %q: %w", tr.Re, err)
		}
		f.replacements = append(f.replacements, textReplacement{re: re, sub: tr.Sub})
	}
	return f, nil
}

// ExcludedPage reports whether the title is excluded from conversion
// entirely; excluded pages are never fetched.
func (f *Filters) ExcludedPage(title string) bool {
	return f.pages[title]
}

// SuppressElement decides whether an element with the given class attribute
// and id is dropped from output together with all its descendants.
func (f *Filters) SuppressElement(classAttr, id string) bool {
	for _, cl := range strings.Fields(classAttr) {
		if builtinExcludeClasses[cl] || f.classes[cl] {
			return true
		}
	}
	return id != "" && f.ids[id]
}

// ReplaceText applies every configured substitution to the serialized article
// text, in configured order. Substitution is global.
func (f *Filters) ReplaceText(text string) string {
	for _, tr := range f.replacements {
		text = tr.re.ReplaceAllString(text, tr.sub)
	}
	return text
}
