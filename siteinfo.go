package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// SiteInfo is the wiki site description fetched from the MediaWiki API and
// saved as JSON. Loaded once at startup and read-only afterwards.
type SiteInfo struct {
	General    GeneralSiteInfo      `json:"general"`
	Namespaces map[string]Namespace `json:"namespaces"`
	MagicWords []MagicWord          `json:"magicwords"`
}

type GeneralSiteInfo struct {
	Sitename string `json:"sitename"`
	Lang     string `json:"lang"`
	Server   string `json:"server"`
	Base     string `json:"base"`
	Rights   string `json:"rights"`
}

type Namespace struct {
	ID   int    `json:"id"`
	Name string `json:"*"`
}

type MagicWord struct {
	Name    string   `json:"name"`
	Aliases []string `json:"aliases"`
}

// LoadSiteInfo reads the site description JSON. Missing or malformed files
// are fatal to the run, before any article is processed.
func LoadSiteInfo(path string) (*SiteInfo, error) {
	if path == "" {
		return nil, fmt.Errorf("site info not specified (fetch with aard-siteinfo, specify with --siteinfo)")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading site info %s: %w", path, err)
	}
	var si SiteInfo
	if err := json.Unmarshal(data, &si); err != nil {
		return nil, fmt.Errorf("parsing site info %s: %w", path, err)
	}
	return &si, nil
}

// RedirectAliases returns the redirect directive aliases for this wiki's
// locale, each with its lower and upper case variants. Order is preserved so
// redirect matching stays first-match-wins.
func (si *SiteInfo) RedirectAliases() []string {
	var aliases []string
	seen := make(map[string]bool)
	add := func(a string) {
		if a != "" && !seen[a] {
			seen[a] = true
			aliases = append(aliases, a)
		}
	}
	for _, mw := range si.MagicWords {
		if mw.Name != "redirect" {
			continue
		}
		for _, alias := range mw.Aliases {
			add(alias)
			add(strings.ToLower(alias))
			add(strings.ToUpper(alias))
		}
	}
	return aliases
}
