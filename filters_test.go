package main

import (
	"os"
	"path/filepath"
	"testing"
)

func loadFiltersFromString(t *testing.T, content string) *Filters {
	t.Helper()
	path := filepath.Join(t.TempDir(), "filters.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := LoadFilters(path)
	if err != nil {
		t.Fatalf("LoadFilters() error = %v", err)
	}
	return f
}

func TestLoadFilters(t *testing.T) {
	content := `EXCLUDE_PAGES:
  - "Main Page"
  - "Portal:Contents"
EXCLUDE_CLASSES:
  - metadata
EXCLUDE_IDS:
  - coordinates
TEXT_REPLACE:
  - re: '\[edit\]'
    sub: ""
  - re: 'colour'
    sub: "color"
`
	path := filepath.Join(t.TempDir(), "filters.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := LoadFilters(path)
	if err != nil {
		t.Fatalf("LoadFilters() error = %v", err)
	}

	if !f.ExcludedPage("Main Page") {
		t.Error("Main Page should be excluded")
	}
	if f.ExcludedPage("Some Article") {
		t.Error("Some Article should not be excluded")
	}

	got := f.ReplaceText("The colour box [edit] is red")
	want := "The color box  is red"
	if got != want {
		t.Errorf("ReplaceText() = %q, want %q", got, want)
	}
}

func TestLoadFiltersBadPattern(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filters.yaml")
	if err := os.WriteFile(path, []byte("TEXT_REPLACE:\n  - re: '['\n    sub: \"\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFilters(path); err == nil {
		t.Error("LoadFilters() should fail on an invalid pattern")
	}
}

func TestSuppressElement(t *testing.T) {
	f := NewFilters()
	f.classes["metadata"] = true
	f.ids["sitenotice"] = true

	tests := []struct {
		name     string
		class    string
		id       string
		suppress bool
	}{
		{"builtin navbox", "navbox", "", true},
		{"builtin among others", "wikitable navbox sortable", "", true},
		{"configured class", "metadata", "", true},
		{"configured id", "", "sitenotice", true},
		{"plain element", "wikitable", "infobox", false},
		{"no attributes", "", "", false},
		{"substring is not a match", "navboxes", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.SuppressElement(tt.class, tt.id); got != tt.suppress {
				t.Errorf("SuppressElement(%q, %q) = %v, want %v", tt.class, tt.id, got, tt.suppress)
			}
		})
	}
}

func TestReplaceTextOrder(t *testing.T) {
	content := `TEXT_REPLACE:
  - re: 'a'
    sub: "b"
  - re: 'bb'
    sub: "c"
`
	path := filepath.Join(t.TempDir(), "filters.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := LoadFilters(path)
	if err != nil {
		t.Fatal(err)
	}
	// first rule turns "ab" into "bb", which the second rule then rewrites
	if got := f.ReplaceText("ab"); got != "c" {
		t.Errorf("ReplaceText() = %q, want %q", got, "c")
	}
}
