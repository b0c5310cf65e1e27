package main

import (
	"errors"
	"strings"
	"testing"
)

const sampleDump = `<mediawiki xmlns="http://www.mediawiki.org/xml/export-0.10/">
  <siteinfo>
    <sitename>Testipedia</sitename>
  </siteinfo>
  <page>
    <title>Alpha</title>
    <ns>0</ns>
    <revision>
      <text>Text of Alpha</text>
    </revision>
  </page>
  <page>
    <title>Talk:Alpha</title>
    <ns>1</ns>
    <revision>
      <text>Discussion, not an article</text>
    </revision>
  </page>
  <page>
    <title>Beta</title>
    <ns>0</ns>
    <revision>
      <text>Text of Beta with &lt;b&gt;markup&lt;/b&gt;</text>
    </revision>
  </page>
</mediawiki>`

func TestParseDump(t *testing.T) {
	src, err := parseDump(strings.NewReader(sampleDump))
	if err != nil {
		t.Fatalf("parseDump() error = %v", err)
	}

	if src.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (talk page excluded)", src.Len())
	}

	text, err := src.Get("Alpha")
	if err != nil {
		t.Fatal(err)
	}
	if text != "Text of Alpha" {
		t.Errorf("Get(Alpha) = %q", text)
	}

	// entity-escaped markup comes back decoded
	text, err = src.Get("Beta")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "<b>markup</b>") {
		t.Errorf("Get(Beta) = %q", text)
	}

	if _, err := src.Get("Talk:Alpha"); !errors.Is(err, ErrArticleNotFound) {
		t.Errorf("talk page lookup error = %v, want ErrArticleNotFound", err)
	}
}

func TestDumpSourceOrder(t *testing.T) {
	src, err := parseDump(strings.NewReader(sampleDump))
	if err != nil {
		t.Fatal(err)
	}

	var titles []string
	for title := range src.Titles() {
		titles = append(titles, title)
	}
	if len(titles) != 2 || titles[0] != "Alpha" || titles[1] != "Beta" {
		t.Errorf("Titles() = %v, want [Alpha Beta]", titles)
	}

	for title, size := range src.TitlesWithSizes() {
		text, _ := src.Get(title)
		if size != len(text) {
			t.Errorf("size of %q = %d, want %d", title, size, len(text))
		}
	}
}

func TestDumpSourceSize(t *testing.T) {
	src, err := parseDump(strings.NewReader(sampleDump))
	if err != nil {
		t.Fatal(err)
	}
	size, err := src.Size("Alpha")
	if err != nil {
		t.Fatal(err)
	}
	if size != len("Text of Alpha") {
		t.Errorf("Size(Alpha) = %d", size)
	}
	if _, err := src.Size("Missing"); !errors.Is(err, ErrArticleNotFound) {
		t.Errorf("Size(Missing) error = %v", err)
	}
}

func TestStaticSource(t *testing.T) {
	src := NewStaticSource(map[string]string{"A": "aa", "B": "b"}, []string{"B", "A"})

	var titles []string
	for title := range src.Titles() {
		titles = append(titles, title)
	}
	if len(titles) != 2 || titles[0] != "B" {
		t.Errorf("Titles() = %v, want insertion order [B A]", titles)
	}
	if _, err := src.Get("C"); !errors.Is(err, ErrArticleNotFound) {
		t.Errorf("Get(C) error = %v", err)
	}
}
