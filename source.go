package main

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	"github.com/dsnet/compress/bzip2"
)

// ErrArticleNotFound is returned by Get for a title the source does not hold.
var ErrArticleNotFound = errors.New("article not found")

// ArticleSource provides raw article markup by title. Implementations must be
// safe for concurrent readers.
type ArticleSource interface {
	Get(title string) (string, error)
	Size(title string) (int, error)
	Titles() iter.Seq[string]
	TitlesWithSizes() iter.Seq2[string, int]
}

// DumpSource holds the main-namespace pages of an XML content dump in memory,
// preserving dump order.
type DumpSource struct {
	order []string
	pages map[string]string
}

// OpenDump reads an XML dump, optionally bzip2 compressed, into a DumpSource.
func OpenDump(path string) (*DumpSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dump %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".bz2") {
		bz, err := bzip2.NewReader(f, &bzip2.ReaderConfig{})
		if err != nil {
			return nil, fmt.Errorf("opening dump %s: %w", path, err)
		}
		defer bz.Close()
		r = bz
	}

	src, err := parseDump(r)
	if err != nil {
		return nil, fmt.Errorf("parsing dump %s: %w", path, err)
	}
	return src, nil
}

type dumpPage struct {
	Title string `xml:"title"`
	Ns    int    `xml:"ns"`
	Text  string `xml:"revision>text"`
}

// parseDump streams page elements out of the dump, keeping only the main
// namespace. Later revisions of a repeated title win.
func parseDump(r io.Reader) (*DumpSource, error) {
	src := &DumpSource{pages: make(map[string]string)}
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "page" {
			continue
		}
		var page dumpPage
		if err := dec.DecodeElement(&page, &start); err != nil {
			return nil, err
		}
		if page.Ns != 0 || page.Title == "" {
			continue
		}
		if _, seen := src.pages[page.Title]; !seen {
			src.order = append(src.order, page.Title)
		}
		src.pages[page.Title] = page.Text
	}
	return src, nil
}

func (s *DumpSource) Get(title string) (string, error) {
	text, ok := s.pages[title]
	if !ok {
		return "", ErrArticleNotFound
	}
	return text, nil
}

func (s *DumpSource) Size(title string) (int, error) {
	text, ok := s.pages[title]
	if !ok {
		return 0, ErrArticleNotFound
	}
	return len(text), nil
}

// Len reports how many articles the source holds.
func (s *DumpSource) Len() int {
	return len(s.order)
}

// Titles yields article titles in dump order.
func (s *DumpSource) Titles() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, t := range s.order {
			if !yield(t) {
				return
			}
		}
	}
}

// TitlesWithSizes yields titles with their raw markup sizes in dump order.
func (s *DumpSource) TitlesWithSizes() iter.Seq2[string, int] {
	return func(yield func(string, int) bool) {
		for _, t := range s.order {
			if !yield(t, len(s.pages[t])) {
				return
			}
		}
	}
}

// StaticSource is an in-memory source built from a title to markup map, with
// titles served in insertion order. Useful for tests and embedding.
type StaticSource struct {
	order []string
	pages map[string]string
}

func NewStaticSource(pages map[string]string, order []string) *StaticSource {
	return &StaticSource{order: order, pages: pages}
}

func (s *StaticSource) Get(title string) (string, error) {
	text, ok := s.pages[title]
	if !ok {
		return "", ErrArticleNotFound
	}
	return text, nil
}

func (s *StaticSource) Size(title string) (int, error) {
	text, ok := s.pages[title]
	if !ok {
		return 0, ErrArticleNotFound
	}
	return len(text), nil
}

func (s *StaticSource) Titles() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, t := range s.order {
			if !yield(t) {
				return
			}
		}
	}
}

func (s *StaticSource) TitlesWithSizes() iter.Seq2[string, int] {
	return func(yield func(string, int) bool) {
		for _, t := range s.order {
			if !yield(t, len(s.pages[t])) {
				return
			}
		}
	}
}
