package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

// Output body formats.
const (
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
)

// Converter runs one title through the conversion pipeline:
// fetch → redirect check → parse → render → filter. Each worker builds its
// own Converter from the immutable configuration at startup.
type Converter struct {
	source   ArticleSource
	parser   Parser
	renderer *Renderer
	filters  *Filters
	aliases  []string
	format   string
	markdown *md.Converter
}

// ConverterConfig is the immutable configuration a Converter is built from.
type ConverterConfig struct {
	Source   ArticleSource
	Parser   Parser
	Filters  *Filters
	SiteInfo *SiteInfo
	Math     MathRenderer
	Format   string
}

func NewConverter(cfg ConverterConfig) *Converter {
	filters := cfg.Filters
	if filters == nil {
		filters = NewFilters()
	}
	parser := cfg.Parser
	if parser == nil {
		parser = NewWikitextParser()
	}
	c := &Converter{
		source:   cfg.Source,
		parser:   parser,
		renderer: &Renderer{Filters: filters, Math: cfg.Math},
		filters:  filters,
		format:   cfg.Format,
	}
	if cfg.SiteInfo != nil {
		c.aliases = cfg.SiteInfo.RedirectAliases()
	}
	if c.format == "" {
		c.format = FormatHTML
	}
	if c.format == FormatMarkdown {
		c.markdown = md.NewConverter("", true, nil)
	}
	return c
}

// Convert processes a single title. It returns an EmptyArticleError for
// titles without content and a ConvertError for every other failure; the
// underlying cause is logged here, not surfaced.
func (c *Converter) Convert(title string) (*ConversionResult, error) {
	if c.filters.ExcludedPage(title) {
		return nil, &EmptyArticleError{Title: title}
	}

	text, err := c.source.Get(title)
	if err != nil {
		log.Printf("failed to fetch article %s: %v", title, err)
		return nil, &ConvertError{Title: title, Err: err}
	}
	if text == "" {
		return nil, &EmptyArticleError{Title: title}
	}
	size, err := c.source.Size(title)
	if err != nil {
		log.Printf("failed to read size of article %s: %v", title, err)
		return nil, &ConvertError{Title: title, Err: err}
	}

	target, isRedirect, err := ParseRedirect(text, c.aliases)
	if err != nil {
		log.Printf("failed to process article %s: %v", title, err)
		return nil, &ConvertError{Title: title, Err: err}
	}
	if isRedirect {
		return makeRedirect(title, target, size)
	}

	doc, err := c.parser.Parse(title, text)
	if err != nil {
		log.Printf("failed to process article %s: %v", title, err)
		return nil, &ConvertError{Title: title, Err: err}
	}

	rendered, err := c.renderer.Render(doc)
	if err != nil {
		log.Printf("failed to process article %s: %v", title, err)
		return nil, &ConvertError{Title: title, Err: err}
	}

	body := strings.TrimRight(rendered.Text, " \t\r\n")
	body = c.filters.ReplaceText(body)
	if c.markdown != nil {
		body, err = c.markdown.ConvertString(body)
		if err != nil {
			log.Printf("failed to process article %s: %v", title, err)
			return nil, &ConvertError{Title: title, Err: err}
		}
	}

	payload, err := serializeArticle(body, rendered.Tags)
	if err != nil {
		log.Printf("failed to process article %s: %v", title, err)
		return nil, &ConvertError{Title: title, Err: err}
	}

	return &ConversionResult{
		Title:         title,
		Payload:       payload,
		LanguageLinks: rendered.LanguageLinks,
		Size:          size,
	}, nil
}

// makeRedirect builds the compact redirect record for a title.
func makeRedirect(title, target string, size int) (*ConversionResult, error) {
	payload, err := serializeRedirect(target)
	if err != nil {
		return nil, &ConvertError{Title: title, Err: err}
	}
	return &ConversionResult{
		Title:    title,
		Payload:  payload,
		Redirect: true,
		Size:     size,
	}, nil
}

// serializeArticle encodes the payload body for a normal article:
// a two-element array of rendered text and tag list.
func serializeArticle(text string, tags []string) ([]byte, error) {
	if tags == nil {
		tags = []string{}
	}
	return marshalPayload([]any{text, tags})
}

// serializeRedirect encodes the payload body for a redirect: empty text,
// empty tags, and the redirect target under "r".
func serializeRedirect(target string) ([]byte, error) {
	return marshalPayload([]any{"", []string{}, map[string]string{"r": target}})
}

// marshalPayload encodes without HTML escaping so the body round-trips
// byte for byte, including non-ASCII content.
func marshalPayload(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
