package main

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultDescription = ` %s for Aard Dictionary is a collection of text documents from %s (articles only). Some documents or portions of documents may have been omited or could not be converted to Aard Dictionary format. All documents can be found online at %s under the same title as displayed in Aard Dictionary.
`

// BatchOptions configures a conversion run.
type BatchOptions struct {
	Processes    int
	Timeout      time.Duration
	ChunkSize    int
	Start        int
	End          int // 0 means no limit
	ArticleCount int // stop after this many real articles, 0 means all
	LangLinks    []string
	Sequential   bool
	Format       string
	Lang         string // overrides the site language in the "lang" metadata
	Math         MathRenderer

	MetadataPath  string
	LicensePath   string
	CopyrightPath string
	Version       string
}

// BatchProcessor drives the conversion of a whole dump: emits run metadata,
// schedules titles over a worker pool with timeout recovery, and reports
// every title's outcome to the consumer exactly once.
type BatchProcessor struct {
	consumer Consumer
	source   ArticleSource
	siteinfo *SiteInfo
	filters  *Filters
	opts     BatchOptions

	langLinkLangs map[string]bool
	newConverter  func() articleConverter
	added         int
}

func NewBatchProcessor(consumer Consumer, source ArticleSource, si *SiteInfo, filters *Filters, opts BatchOptions) *BatchProcessor {
	if opts.Processes <= 0 {
		opts.Processes = runtime.NumCPU()
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 32
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	if filters == nil {
		filters = NewFilters()
	}

	b := &BatchProcessor{
		consumer: consumer,
		source:   source,
		siteinfo: si,
		filters:  filters,
		opts:     opts,
	}

	sitelang := strings.ToLower(si.General.Lang)
	b.langLinkLangs = make(map[string]bool)
	for _, l := range opts.LangLinks {
		l = strings.ToLower(strings.TrimSpace(l))
		if l != "" && l != sitelang {
			b.langLinkLangs[l] = true
		}
	}

	b.newConverter = func() articleConverter {
		return NewConverter(ConverterConfig{
			Source:   source,
			Filters:  filters,
			SiteInfo: si,
			Math:     opts.Math,
			Format:   opts.Format,
		})
	}
	return b
}

// Run converts the whole batch. It returns early only on context
// cancellation or a metadata error; per-article failures are reported to the
// consumer and do not stop the run.
func (b *BatchProcessor) Run(ctx context.Context) error {
	if err := b.emitMetadata(); err != nil {
		return err
	}
	if b.opts.Sequential {
		return b.runSequential(ctx)
	}
	return b.runPooled(ctx)
}

func (b *BatchProcessor) emitMetadata() error {
	general := b.siteinfo.General
	b.consumer.AddMetadata("siteinfo", b.siteinfo)
	b.consumer.AddMetadata("title", general.Sitename)
	if b.opts.Version != "" {
		b.consumer.AddMetadata("version", b.opts.Version)
	}
	b.consumer.AddMetadata("source", general.Server)
	b.consumer.AddMetadata("description",
		fmt.Sprintf(defaultDescription, general.Sitename, general.Server, general.Server))
	lang := b.opts.Lang
	if lang == "" {
		lang = general.Lang
	}
	b.consumer.AddMetadata("lang", lang)
	b.consumer.AddMetadata("sitelang", general.Lang)
	b.consumer.AddMetadata("index_language", general.Lang)
	b.consumer.AddMetadata("article_language", general.Lang)
	format := b.opts.Format
	if format == "" {
		format = FormatHTML
	}
	b.consumer.AddMetadata("article_format", format)

	if len(b.langLinkLangs) > 0 {
		langs := make([]string, 0, len(b.langLinkLangs))
		for l := range b.langLinkLangs {
			langs = append(langs, l)
		}
		sort.Strings(langs)
		b.consumer.AddMetadata("language_links", langs)
	}

	if b.opts.MetadataPath != "" {
		data, err := os.ReadFile(b.opts.MetadataPath)
		if err != nil {
			return fmt.Errorf("reading metadata %s: %w", b.opts.MetadataPath, err)
		}
		var entries map[string]any
		if err := yaml.Unmarshal(data, &entries); err != nil {
			return fmt.Errorf("parsing metadata %s: %w", b.opts.MetadataPath, err)
		}
		log.Printf("using metadata from %s", b.opts.MetadataPath)
		keys := make([]string, 0, len(entries))
		for k := range entries {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.consumer.AddMetadata(k, entries[k])
		}
	} else {
		log.Printf("no metadata file specified")
	}

	if b.opts.LicensePath != "" {
		text, err := os.ReadFile(b.opts.LicensePath)
		if err != nil {
			return fmt.Errorf("reading license %s: %w", b.opts.LicensePath, err)
		}
		log.Printf("using license text from %s", b.opts.LicensePath)
		b.consumer.AddMetadata("license", string(text))
	} else {
		b.consumer.AddMetadata("license", general.Rights)
	}

	if b.opts.CopyrightPath != "" {
		text, err := os.ReadFile(b.opts.CopyrightPath)
		if err != nil {
			return fmt.Errorf("reading copyright %s: %w", b.opts.CopyrightPath, err)
		}
		log.Printf("using copyright text from %s", b.opts.CopyrightPath)
		b.consumer.AddMetadata("copyright", string(text))
	}
	return nil
}

// titles yields the source titles with the start/end window applied.
func (b *BatchProcessor) titles() iter.Seq[string] {
	return func(yield func(string) bool) {
		if b.opts.Start > 0 {
			log.Printf("skipping to article %d", b.opts.Start)
		}
		i := 0
		for title := range b.source.Titles() {
			if b.opts.End > 0 && i >= b.opts.End {
				return
			}
			if i >= b.opts.Start {
				if !yield(title) {
					return
				}
			}
			i++
		}
	}
}

func (b *BatchProcessor) runSequential(ctx context.Context) error {
	conv := b.newConverter()
	for title := range b.titles() {
		if err := ctx.Err(); err != nil {
			return err
		}
		result, err := conv.Convert(title)
		if b.report(title, result, err) {
			return nil
		}
	}
	return nil
}

// runPooled converts chunk by chunk over a worker pool. When a chunk stalls
// past the timeout the pool is abandoned and a fresh one takes over the
// titles still unreported, so no outcome is ever delivered twice.
func (b *BatchProcessor) runPooled(ctx context.Context) error {
	next, stop := newChunker(b.titles(), b.opts.ChunkSize)
	defer stop()

	var pool *workerPool
	defer func() {
		if pool != nil {
			pool.Terminate()
		}
	}()

	for {
		chunk, ok := next()
		if !ok {
			return nil
		}

		pending := make(map[string]bool, len(chunk))
		for _, t := range chunk {
			pending[t] = true
		}
		pool = newWorkerPool(ctx, b.opts.Processes, b.newConverter, chunk)

		for len(pending) > 0 {
			select {
			case outcome := <-pool.results:
				delete(pending, outcome.title)
				if b.report(outcome.title, outcome.result, outcome.err) {
					return nil
				}

			case <-time.After(b.opts.Timeout):
				log.Printf("worker pool timed out")
				b.consumer.TimedOut(pool.Active())
				pool.Terminate()
				remaining := make([]string, 0, len(pending))
				for _, t := range chunk {
					if pending[t] {
						remaining = append(remaining, t)
					}
				}
				chunk = remaining
				pool = newWorkerPool(ctx, b.opts.Processes, b.newConverter, chunk)

			case <-ctx.Done():
				return ctx.Err()
			}
		}
		pool.Close()
		pool = nil
	}
}

// newChunker turns a title sequence into a pull-style chunk iterator.
func newChunker(seq iter.Seq[string], size int) (next func() ([]string, bool), stop func()) {
	ch := make(chan string)
	done := make(chan struct{})
	go func() {
		defer close(ch)
		seq(func(t string) bool {
			select {
			case ch <- t:
				return true
			case <-done:
				return false
			}
		})
	}()

	var stopped bool
	next = func() ([]string, bool) {
		chunk := make([]string, 0, size)
		for t := range ch {
			chunk = append(chunk, t)
			if len(chunk) == size {
				break
			}
		}
		if len(chunk) == 0 {
			return nil, false
		}
		return chunk, true
	}
	stop = func() {
		if !stopped {
			stopped = true
			close(done)
		}
	}
	return next, stop
}

// report delivers one outcome to the consumer. It returns true when the
// requested article count has been reached and the run should stop.
func (b *BatchProcessor) report(title string, result *ConversionResult, err error) (done bool) {
	if err != nil {
		var empty *EmptyArticleError
		if errors.As(err, &empty) {
			b.consumer.EmptyArticle(empty.Title)
			return false
		}
		var conv *ConvertError
		if errors.As(err, &conv) {
			b.consumer.FailArticle(conv.Title)
			return false
		}
		log.Printf("unexpected conversion error for %s: %v", title, err)
		b.consumer.FailArticle(title)
		return false
	}

	b.consumer.AddArticle(result.Title, result.Payload, result.Redirect, true, result.Size)
	b.resolveLanguageLinks(result.Title, result.LanguageLinks)
	if !result.Redirect {
		b.added++
		if b.opts.ArticleCount > 0 && b.added >= b.opts.ArticleCount {
			log.Printf("reached requested article count %d", b.opts.ArticleCount)
			return true
		}
	}
	return false
}

// resolveLanguageLinks adds uncounted synthetic redirects for language link
// targets that are not in the source, pointing them back at the article they
// were seen in.
func (b *BatchProcessor) resolveLanguageLinks(title string, links []LanguageLink) {
	if len(links) == 0 || len(b.langLinkLangs) == 0 {
		return
	}
	targets := make(map[string]bool)
	for _, link := range links {
		if !b.langLinkLangs[link.Namespace] {
			continue
		}
		i := strings.Index(link.Target, link.Namespace+":")
		if i < 0 {
			log.Printf("invalid language link %q", link.Target)
			continue
		}
		unqualified := link.Target[i+len(link.Namespace)+1:]
		if unqualified == "" {
			continue
		}
		if _, err := b.source.Get(unqualified); err != nil {
			targets[unqualified] = true
		}
	}

	sorted := make([]string, 0, len(targets))
	for t := range targets {
		sorted = append(sorted, t)
	}
	sort.Strings(sorted)
	for _, target := range sorted {
		payload, err := serializeRedirect(title)
		if err != nil {
			log.Printf("failed to serialize language link redirect %s: %v", target, err)
			continue
		}
		b.consumer.AddArticle(target, payload, true, false, 0)
	}
}
