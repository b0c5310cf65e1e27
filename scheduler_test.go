package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// recordingConsumer captures everything reported to it, in order.
type recordingConsumer struct {
	mu       sync.Mutex
	metadata map[string]any
	articles []recordedArticle
	empty    []string
	failed   []string
	timeouts int
}

type recordedArticle struct {
	title    string
	redirect bool
	counted  bool
}

func newRecordingConsumer() *recordingConsumer {
	return &recordingConsumer{metadata: make(map[string]any)}
}

func (c *recordingConsumer) AddMetadata(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metadata[key] = value
}

func (c *recordingConsumer) AddArticle(title string, payload []byte, redirect, counted bool, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.articles = append(c.articles, recordedArticle{title: title, redirect: redirect, counted: counted})
}

func (c *recordingConsumer) EmptyArticle(title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.empty = append(c.empty, title)
}

func (c *recordingConsumer) FailArticle(title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failed = append(c.failed, title)
}

func (c *recordingConsumer) TimedOut(activeWorkers int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeouts++
}

func (c *recordingConsumer) articleTitles() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	titles := make([]string, len(c.articles))
	for i, a := range c.articles {
		titles[i] = a.title
	}
	return titles
}

// stubConverter converts instantly, except for titles in hang, which block
// forever on their first attempt.
type stubConverter struct {
	mu       sync.Mutex
	hangOnce map[string]bool
	fail     map[string]bool
	empty    map[string]bool
}

func (s *stubConverter) Convert(title string) (*ConversionResult, error) {
	s.mu.Lock()
	hang := s.hangOnce[title]
	if hang {
		delete(s.hangOnce, title)
	}
	s.mu.Unlock()
	if hang {
		select {} // wedged, like a pathological article
	}
	if s.fail[title] {
		return nil, &ConvertError{Title: title, Err: errors.New("stub failure")}
	}
	if s.empty[title] {
		return nil, &EmptyArticleError{Title: title}
	}
	payload, err := serializeArticle("text of "+title, nil)
	if err != nil {
		return nil, err
	}
	return &ConversionResult{Title: title, Payload: payload, Size: len(title)}, nil
}

func testBatch(t *testing.T, pages map[string]string, order []string, opts BatchOptions) (*BatchProcessor, *recordingConsumer) {
	t.Helper()
	consumer := newRecordingConsumer()
	source := NewStaticSource(pages, order)
	return NewBatchProcessor(consumer, source, testSiteInfo, nil, opts), consumer
}

func titlesToPages(titles []string) map[string]string {
	pages := make(map[string]string, len(titles))
	for _, t := range titles {
		pages[t] = "content of " + t
	}
	return pages
}

func assertExactlyOnce(t *testing.T, consumer *recordingConsumer, want []string) {
	t.Helper()
	seen := make(map[string]int)
	for _, title := range consumer.articleTitles() {
		seen[title]++
	}
	for _, title := range consumer.empty {
		seen[title]++
	}
	for _, title := range consumer.failed {
		seen[title]++
	}
	for _, title := range want {
		if seen[title] != 1 {
			t.Errorf("title %q reported %d times, want exactly once", title, seen[title])
		}
	}
	if len(seen) != len(want) {
		t.Errorf("reported %d distinct titles, want %d", len(seen), len(want))
	}
}

func TestRunPooledReportsEverything(t *testing.T) {
	titles := []string{"A", "B", "C", "D", "E"}
	b, consumer := testBatch(t, titlesToPages(titles), titles, BatchOptions{
		Processes: 2,
		ChunkSize: 2,
	})
	stub := &stubConverter{
		fail:  map[string]bool{"C": true},
		empty: map[string]bool{"D": true},
	}
	b.newConverter = func() articleConverter { return stub }

	if err := b.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	assertExactlyOnce(t, consumer, titles)
	if len(consumer.failed) != 1 || consumer.failed[0] != "C" {
		t.Errorf("failed = %v, want [C]", consumer.failed)
	}
	if len(consumer.empty) != 1 || consumer.empty[0] != "D" {
		t.Errorf("empty = %v, want [D]", consumer.empty)
	}
}

func TestRunPooledTimeoutRecovery(t *testing.T) {
	titles := []string{"A", "B", "C", "D"}
	b, consumer := testBatch(t, titlesToPages(titles), titles, BatchOptions{
		Processes: 2,
		ChunkSize: 4,
		Timeout:   50 * time.Millisecond,
	})
	stub := &stubConverter{hangOnce: map[string]bool{"B": true}}
	b.newConverter = func() articleConverter { return stub }

	if err := b.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if consumer.timeouts == 0 {
		t.Error("consumer should have been told about the timeout")
	}
	assertExactlyOnce(t, consumer, titles)
}

func TestRunPooledEarlyTermination(t *testing.T) {
	titles := []string{"A", "B", "C", "D", "E", "F"}
	pages := titlesToPages(titles)
	pages["B"] = "#REDIRECT [[A]]"
	b, consumer := testBatch(t, pages, titles, BatchOptions{
		Processes:    1,
		ChunkSize:    2,
		ArticleCount: 2,
	})

	if err := b.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	real := 0
	for _, a := range consumer.articles {
		if !a.redirect {
			real++
		}
	}
	if real != 2 {
		t.Errorf("converted %d real articles, want 2", real)
	}
	// the whole batch must not have been processed
	if len(consumer.articles) >= len(titles) {
		t.Errorf("early termination did not stop the run: %d articles", len(consumer.articles))
	}
}

func TestRunSequential(t *testing.T) {
	titles := []string{"A", "B", "C"}
	b, consumer := testBatch(t, titlesToPages(titles), titles, BatchOptions{Sequential: true})

	if err := b.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	got := consumer.articleTitles()
	if len(got) != 3 || got[0] != "A" || got[1] != "B" || got[2] != "C" {
		t.Errorf("sequential order = %v, want [A B C]", got)
	}
}

func TestRunStartEndWindow(t *testing.T) {
	titles := []string{"A", "B", "C", "D", "E"}
	b, consumer := testBatch(t, titlesToPages(titles), titles, BatchOptions{
		Sequential: true,
		Start:      1,
		End:        4,
	})

	if err := b.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	got := consumer.articleTitles()
	if len(got) != 3 || got[0] != "B" || got[2] != "D" {
		t.Errorf("windowed titles = %v, want [B C D]", got)
	}
}

func TestRunCancelled(t *testing.T) {
	titles := []string{"A", "B", "C"}
	b, _ := testBatch(t, titlesToPages(titles), titles, BatchOptions{Processes: 1})
	stub := &stubConverter{hangOnce: map[string]bool{"A": true, "B": true, "C": true}}
	b.newConverter = func() articleConverter { return stub }

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := b.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestRunEmitsMetadata(t *testing.T) {
	titles := []string{"A"}
	b, consumer := testBatch(t, titlesToPages(titles), titles, BatchOptions{
		Sequential: true,
		LangLinks:  []string{"de", "fr", "EN"},
	})

	if err := b.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if consumer.metadata["title"] != "Testipedia" {
		t.Errorf("title metadata = %v", consumer.metadata["title"])
	}
	if consumer.metadata["source"] != "http://test.example" {
		t.Errorf("source metadata = %v", consumer.metadata["source"])
	}
	if consumer.metadata["article_format"] != "html" {
		t.Errorf("article_format = %v", consumer.metadata["article_format"])
	}
	if consumer.metadata["index_language"] != "en" {
		t.Errorf("index_language = %v", consumer.metadata["index_language"])
	}
	// rights string is passed through when no license file is known for it
	if consumer.metadata["license"] != "Public Domain" {
		t.Errorf("license = %v", consumer.metadata["license"])
	}
	// the wiki's own language is dropped from the language link set
	langs, ok := consumer.metadata["language_links"].([]string)
	if !ok || len(langs) != 2 {
		t.Fatalf("language_links = %v, want [de fr]", consumer.metadata["language_links"])
	}
}

func TestLanguageLinkRedirects(t *testing.T) {
	pages := map[string]string{
		"Hello":  "Greeting article [[de:Hallo]] [[fr:Bonjour]] [[it:Ciao]]",
		"Hallo":  "exists already",
		"Letter": "plain",
	}
	order := []string{"Hello", "Hallo", "Letter"}
	b, consumer := testBatch(t, pages, order, BatchOptions{
		Sequential: true,
		LangLinks:  []string{"de", "fr"},
	})

	if err := b.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	var synthetic []recordedArticle
	for _, a := range consumer.articles {
		if !a.counted {
			synthetic = append(synthetic, a)
		}
	}
	// de:Hallo resolves to an existing article, it:Ciao is not a requested
	// language; only fr:Bonjour becomes a synthetic redirect
	if len(synthetic) != 1 {
		t.Fatalf("synthetic redirects = %+v, want exactly one", synthetic)
	}
	if synthetic[0].title != "Bonjour" || !synthetic[0].redirect {
		t.Errorf("synthetic redirect = %+v", synthetic[0])
	}
}
