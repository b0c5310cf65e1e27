package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sync"
)

// RunStats counts outcomes across a conversion run.
type RunStats struct {
	Articles  int
	Redirects int
	Uncounted int
	Empty     int
	Failed    int
	Timeouts  int
}

func (s RunStats) String() string {
	return fmt.Sprintf("%d articles, %d redirects, %d uncounted, %d empty, %d failed, %d timeouts",
		s.Articles, s.Redirects, s.Uncounted, s.Empty, s.Failed, s.Timeouts)
}

// JSONLConsumer writes every outcome as one JSON object per line. The output
// is consumed by the dictionary packager; ordering follows reporting order.
type JSONLConsumer struct {
	mu    sync.Mutex
	enc   *json.Encoder
	stats RunStats
}

func NewJSONLConsumer(w io.Writer) *JSONLConsumer {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONLConsumer{enc: enc}
}

type consumerRecord struct {
	Type     string          `json:"type"`
	Key      string          `json:"key,omitempty"`
	Value    any             `json:"value,omitempty"`
	Title    string          `json:"title,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Redirect bool            `json:"redirect,omitempty"`
	Counted  *bool           `json:"counted,omitempty"`
	Size     int             `json:"size,omitempty"`
	Workers  int             `json:"workers,omitempty"`
}

func (c *JSONLConsumer) write(rec consumerRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enc.Encode(rec); err != nil {
		log.Printf("failed to write %s record: %v", rec.Type, err)
	}
}

func (c *JSONLConsumer) AddMetadata(key string, value any) {
	c.write(consumerRecord{Type: "metadata", Key: key, Value: value})
}

func (c *JSONLConsumer) AddArticle(title string, payload []byte, redirect, counted bool, size int) {
	c.mu.Lock()
	switch {
	case !counted:
		c.stats.Uncounted++
	case redirect:
		c.stats.Redirects++
	default:
		c.stats.Articles++
	}
	c.mu.Unlock()
	c.write(consumerRecord{
		Type:     "article",
		Title:    title,
		Payload:  json.RawMessage(payload),
		Redirect: redirect,
		Counted:  &counted,
		Size:     size,
	})
}

func (c *JSONLConsumer) EmptyArticle(title string) {
	c.mu.Lock()
	c.stats.Empty++
	c.mu.Unlock()
	c.write(consumerRecord{Type: "empty", Title: title})
}

func (c *JSONLConsumer) FailArticle(title string) {
	c.mu.Lock()
	c.stats.Failed++
	c.mu.Unlock()
	c.write(consumerRecord{Type: "failed", Title: title})
}

func (c *JSONLConsumer) TimedOut(activeWorkers int) {
	c.mu.Lock()
	c.stats.Timeouts++
	c.mu.Unlock()
	c.write(consumerRecord{Type: "timeout", Workers: activeWorkers})
}

// Stats returns a snapshot of the run counters.
func (c *JSONLConsumer) Stats() RunStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
