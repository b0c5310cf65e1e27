package main

import (
	"context"
	"sync"
	"sync/atomic"
)

// articleConverter is what the pool needs from a converter. Satisfied by
// *Converter; tests substitute their own.
type articleConverter interface {
	Convert(title string) (*ConversionResult, error)
}

// convertOutcome pairs a title with its conversion result or error.
type convertOutcome struct {
	title  string
	result *ConversionResult
	err    error
}

// workerPool converts a fixed batch of titles with a set of workers. Each
// worker gets its own converter from the factory. The results channel is
// buffered for the whole batch so workers never block on a reader; a pool
// abandoned by Terminate drains itself once in-flight conversions return.
type workerPool struct {
	cancel  context.CancelFunc
	results chan convertOutcome
	wg      sync.WaitGroup
	active  atomic.Int32
}

func newWorkerPool(parent context.Context, workers int, newConverter func() articleConverter, titles []string) *workerPool {
	ctx, cancel := context.WithCancel(parent)
	p := &workerPool{
		cancel:  cancel,
		results: make(chan convertOutcome, len(titles)),
	}

	jobs := make(chan string, len(titles))
	for _, t := range titles {
		jobs <- t
	}
	close(jobs)

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			conv := newConverter()
			for title := range jobs {
				if ctx.Err() != nil {
					return
				}
				p.active.Add(1)
				result, err := conv.Convert(title)
				p.active.Add(-1)
				select {
				case p.results <- convertOutcome{title: title, result: result, err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	return p
}

// Active reports how many workers are inside a conversion right now.
func (p *workerPool) Active() int {
	return int(p.active.Load())
}

// Terminate abandons the pool. Workers stop picking up jobs; a worker stuck
// inside a conversion is left behind and its eventual result discarded.
func (p *workerPool) Terminate() {
	p.cancel()
}

// Close waits for all workers to finish and releases the pool.
func (p *workerPool) Close() {
	p.wg.Wait()
	p.cancel()
}
