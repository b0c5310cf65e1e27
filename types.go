package main

// LanguageLink is a cross-reference to the equivalent article in another
// language edition. Target keeps the full "ns:Title" form as written.
type LanguageLink struct {
	Namespace string
	Target    string
}

// ConversionResult is the outcome of processing one title through the
// pipeline. Payload is the serialized article body ready for the consumer.
type ConversionResult struct {
	Title         string
	Payload       []byte
	Redirect      bool
	LanguageLinks []LanguageLink
	Size          int
}

// Consumer receives every per-article outcome exactly once, plus run-level
// metadata and timeout events. Implemented by the downstream packager.
type Consumer interface {
	AddMetadata(key string, value any)
	AddArticle(title string, payload []byte, redirect, counted bool, size int)
	EmptyArticle(title string)
	FailArticle(title string)
	TimedOut(activeWorkers int)
}

// MathRenderer renders a TeX source snippet to a PNG image. A failed render
// degrades the math node to plain text, never the whole article.
type MathRenderer interface {
	Render(src string) ([]byte, error)
}
