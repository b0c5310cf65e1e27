package main

import "fmt"

// ConvertError is the uniform failure reported for an article that could not
// be converted. The low-level cause is kept for logging but the scheduler
// only ever sees this one type.
type ConvertError struct {
	Title string
	Err   error
}

func (e *ConvertError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("convert %s: %v", e.Title, e.Err)
	}
	return fmt.Sprintf("convert %s", e.Title)
}

func (e *ConvertError) Unwrap() error { return e.Err }

// EmptyArticleError marks a title that exists but has no content. It is
// reported separately from conversion failures.
type EmptyArticleError struct {
	Title string
}

func (e *EmptyArticleError) Error() string {
	return fmt.Sprintf("empty article %s", e.Title)
}

// BadRedirectError marks a redirect directive with missing link brackets.
// The pipeline wraps it into a ConvertError before it reaches the scheduler.
type BadRedirectError struct {
	Text string
}

func (e *BadRedirectError) Error() string {
	return fmt.Sprintf("bad redirect: %s", e.Text)
}
