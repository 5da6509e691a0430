package proofs

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
)

//go:embed contexts/veres-one-v1.jsonld
var veresOneContextV1 []byte

// ErrUnknownContext is returned when no loader can resolve a context URL
var ErrUnknownContext = errors.New("unknown context")

// RemoteDocument is a resolved context document
type RemoteDocument struct {
	ContextURL  string
	DocumentURL string
	Document    any
}

// DocumentLoader resolves context URLs referenced by documents being signed
type DocumentLoader interface {
	LoadDocument(ctx context.Context, url string) (*RemoteDocument, error)
}

// LoaderFunc adapts a function to DocumentLoader
type LoaderFunc func(ctx context.Context, url string) (*RemoteDocument, error)

// LoadDocument calls f
func (f LoaderFunc) LoadDocument(ctx context.Context, url string) (*RemoteDocument, error) {
	return f(ctx, url)
}

// StaticLoader serves known contexts from memory and delegates every other
// URL to its fallback. It is read-only after construction.
type StaticLoader struct {
	contexts map[string]any
	fallback DocumentLoader
}

// NewStaticLoader returns a loader preloaded with the Veres One context.
// extra adds or overrides URL to document mappings. fallback may be nil,
// in which case unknown URLs fail with ErrUnknownContext.
func NewStaticLoader(fallback DocumentLoader, extra map[string]any) (*StaticLoader, error) {
	var veresOne any
	if err := json.Unmarshal(veresOneContextV1, &veresOne); err != nil {
		return nil, fmt.Errorf("failed to parse embedded context: %w", err)
	}

	contexts := map[string]any{
		VeresOneContextV1: veresOne,
	}
	for url, doc := range extra {
		contexts[url] = doc
	}

	return &StaticLoader{
		contexts: contexts,
		fallback: fallback,
	}, nil
}

// LoadDocument implements DocumentLoader
func (l *StaticLoader) LoadDocument(ctx context.Context, url string) (*RemoteDocument, error) {
	if doc, ok := l.contexts[url]; ok {
		return &RemoteDocument{
			DocumentURL: url,
			Document:    doc,
		}, nil
	}
	if l.fallback == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownContext, url)
	}
	return l.fallback.LoadDocument(ctx, url)
}

// contextURLs lists the URL entries of a JSON-LD @context value.
// Inline context objects need no loading and are skipped.
func contextURLs(value any) []string {
	switch v := value.(type) {
	case string:
		return []string{v}
	case []any:
		var urls []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				urls = append(urls, s)
			}
		}
		return urls
	case []string:
		return v
	}
	return nil
}
