package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hematrace/labxtract/internal/extract"
	"github.com/hematrace/labxtract/internal/ocr"
	"github.com/hematrace/labxtract/internal/parser"
)

// Input is one document submitted for extraction: a display name and the
// path of its scoped temp file.
type Input struct {
	Name string
	Path string
}

// DocumentResult is the per-document outcome. Exactly one of Result and
// Err is set; a failed document contributes nothing to a merge.
type DocumentResult struct {
	Name   string
	Result *extract.Result
	Err    error
}

// Processor runs the extraction pipeline for batches of documents:
// local text-layer fast path, provider OCR with bounded concurrency and
// retries, template matching, and result memoization.
type Processor struct {
	provider ocr.Provider
	engine   *extract.Engine
	cache    *ResultCache
	log      *slog.Logger

	sem         chan struct{}
	pdfFallback bool
}

func NewProcessor(provider ocr.Provider, engine *extract.Engine, cache *ResultCache, log *slog.Logger, maxConcurrentOCR int, pdfFallback bool) *Processor {
	if maxConcurrentOCR <= 0 {
		maxConcurrentOCR = 1
	}
	return &Processor{
		provider:    provider,
		engine:      engine,
		cache:       cache,
		log:         log,
		sem:         make(chan struct{}, maxConcurrentOCR),
		pdfFallback: pdfFallback,
	}
}

// ProcessBatch extracts every input concurrently and returns per-document
// results in input order. A failing document never aborts its siblings.
func (p *Processor) ProcessBatch(ctx context.Context, inputs []Input) []DocumentResult {
	results := make([]DocumentResult, len(inputs))

	done := make(chan int, len(inputs))
	for i, in := range inputs {
		go func(i int, in Input) {
			defer func() { done <- i }()
			res, err := p.processOne(ctx, in)
			results[i] = DocumentResult{Name: in.Name, Result: res, Err: err}
		}(i, in)
	}
	for range inputs {
		<-done
	}
	return results
}

func (p *Processor) processOne(ctx context.Context, in Input) (*extract.Result, error) {
	log := p.log.With("document", in.Name)

	data, err := os.ReadFile(in.Path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	key := ContentHashHex(data)
	if cached, ok := p.cache.Get(key); ok {
		log.Debug("cache hit", "key", key[:12])
		return cached, nil
	}

	doc, err := p.recognize(ctx, data, in.Name, log)
	if err != nil {
		return nil, err
	}

	result := p.engine.Extract(doc)
	p.cache.Add(key, result)
	return result, nil
}

// recognize obtains a recognized document: documents carrying their own
// text are parsed locally, everything else (images, scanned PDFs with an
// empty text layer) goes to the OCR provider.
func (p *Processor) recognize(ctx context.Context, data []byte, name string, log *slog.Logger) (*ocr.Document, error) {
	if parser.HasLocalParser(name) {
		doc, err := p.parseLocal(data, name)
		if err != nil {
			log.Warn("local parse failed, sending to provider", "error", err)
		} else if !doc.Empty() {
			log.Debug("extracted text layer locally")
			return doc, nil
		}
	}
	return p.analyzeWithRetry(ctx, data, name, log)
}

func (p *Processor) parseLocal(data []byte, name string) (*ocr.Document, error) {
	pr, err := parser.ForFile(name)
	if err != nil {
		return nil, err
	}
	if pdf, ok := pr.(*parser.PDFParser); ok {
		pdf.FallbackPdftotext = p.pdfFallback
	}
	return pr.Parse(bytes.NewReader(data), name)
}

func (p *Processor) analyzeWithRetry(ctx context.Context, data []byte, name string, log *slog.Logger) (*ocr.Document, error) {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-p.sem }()

	var doc *ocr.Document
	var lastErr error
	for attempt := 0; attempt < MaxRetries; attempt++ {
		doc, lastErr = p.provider.Analyze(ctx, data, name)
		if lastErr == nil || !IsRetryable(lastErr) {
			break
		}
		log.Warn("retryable provider error", "attempt", attempt, "error", lastErr)
		select {
		case <-time.After(Backoff(attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	if doc.Empty() {
		return nil, ocr.ErrNoTextExtracted
	}
	return doc, nil
}

// Combine folds successful per-document results into one combined result,
// in document-list order so that concurrent completion order never changes
// the outcome. It returns the combined result, the names of documents that
// contributed, and the error message per failed document.
func Combine(results []DocumentResult) (*extract.Result, []string, map[string]string) {
	var combined *extract.Result
	var names []string
	failures := make(map[string]string)

	for _, r := range results {
		if r.Err != nil {
			failures[r.Name] = r.Err.Error()
			continue
		}
		combined = extract.Merge(combined, r.Result)
		names = append(names, r.Name)
	}
	return combined, names, failures
}
