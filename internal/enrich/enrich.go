package enrich

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"docflow-backend/internal/llm"
	"docflow-backend/internal/shared/metrics"
	"docflow-backend/internal/shared/telemetry"
)

// Options selects which optional fields are generated.
type Options struct {
	Summarize      bool
	SuggestQueries bool
}

// FullOptions generates every field.
func FullOptions() Options {
	return Options{Summarize: true, SuggestQueries: true}
}

// Result holds the enrichment fields of one document.
type Result struct {
	Category         string
	SubCategory      string
	Summary          string
	SuggestedQueries []string
	// Degraded lists the fields that fell back to their default.
	Degraded []string
}

// Enricher asks a language model to classify and describe document text.
type Enricher struct {
	llm           llm.Completer
	maxInputChars int
	callTimeout   time.Duration
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithMaxInputChars truncates document text sent to the model. 0 disables the cap.
func WithMaxInputChars(n int) Option {
	return func(e *Enricher) { e.maxInputChars = n }
}

// WithCallTimeout bounds each model call.
func WithCallTimeout(d time.Duration) Option {
	return func(e *Enricher) { e.callTimeout = d }
}

// New creates an Enricher. A nil completer behaves like an unreachable service.
func New(completer llm.Completer, opts ...Option) *Enricher {
	if completer == nil {
		completer = llm.PlaceholderClient{}
	}
	e := &Enricher{llm: completer}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich runs the category, sub-category, summary and query calls concurrently.
// It never fails: each call that errors or returns nothing is replaced by its fallback.
func (e *Enricher) Enrich(ctx context.Context, text string, opts Options) Result {
	text = e.capInput(text)
	doc := documentMessage(text)

	res := Result{Summary: SummaryPending, SuggestedQueries: []string{}}
	var (
		mu       sync.Mutex
		degraded []string
	)
	markDegraded := func(field string) {
		mu.Lock()
		degraded = append(degraded, field)
		mu.Unlock()
	}

	var g errgroup.Group
	g.Go(func() error {
		var ok bool
		res.Category, ok = withFallback(ctx, e, FieldCategory, FallbackCategory, func(ctx context.Context) (string, error) {
			out, err := e.llm.Complete(ctx, categoryInstruction, doc)
			return NormalizeCategory(out), err
		})
		if !ok {
			markDegraded(FieldCategory)
		}
		return nil
	})
	g.Go(func() error {
		var ok bool
		res.SubCategory, ok = withFallback(ctx, e, FieldSubCategory, FallbackSubCategory, func(ctx context.Context) (string, error) {
			out, err := e.llm.Complete(ctx, subCategoryInstruction, doc)
			return normalizeSubCategory(out), err
		})
		if !ok {
			markDegraded(FieldSubCategory)
		}
		return nil
	})
	if opts.Summarize {
		g.Go(func() error {
			var ok bool
			res.Summary, ok = withFallback(ctx, e, FieldSummary, FallbackSummary, func(ctx context.Context) (string, error) {
				out, err := e.llm.Complete(ctx, summaryInstruction, doc)
				return Sanitize(out), err
			})
			if !ok {
				markDegraded(FieldSummary)
			}
			return nil
		})
	}
	if opts.SuggestQueries {
		g.Go(func() error {
			var ok bool
			res.SuggestedQueries, ok = withFallback(ctx, e, FieldSuggestedQueries, fallbackQueries(), func(ctx context.Context) ([]string, error) {
				out, err := e.llm.Complete(ctx, queriesInstruction, doc)
				return parseQueries(out), err
			})
			if !ok {
				markDegraded(FieldSuggestedQueries)
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(degraded)
	res.Degraded = degraded
	return res
}

// Answer asks the model a question about text. The bool is false when the
// fallback answer was used.
func (e *Enricher) Answer(ctx context.Context, text, question string) (string, bool) {
	msg := questionMessage(e.capInput(text), question)
	return withFallback(ctx, e, FieldAnswer, FallbackAnswer, func(ctx context.Context) (string, error) {
		out, err := e.llm.Complete(ctx, answerInstruction, msg)
		return Sanitize(out), err
	})
}

// Chat sends a free-form prompt with no system instruction. The reply is
// returned as the model wrote it.
func (e *Enricher) Chat(ctx context.Context, prompt string) (string, bool) {
	msg := e.capInput(prompt)
	return withFallback(ctx, e, FieldChat, FallbackChat, func(ctx context.Context) (string, error) {
		return e.llm.Complete(ctx, "", msg)
	})
}

// withFallback runs call and substitutes fallback when it errors or yields an empty value.
func withFallback[T string | []string](ctx context.Context, e *Enricher, field string, fallback T, call func(context.Context) (T, error)) (T, bool) {
	if e.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.callTimeout)
		defer cancel()
	}
	out, err := call(ctx)
	if err == nil && len(out) > 0 {
		return out, true
	}
	fields := map[string]any{"field": field}
	if err != nil {
		fields["err"] = err.Error()
	} else {
		fields["reason"] = "empty response"
	}
	telemetry.Warn("enrich.degraded", fields)
	metrics.IncEnrichmentDegraded(field)
	return fallback, false
}

func (e *Enricher) capInput(text string) string {
	if e.maxInputChars <= 0 || utf8.RuneCountInString(text) <= e.maxInputChars {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:e.maxInputChars]))
}
