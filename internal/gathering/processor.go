// Package gathering drives the word list pipeline: decide whether each word
// needs fetching, call the completion API with backoff, parse the answer and
// persist the store after every word.
package gathering

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/vietddude/lexophile/internal/core/domain"
	"github.com/vietddude/lexophile/internal/gathering/metrics"
	"github.com/vietddude/lexophile/internal/infra/llm"
	"github.com/vietddude/lexophile/internal/infra/storage/jsonfile"
)

// DocumentStore loads and persists the word store.
type DocumentStore interface {
	Load() (*domain.Document, error)
	CreateEmpty() *domain.Document
	Save(doc *domain.Document) error
	Quarantine() (string, error)
	MakeFailedRecord(word, reason string) *domain.WordRecord
}

// Config configures the processor.
type Config struct {
	WordList        string
	PolitenessDelay time.Duration // pause after each successful fetch
}

// Stats are the run totals. They do not affect control flow.
type Stats struct {
	New         int
	Reprocessed int
	Skipped     int
	Errors      int
}

// Progress is a point-in-time view of a run, safe to read from other goroutines.
type Progress struct {
	Total    int
	Done     int
	Current  string
	Stats    Stats
	Finished bool // Run has returned, whether completed or not
}

// Processor handles one sequential pass over a word list.
type Processor struct {
	config   Config
	store    DocumentStore
	provider llm.Provider
	backoff  *llm.Backoff
	logger   *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu       sync.RWMutex
	progress Progress
}

// NewProcessor creates a Processor.
func NewProcessor(
	cfg Config,
	store DocumentStore,
	provider llm.Provider,
	backoff *llm.Backoff,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		config:   cfg,
		store:    store,
		provider: provider,
		backoff:  backoff,
		logger:   logger,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Run processes every word in the list. Per-word failures are recorded as
// failed records; only an unreadable word list or cancellation return an error.
func (p *Processor) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	defer p.finish()

	words, err := ReadWordList(p.config.WordList)
	if err != nil {
		p.logger.Error("Error loading word list", "path", p.config.WordList, "error", err)
		return stats, err
	}
	p.logger.Info("Loaded word list", "path", p.config.WordList, "words", len(words))

	doc := p.openDocument()
	doc.Metadata.WordListFile = filepath.Base(p.config.WordList)

	total := len(words)
	for i, word := range words {
		p.track(total, i, word, stats)
		if err := ctx.Err(); err != nil {
			p.logger.Warn("Run interrupted", "processed", i, "total", total)
			return stats, err
		}

		existing, exists := doc.Words[word]
		reprocessing := false
		switch {
		case exists && domain.IsComplete(existing):
			p.logger.Info("Skipping word, already complete", "index", i+1, "total", total, "word", word)
			stats.Skipped++
			metrics.WordsTotal.WithLabelValues(metrics.OutcomeSkipped).Inc()
			continue
		case exists:
			p.logger.Info("Reprocessing word, missing or incomplete data", "index", i+1, "total", total, "word", word)
			reprocessing = true
		default:
			p.logger.Info("Processing new word", "index", i+1, "total", total, "word", word)
		}

		rec, err := p.fetch(ctx, word)
		if err != nil {
			// Cancelled mid-word: leave it unrecorded so the next run picks it up.
			p.logger.Warn("Run interrupted", "word", word, "error", err)
			return stats, err
		}

		doc.Words[word] = rec
		p.persist(doc)

		if rec.ProcessingStatus != domain.StatusSuccess {
			stats.Errors++
			metrics.WordsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
			continue
		}

		if reprocessing {
			stats.Reprocessed++
			metrics.WordsTotal.WithLabelValues(metrics.OutcomeReprocessed).Inc()
			p.logger.Info("Successfully reprocessed word", "word", word, "reprocessed", stats.Reprocessed)
		} else {
			stats.New++
			metrics.WordsTotal.WithLabelValues(metrics.OutcomeNew).Inc()
			p.logger.Info("Successfully processed word", "word", word, "completed", stats.New)
		}

		if p.config.PolitenessDelay > 0 {
			if err := p.sleep(ctx, p.config.PolitenessDelay); err != nil {
				return stats, err
			}
		}
	}

	p.track(total, total, "", stats)
	p.logger.Info("Processing complete",
		"new", stats.New,
		"reprocessed", stats.Reprocessed,
		"skipped", stats.Skipped,
		"errors", stats.Errors,
	)
	return stats, nil
}

// Progress returns the latest run snapshot.
func (p *Processor) Progress() Progress {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.progress
}

func (p *Processor) finish() {
	p.mu.Lock()
	p.progress.Current = ""
	p.progress.Finished = true
	p.mu.Unlock()
}

func (p *Processor) track(total, done int, word string, stats Stats) {
	p.mu.Lock()
	p.progress = Progress{Total: total, Done: done, Current: word, Stats: stats}
	p.mu.Unlock()
}

// openDocument loads the store, falling back to an empty one when the file
// is absent or unreadable.
func (p *Processor) openDocument() *domain.Document {
	doc, err := p.store.Load()
	switch {
	case err == nil:
		return doc
	case errors.Is(err, jsonfile.ErrNotFound):
		p.logger.Info("Created new data structure")
	case errors.Is(err, jsonfile.ErrMalformed):
		if _, qerr := p.store.Quarantine(); qerr != nil {
			p.logger.Error("Could not move malformed store aside", "error", qerr)
		}
		p.logger.Warn("Starting from an empty store", "error", err)
	default:
		p.logger.Error("Error loading store, starting empty", "error", err)
	}
	return p.store.CreateEmpty()
}

// persist writes the store. A failed write leaves the file stale but the run continues.
func (p *Processor) persist(doc *domain.Document) {
	if err := p.store.Save(doc); err != nil {
		metrics.StoreSaveErrors.Inc()
		p.logger.Error("Error saving data", "error", err)
	}
}

// fetch returns a success or failed record for word. The error is non-nil
// only when ctx was cancelled.
func (p *Processor) fetch(ctx context.Context, word string) (rec *domain.WordRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Error processing word", "word", word, "panic", r)
			rec = p.failed(word, fmt.Sprintf("%s: %v", ReasonUnexpected, r))
			err = nil
		}
	}()

	prompt := BuildPrompt(word)
	resp, err := p.backoff.Do(ctx, func(ctx context.Context) (*llm.Response, error) {
		return p.provider.Complete(ctx, prompt)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, llm.ErrRetriesExhausted) {
			p.logger.Error("Failed to get response after all retries", "word", word, "error", err)
			return p.failed(word, ReasonRetriesExceeded), nil
		}
		p.logger.Error("API request failed", "word", word, "error", err)
		return p.failed(word, fmt.Sprintf("%s: %v", ReasonRequestFailed, err)), nil
	}
	if resp == nil {
		p.logger.Error("Error processing word", "word", word, "error", "nil response")
		return p.failed(word, ReasonUnexpected+": empty response object"), nil
	}

	raw := resp.Text
	p.logResponse(word, raw)

	rec, perr := ParseResponse(word, raw, p.now())
	if perr != nil {
		reason := ClassifyUnparseable(raw)
		if errors.Is(perr, ErrSchemaMismatch) {
			reason = ReasonSchemaMismatch
		}
		p.logParseFailure(word, raw, reason, perr)
		return p.failed(word, reason), nil
	}
	return rec, nil
}

func (p *Processor) failed(word, reason string) *domain.WordRecord {
	return p.store.MakeFailedRecord(word, reason)
}

func (p *Processor) logResponse(word, raw string) {
	n := utf8.RuneCountInString(raw)
	p.logger.Debug("Raw response length", "word", word, "chars", n)
	if n > 400 {
		p.logger.Debug("Response preview", "word", word, "start", headRunes(raw, 200), "end", tailRunes(raw, 200))
	} else {
		p.logger.Debug("Full response", "word", word, "response", raw)
	}
}

func (p *Processor) logParseFailure(word, raw, reason string, err error) {
	n := utf8.RuneCountInString(raw)
	attrs := []any{"word", word, "reason", reason, "error", err, "response_length", n}
	switch {
	case n == 0:
	case n < 500:
		attrs = append(attrs, "response", raw)
	default:
		attrs = append(attrs, "response_start", headRunes(raw, 300), "response_end", tailRunes(raw, 300))
	}
	p.logger.Error("JSON parsing failed", attrs...)
}

// headRunes returns the first n runes of s.
func headRunes(s string, n int) string {
	for i := range s {
		if n == 0 {
			return s[:i]
		}
		n--
	}
	return s
}

// tailRunes returns the last n runes of s.
func tailRunes(s string, n int) string {
	i := len(s)
	for ; i > 0 && n > 0; n-- {
		_, size := utf8.DecodeLastRuneInString(s[:i])
		i -= size
	}
	return s[i:]
}

// ReadWordList returns the non-blank lines of path, trimmed, in order.
// Duplicates are kept.
func ReadWordList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open word list: %w", err)
	}
	defer f.Close()

	var words []string
	scanner := bufio.NewScanner(f)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		}
		if w := strings.TrimSpace(line); w != "" {
			words = append(words, w)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read word list: %w", err)
	}
	return words, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
