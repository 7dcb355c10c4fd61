package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/zombor/spesen-tracker/internal/cache"
	"github.com/zombor/spesen-tracker/internal/currency"
	"github.com/zombor/spesen-tracker/internal/expense"
	"github.com/zombor/spesen-tracker/internal/scanning"
)

// State is a file's position in the processing state machine.
type State string

const (
	StateDiscovered    State = "discovered"
	StateFingerprinted State = "fingerprinted"
	StateCacheHit      State = "cache_hit"
	StateExtracting    State = "extracting"
	StateClassified    State = "classified"
	StateNormalized    State = "normalized"
	StateFinalized     State = "finalized"
	StateFailed        State = "failed"
)

// ExtractionCache is the cache surface the orchestrator needs. The
// orchestrator owns all cache writes; the scanner never touches it.
type ExtractionCache interface {
	Lookup(fp cache.Fingerprint, version string) (*expense.Record, bool, error)
	Store(fp cache.Fingerprint, record *expense.Record, version string) error
}

// FileArchiver moves a finalized receipt into the archive tree.
type FileArchiver interface {
	Archive(path string, fp cache.Fingerprint, date time.Time) (string, error)
}

// Config carries the per-batch processing knobs.
type Config struct {
	// Workers bounds parallel file processing. The external model call
	// dominates latency; modest parallelism avoids its rate limits.
	Workers int

	// ArchiveOnSuccess moves finalized receipts into the archive tree.
	ArchiveOnSuccess bool

	// FileTimeout bounds one file's extraction including retries, so a
	// stuck request cannot stall the batch.
	FileTimeout time.Duration
}

// Pipeline orchestrates fingerprinting, cache lookup, extraction,
// classification, currency normalization and archival per receipt file.
type Pipeline struct {
	scanner  scanning.Scanner
	ocr      scanning.TextExtractor
	cache    ExtractionCache
	rates    currency.Provider
	archiver FileArchiver
	retry    scanning.RetryPolicy
	cfg      Config

	ratesOnce sync.Once
	table     *currency.Table
}

// New creates a Pipeline. ocr and archiver may be nil; extraction then
// runs without a text hint and finalized files stay in place.
func New(scanner scanning.Scanner, ocr scanning.TextExtractor, extractionCache ExtractionCache, rates currency.Provider, archiver FileArchiver, cfg Config) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = 3
	}
	if cfg.FileTimeout <= 0 {
		cfg.FileTimeout = 2 * time.Minute
	}
	return &Pipeline{
		scanner:  scanner,
		ocr:      ocr,
		cache:    extractionCache,
		rates:    rates,
		archiver: archiver,
		retry:    scanning.DefaultRetryPolicy(),
		cfg:      cfg,
	}
}

// Result is the terminal outcome for one file.
type Result struct {
	File       string
	State      State
	Record     *expense.Record
	Cached     bool
	ArchivedTo string
	Err        *Error
}

// BatchResult holds per-file results in input order.
type BatchResult struct {
	Results []Result
}

// Records returns the finalized records in input order.
func (b *BatchResult) Records() []*expense.Record {
	records := make([]*expense.Record, 0, len(b.Results))
	for _, r := range b.Results {
		if r.Err == nil && r.Record != nil {
			records = append(records, r.Record)
		}
	}
	return records
}

// Failures returns the failed results.
func (b *BatchResult) Failures() []Result {
	failures := make([]Result, 0)
	for _, r := range b.Results {
		if r.Err != nil {
			failures = append(failures, r)
		}
	}
	return failures
}

// CachedCount counts results served from the extraction cache.
func (b *BatchResult) CachedCount() int {
	n := 0
	for _, r := range b.Results {
		if r.Err == nil && r.Cached {
			n++
		}
	}
	return n
}

// ExtractedCount counts results that went through a fresh extraction.
func (b *BatchResult) ExtractedCount() int {
	n := 0
	for _, r := range b.Results {
		if r.Err == nil && !r.Cached {
			n++
		}
	}
	return n
}

// ProcessBatch processes a folder's files with a bounded worker pool. A
// failure on one file never aborts its siblings; every file gets a
// terminal Result.
func (p *Pipeline) ProcessBatch(ctx context.Context, paths []string) *BatchResult {
	results := make([]Result, len(paths))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(p.cfg.Workers)
	for i, path := range paths {
		eg.Go(func() error {
			results[i] = p.ProcessFile(gctx, path)
			return nil
		})
	}
	// Workers never return errors; failures live in their Result.
	_ = eg.Wait()

	return &BatchResult{Results: results}
}

// ProcessFile runs the full state machine for one file on disk.
func (p *Pipeline) ProcessFile(ctx context.Context, path string) Result {
	name := filepath.Base(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return Result{File: name, State: StateFailed, Err: &Error{
			Kind: FailureUnsupportedDocument,
			File: name,
			Err:  fmt.Errorf("reading file: %w", err),
		}}
	}

	contentType, ok := contentTypeFor(path)
	if !ok {
		return Result{File: name, State: StateFailed, Err: &Error{
			Kind: FailureUnsupportedDocument,
			File: name,
			Err:  fmt.Errorf("unsupported file type %q: %w", filepath.Ext(path), scanning.ErrUnsupportedDocument),
		}}
	}

	return p.process(ctx, path, name, data, contentType)
}

// ProcessUpload runs the pipeline for in-memory content, the synchronous
// single-receipt path used by the web layer. Nothing is archived.
func (p *Pipeline) ProcessUpload(ctx context.Context, filename string, data []byte, contentType string) (*expense.Record, error) {
	result := p.process(ctx, "", filename, data, contentType)
	if result.Err != nil {
		return nil, result.Err
	}
	return result.Record, nil
}

func (p *Pipeline) process(ctx context.Context, path, name string, data []byte, contentType string) Result {
	fp := cache.Compute(data)

	record, hit, err := p.cache.Lookup(fp, scanning.ExtractorVersion)
	if err != nil {
		slog.Warn("Cache lookup failed, re-extracting", "file", name, "error", err)
	}
	if hit {
		slog.Info("Cache hit", "file", name, "fingerprint", string(fp)[:12])
		return p.finalize(Result{File: name, State: StateFinalized, Record: record, Cached: true}, path, fp)
	}

	// Extracting. OCR failures degrade to an empty hint; the model still
	// sees the image.
	ocrText := ""
	if p.ocr != nil {
		text, err := p.ocr.ExtractText(data, contentType)
		if err != nil {
			slog.Warn("OCR failed, continuing without text hint", "file", name, "error", err)
		} else {
			ocrText = strings.TrimSpace(text)
		}
	}

	scanCtx, cancel := context.WithTimeout(ctx, p.cfg.FileTimeout)
	defer cancel()

	var candidate *scanning.ReceiptData
	err = p.retry.Do(scanCtx, func() error {
		var scanErr error
		candidate, scanErr = p.scanner.ScanReceipt(scanCtx, data, contentType, ocrText)
		return scanErr
	})
	if err != nil {
		slog.Error("Extraction failed", "file", name, "error", err)
		return Result{File: name, State: StateFailed, Err: failure(name, err)}
	}

	// Classified. The classifier never fails.
	classification := expense.Classify(candidate)

	// Normalized.
	amount := decimal.NewFromFloat(candidate.Amount)
	var table *currency.Table
	if code := strings.ToUpper(strings.TrimSpace(candidate.Currency)); code != "" && code != currency.Reporting {
		table = p.rateTable(ctx)
	}
	amount, original, source, err := currency.Normalize(amount, candidate.Currency, table)
	if err != nil {
		return Result{File: name, State: StateFailed, Err: failure(name, err)}
	}

	date, err := time.Parse("2006-01-02", candidate.Date)
	if err != nil {
		return Result{File: name, State: StateFailed, Err: failure(name, fmt.Errorf("candidate date %q: %w", candidate.Date, scanning.ErrMalformedResponse))}
	}

	description := candidate.Description
	if original != nil && !strings.Contains(description, original.String()) {
		if description == "" {
			description = original.String()
		} else {
			description = fmt.Sprintf("%s (%s)", description, original)
		}
	}

	record = &expense.Record{
		Category:    classification.Category,
		Subtype:     classification.Subtype,
		Date:        date,
		Amount:      amount,
		Description: description,
		Vendor:      candidate.Vendor,
		City:        candidate.City,
		DistanceKM:  candidate.DistanceKM,
		Fingerprint: string(fp),
		NeedsReview: classification.NeedsReview,
	}
	if original != nil {
		record.OriginalAmount = &original.Amount
		record.OriginalCurrency = original.Currency
		record.RateSource = expense.RateSource(source)
	}

	// The orchestrator owns cache writes; a store failure costs a future
	// re-extraction, not this record.
	if err := p.cache.Store(fp, record, scanning.ExtractorVersion); err != nil {
		slog.Warn("Storing cache entry failed", "file", name, "error", err)
	}

	return p.finalize(Result{File: name, State: StateFinalized, Record: record}, path, fp)
}

// finalize archives a finalized receipt when configured. An archive
// failure turns the result into a Failed(archive) while keeping the
// record for inspection; the source file stays in place.
func (p *Pipeline) finalize(result Result, path string, fp cache.Fingerprint) Result {
	if !p.cfg.ArchiveOnSuccess || p.archiver == nil || path == "" {
		return result
	}

	target, err := p.archiver.Archive(path, fp, result.Record.Date)
	if err != nil {
		slog.Error("Archiving failed", "file", result.File, "error", err)
		result.State = StateFailed
		result.Err = failure(result.File, err)
		return result
	}
	result.ArchivedTo = target
	return result
}

// rateTable fetches the live exchange-rate table at most once per batch.
// The first worker needing it fetches; others block on the same Once and
// reuse the result. Unavailability falls back to the compiled-in table.
func (p *Pipeline) rateTable(ctx context.Context) *currency.Table {
	p.ratesOnce.Do(func() {
		table, err := p.rates.Fetch(ctx)
		if err != nil {
			slog.Warn("Live exchange rates unavailable, using fallback table", "error", err)
			table = currency.FallbackTable()
		} else {
			slog.Info("Loaded live exchange rates", "currencies", len(table.Rates))
		}
		p.table = table
	})
	return p.table
}

// contentTypes maps supported receipt file extensions to MIME types.
var contentTypes = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".heic": "image/heic",
	".heif": "image/heif",
}

func contentTypeFor(path string) (string, bool) {
	ct, ok := contentTypes[strings.ToLower(filepath.Ext(path))]
	return ct, ok
}

// ScanFolder lists the supported receipt files in dir, sorted by name.
func ScanFolder(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading folder: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := contentTypeFor(entry.Name()); ok {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
