package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/spesen-tracker/internal/cache"
	"github.com/zombor/spesen-tracker/internal/currency"
	"github.com/zombor/spesen-tracker/internal/expense"
	"github.com/zombor/spesen-tracker/internal/export"
	"github.com/zombor/spesen-tracker/internal/pipeline"
	"github.com/zombor/spesen-tracker/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("spesen")
	var (
		serve       = fs.BoolLong("serve", "Run the HTTP server instead of processing a folder")
		port        = fs.IntLong("port", 8080, "HTTP server port")
		dbPath      = fs.StringLong("db", "spesen.db", "Expense report database file path")
		cachePath   = fs.StringLong("cache", "beleg-cache.db", "Extraction cache file path")
		noCache     = fs.BoolLong("no-cache", "Bypass the extraction cache and reprocess every receipt")
		name        = fs.StringLong("name", "", "Name for the expense report")
		monat       = fs.StringLong("monat", "", "Reporting month label, e.g. 'Nov 2025'")
		archive     = fs.BoolLong("archive", "Move processed receipts into the archive tree")
		archiveDir  = fs.StringLong("archive-dir", "belege/archiv", "Archive base directory")
		exportDir   = fs.StringLong("export-dir", "exports", "Export base directory")
		noExport    = fs.BoolLong("no-export", "Skip the Excel export")
		workers     = fs.IntLong("workers", 3, "Parallel receipt workers")
		scannerType = fs.StringLong("scanner", "gemini", "Scanner type: 'gemini' or 'ollama'")
		geminiKey   = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL   = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel = fs.StringLong("ollama-model", "llava", "Ollama model name")
		noOCR       = fs.BoolLong("no-ocr", "Skip the Tesseract OCR text hint")
		authUser    = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass    = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("SPESEN"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Configuration problems are fatal before any file is touched.
	db, err := expense.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	extractionCache, err := cache.Open(*cachePath)
	if err != nil {
		slog.Error("Failed to open extraction cache", "error", err)
		os.Exit(1)
	}
	defer extractionCache.Close()
	extractionCache.Bypass = *noCache

	var scanner scanning.Scanner
	switch *scannerType {
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		scanner, err = scanning.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
	case "ollama":
		scanner, err = scanning.NewOllama(*ollamaURL, *ollamaModel)
		if err != nil {
			slog.Error("Failed to initialize Ollama", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid scanner type", "type", *scannerType, "valid", "gemini or ollama")
		os.Exit(1)
	}
	defer scanner.Close()

	var ocr scanning.TextExtractor = scanning.NewTesseract()
	if *noOCR {
		ocr = scanning.NoOCR{}
	}

	var archiver pipeline.FileArchiver
	if *archive {
		archiver = &pipeline.Archiver{Root: *archiveDir}
	}

	pipe := pipeline.New(scanner, ocr, extractionCache, currency.NewECBProvider(), archiver, pipeline.Config{
		Workers:          *workers,
		ArchiveOnSuccess: *archive,
	})

	if *serve {
		runServer(pipe, db, *port, *authUser, *authPass)
		return
	}

	args := fs.GetArgs()
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintln(os.Stderr, "error: exactly one receipts folder is required")
		os.Exit(1)
	}

	os.Exit(runBatch(pipe, db, args[0], *name, *monat, *exportDir, *noExport))
}

func runBatch(pipe *pipeline.Pipeline, db expense.DB, folder, name, monat, exportDir string, noExport bool) int {
	files, err := pipeline.ScanFolder(folder)
	if err != nil {
		slog.Error("Failed to scan folder", "folder", folder, "error", err)
		return 1
	}
	if len(files) == 0 {
		slog.Error("No receipts found", "folder", folder)
		return 1
	}
	slog.Info("Processing receipts", "folder", folder, "count", len(files))

	result := pipe.ProcessBatch(context.Background(), files)

	slog.Info("Batch finished",
		"cached", result.CachedCount(),
		"extracted", result.ExtractedCount(),
		"failed", len(result.Failures()),
	)
	for _, failed := range result.Failures() {
		slog.Error("Receipt failed", "file", failed.File, "kind", failed.Err.Kind, "cause", failed.Err.Err)
	}

	records := result.Records()
	if len(records) == 0 {
		slog.Error("No receipts processed")
		return 1
	}

	if _, err := db.AppendRecords(name, monat, records); err != nil {
		slog.Error("Failed to save expense report", "error", err)
		return 1
	}

	if !noExport {
		year, month := expense.ParseMonthLabel(monat)
		dir := filepath.Join(exportDir, filepath.FromSlash(expense.MonthDir(year, month)))
		if err := os.MkdirAll(dir, 0755); err != nil {
			slog.Error("Failed to create export directory", "error", err)
			return 1
		}

		label := monat
		if label == "" {
			label = fmt.Sprintf("%d_%02d", year, month)
		}
		path := filepath.Join(dir, fmt.Sprintf("Spesen_%s.xlsx", strings.ReplaceAll(label, " ", "_")))

		total, err := export.WriteExcel(path, export.Meta{Name: name, Monat: monat}, records)
		if err != nil {
			slog.Error("Excel export failed", "error", err)
			return 1
		}
		slog.Info("Excel exported", "path", path, "total_eur", total.StringFixed(2))
	}

	return 0
}

func runServer(pipe *pipeline.Pipeline, db expense.DB, port int, authUser, authPass string) {
	server := expense.NewServer(pipe, db, expense.BasicAuth{
		Username: authUser,
		Password: authPass,
	})

	addr := fmt.Sprintf(":%d", port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
