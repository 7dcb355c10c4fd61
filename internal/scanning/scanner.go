package scanning

import (
	"context"
	"errors"
)

// ExtractorVersion tags cache entries with the extraction logic revision.
// Bump it when the prompt, schema, or parsing rules change so stale cache
// entries are re-extracted.
const ExtractorVersion = "v2"

var (
	// ErrMalformedResponse marks a model response that does not match the
	// expected schema. Not retryable.
	ErrMalformedResponse = errors.New("malformed model response")

	// ErrUnsupportedDocument marks content that cannot be read as a receipt.
	// Not retryable; callers should skip the file rather than alarm.
	ErrUnsupportedDocument = errors.New("unsupported document")
)

// ReceiptData is the candidate record extracted from a receipt. Date is
// normalized to ISO 8601 (YYYY-MM-DD) during parsing.
type ReceiptData struct {
	Date        string  `json:"date"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Category    string  `json:"category"`
	Subtype     string  `json:"subtype"`
	Description string  `json:"description"`
	Vendor      string  `json:"vendor"`
	City        string  `json:"city"`
	DistanceKM  float64 `json:"distance_km"`
	Unreadable  bool    `json:"unreadable"`
}

// Scanner defines the interface for receipt extraction operations.
type Scanner interface {
	// ScanReceipt analyzes a receipt image/PDF and extracts a candidate
	// record. ocrText is an optional recognition hint and may be empty.
	ScanReceipt(ctx context.Context, imageData []byte, contentType, ocrText string) (*ReceiptData, error)
	// Close closes the scanner and releases resources
	Close() error
}

// TextExtractor extracts raw text from a receipt image as a hint for the
// model. Implementations may fail; callers degrade to an empty hint.
type TextExtractor interface {
	ExtractText(imageData []byte, contentType string) (string, error)
}
