package expense

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateSource records how a converted amount was derived.
type RateSource string

const (
	RateSourceLive     RateSource = "live"
	RateSourceFallback RateSource = "fallback"
)

// Record is a finalized expense entry in the reporting currency (EUR).
// OriginalAmount and OriginalCurrency are set together when the receipt
// was issued in a foreign currency, and absent otherwise.
type Record struct {
	Category         Category         `json:"category"`
	Subtype          string           `json:"subtype,omitempty"`
	Date             time.Time        `json:"date"`
	Amount           decimal.Decimal  `json:"amount"`
	OriginalAmount   *decimal.Decimal `json:"original_amount,omitempty"`
	OriginalCurrency string           `json:"original_currency,omitempty"`
	RateSource       RateSource       `json:"rate_source,omitempty"`
	Description      string           `json:"description"`
	Vendor           string           `json:"vendor"`
	City             string           `json:"city,omitempty"`
	DistanceKM       float64          `json:"distance_km,omitempty"`
	Fingerprint      string           `json:"fingerprint"`
	NeedsReview      bool             `json:"needs_review,omitempty"`
}

// Equal reports deep equality of two records. Decimal fields are compared
// by value, not representation, so 92 and 92.00 are equal.
func (r *Record) Equal(other *Record) bool {
	if r == nil || other == nil {
		return r == other
	}
	if r.Category != other.Category ||
		r.Subtype != other.Subtype ||
		!r.Date.Equal(other.Date) ||
		!r.Amount.Equal(other.Amount) ||
		r.OriginalCurrency != other.OriginalCurrency ||
		r.RateSource != other.RateSource ||
		r.Description != other.Description ||
		r.Vendor != other.Vendor ||
		r.City != other.City ||
		r.DistanceKM != other.DistanceKM ||
		r.Fingerprint != other.Fingerprint ||
		r.NeedsReview != other.NeedsReview {
		return false
	}
	if (r.OriginalAmount == nil) != (other.OriginalAmount == nil) {
		return false
	}
	if r.OriginalAmount != nil && !r.OriginalAmount.Equal(*other.OriginalAmount) {
		return false
	}
	return true
}
