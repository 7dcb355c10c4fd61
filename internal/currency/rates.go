package currency

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// Reporting is the single currency all finalized records are expressed in.
const Reporting = "EUR"

// Source records where a rate table came from, kept as provenance on
// converted records for audit.
type Source string

const (
	SourceLive     Source = "live"
	SourceFallback Source = "fallback"
)

// Table maps currency codes to their rate into the reporting currency.
type Table struct {
	Rates     map[string]decimal.Decimal
	FetchedAt time.Time
	Source    Source
}

// Provider fetches live exchange rates. Unavailability is expected and
// handled by falling back to the compiled-in table, not exceptional.
type Provider interface {
	Fetch(ctx context.Context) (*Table, error)
}

// fallbackRates are compiled-in rates to EUR, used when the live source is
// unreachable. Snapshot from December 2024.
var fallbackRates = map[string]string{
	"EUR": "1.0",
	"USD": "0.95",
	"GBP": "1.17",
	"CHF": "1.06",
	"DKK": "0.134",
	"SEK": "0.088",
	"NOK": "0.085",
	"PLN": "0.23",
	"CZK": "0.040",
	"HUF": "0.0025",
	"RON": "0.20",
	"BGN": "0.51",
	"HRK": "0.133",
	"JPY": "0.0063",
	"CNY": "0.13",
	"AUD": "0.61",
	"CAD": "0.68",
}

// FallbackTable returns the compiled-in rate table.
func FallbackTable() *Table {
	rates := make(map[string]decimal.Decimal, len(fallbackRates))
	for code, rate := range fallbackRates {
		rates[code] = decimal.RequireFromString(rate)
	}
	return &Table{Rates: rates, FetchedAt: time.Now().UTC(), Source: SourceFallback}
}

const ecbRatesURL = "https://www.ecb.europa.eu/stats/eurofxref/eurofxref-daily.xml"

// ECBProvider fetches the daily reference rates published by the European
// Central Bank. Free, no API key.
type ECBProvider struct {
	URL    string
	Client *http.Client
}

// NewECBProvider creates a provider with a short timeout; a slow rate
// source must not stall a batch.
func NewECBProvider() *ECBProvider {
	return &ECBProvider{
		URL:    ecbRatesURL,
		Client: &http.Client{Timeout: 5 * time.Second},
	}
}

// ecbEnvelope matches the daily eurofxref XML document.
type ecbEnvelope struct {
	Cubes []struct {
		Currency string `xml:"currency,attr"`
		Rate     string `xml:"rate,attr"`
	} `xml:"Cube>Cube>Cube"`
}

// Fetch retrieves and parses the current ECB rates. The ECB publishes
// EUR→foreign rates; they are inverted into foreign→EUR here.
func (p *ECBProvider) Fetch(ctx context.Context) (*Table, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", p.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating rates request: %w", err)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching ECB rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ECB rates endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading rates response: %w", err)
	}

	var envelope ecbEnvelope
	if err := xml.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("parsing rates XML: %w", err)
	}

	one := decimal.NewFromInt(1)
	rates := map[string]decimal.Decimal{Reporting: one}
	for _, cube := range envelope.Cubes {
		rate, err := decimal.NewFromString(cube.Rate)
		if err != nil || rate.IsZero() {
			continue
		}
		rates[cube.Currency] = one.Div(rate)
	}

	// Sanity check: a valid daily document carries dozens of currencies.
	if len(rates) < 5 {
		return nil, fmt.Errorf("ECB rates document had only %d currencies", len(rates))
	}

	return &Table{Rates: rates, FetchedAt: time.Now().UTC(), Source: SourceLive}, nil
}
