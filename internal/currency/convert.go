package currency

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnknownCurrency marks a currency code absent from both the live and
// the fallback table. A visible failure beats a silent 1:1 conversion.
var ErrUnknownCurrency = errors.New("unknown currency")

// Original preserves the pre-conversion amount and currency as provenance.
type Original struct {
	Amount   decimal.Decimal
	Currency string
}

func (o *Original) String() string {
	return fmt.Sprintf("%s %s", o.Amount.StringFixed(2), o.Currency)
}

// Normalize converts an amount into the reporting currency. Amounts
// already in EUR pass through unchanged with no provenance. The converted
// amount is rounded half-to-even to cents exactly once, after
// multiplication. When the table is live but lacks the code, the
// compiled-in fallback is consulted before failing. A nil table is
// treated as the fallback table.
func Normalize(amount decimal.Decimal, code string, table *Table) (decimal.Decimal, *Original, Source, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || code == Reporting {
		return amount, nil, "", nil
	}

	if table == nil {
		table = FallbackTable()
	}

	source := table.Source
	rate, ok := table.Rates[code]
	if !ok && table.Source == SourceLive {
		rate, ok = FallbackTable().Rates[code]
		source = SourceFallback
	}
	if !ok {
		return decimal.Zero, nil, "", fmt.Errorf("no rate for %q: %w", code, ErrUnknownCurrency)
	}

	converted := amount.Mul(rate).RoundBank(2)
	return converted, &Original{Amount: amount, Currency: code}, source, nil
}
