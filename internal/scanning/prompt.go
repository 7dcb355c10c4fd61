package scanning

import "fmt"

// receiptScanPrompt is the shared prompt used by all model providers. The
// category identifiers must stay in sync with the expense taxonomy.
const receiptScanPrompt = `You are analyzing a receipt or invoice document. Carefully read all text in the image and extract the expense data.

Categories (use exactly one of these identifiers):
- fahrtkosten_kfz: fuel receipts, petrol, diesel
- fahrtkosten_pauschale: tickets, public transit, train, bus
- bewirtung: restaurant, bar, café
- fachliteratur: books, technical literature
- bueromaterial: office supplies
- telefonkosten: phone, prepaid credit
- software: software licenses
- getraenke: drinks for the office
- sonstiges: parking, taxi, Uber, hotel, everything else

For sonstiges set "subtype" accordingly:
- "Uber" for Uber, Bolt or similar ride-sharing services
- "Taxi" for a classic taxi
- "Parken" for parking fees
- "Hotel" for accommodation
- "Sonstiges" for everything else

Return ONLY valid JSON in this exact format:
{
  "date": "YYYY-MM-DD",
  "amount": 123.45,
  "currency": "EUR",
  "category": "sonstiges",
  "subtype": "Uber",
  "description": "Short description",
  "vendor": "Name of the business",
  "city": "Frankfurt",
  "distance_km": 10.73
}

Important:
- Detect the currency from the receipt (EUR, CHF, USD, GBP, DKK, ...)
- Use the GRAND TOTAL including VAT; for Uber/Taxi the "Gesamtbetrag" is the right value
- For Uber/Taxi extract the city from the vendor address and the trip distance in km when present
- The amount must be a number (not a string)
- If the document is not readable as a receipt at all, return {"unreadable": true}
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

// buildPrompt appends the OCR text hint to the scan prompt when available.
func buildPrompt(ocrText string) string {
	if ocrText == "" {
		return receiptScanPrompt
	}
	return fmt.Sprintf("%s\n\nOCR text recognized from the document (may contain errors, use as a hint):\n%s", receiptScanPrompt, ocrText)
}
