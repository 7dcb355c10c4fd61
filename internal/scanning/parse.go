package scanning

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// receiptSchema is the closed schema a model response must satisfy. The
// category field is validated separately against the taxonomy by the
// classifier; here it only has to be a string when present.
const receiptSchema = `{
	"type": "object",
	"required": ["date", "amount", "currency"],
	"properties": {
		"date": {"type": "string", "minLength": 1},
		"amount": {"type": "number", "minimum": 0},
		"currency": {"type": "string", "minLength": 3, "maxLength": 3},
		"category": {"type": ["string", "null"]},
		"subtype": {"type": ["string", "null"]},
		"description": {"type": ["string", "null"]},
		"vendor": {"type": ["string", "null"]},
		"city": {"type": ["string", "null"]},
		"distance_km": {"type": ["number", "null"]},
		"unreadable": {"type": ["boolean", "null"]}
	}
}`

var compiledReceiptSchema = jsonschema.MustCompileString("receipt.json", receiptSchema)

// dateFormats are tried in order when normalizing the extracted date.
var dateFormats = []string{
	"2006-01-02",
	"02.01.2006",
	"02.01.06",
	"2006/01/02",
	"01/02/2006",
	"02-01-2006",
}

// parseReceiptJSON parses and validates the JSON response from the model.
// Responses that are present but do not satisfy the schema yield
// ErrMalformedResponse; a response the model itself marked unreadable
// yields ErrUnsupportedDocument.
func parseReceiptJSON(text string) (*ReceiptData, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "{")
	endIdx := strings.LastIndex(text, "}")
	if startIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("no JSON object in response: %w", ErrMalformedResponse)
	}
	text = text[startIdx : endIdx+1]

	var unreadableProbe struct {
		Unreadable bool `json:"unreadable"`
	}
	if err := json.Unmarshal([]byte(text), &unreadableProbe); err == nil && unreadableProbe.Unreadable {
		return nil, fmt.Errorf("model marked receipt unreadable: %w", ErrUnsupportedDocument)
	}

	var raw any
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %v: %w", err, ErrMalformedResponse)
	}
	if err := compiledReceiptSchema.Validate(raw); err != nil {
		return nil, fmt.Errorf("response schema: %v: %w", err, ErrMalformedResponse)
	}

	var data ReceiptData
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return nil, fmt.Errorf("unmarshaling receipt: %v: %w", err, ErrMalformedResponse)
	}

	date, err := normalizeDate(data.Date)
	if err != nil {
		return nil, fmt.Errorf("date %q: %v: %w", data.Date, err, ErrMalformedResponse)
	}
	data.Date = date

	data.Currency = strings.ToUpper(strings.TrimSpace(data.Currency))
	data.Category = strings.TrimSpace(data.Category)
	data.Vendor = strings.TrimSpace(data.Vendor)
	data.Description = strings.TrimSpace(data.Description)
	if data.Description == "" {
		data.Description = data.Vendor
	}

	return &data, nil
}

// normalizeDate converts any accepted date format to ISO 8601.
func normalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, format := range dateFormats {
		if d, err := time.Parse(format, s); err == nil {
			return d.Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("unrecognized date format")
}
