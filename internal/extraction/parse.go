package extraction

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// parseInvoiceJSON parses the JSON response returned by a provider and
// validates the mandatory fields. Vendor, totalAmount and currency must be
// present; a response missing any of them is an extraction failure.
func parseInvoiceJSON(text string) (*InvoiceData, error) {
	text = strings.TrimSpace(text)

	// Remove markdown code blocks if present
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	// Find the JSON object boundaries - look for first { and last }
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}

	text = text[startIdx : endIdx+1]

	var data InvoiceData
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	data.Vendor = strings.TrimSpace(data.Vendor)
	if data.Vendor == "" {
		return nil, fmt.Errorf("response is missing vendor")
	}
	if data.TotalAmount == nil {
		return nil, fmt.Errorf("response is missing totalAmount")
	}
	data.Currency = strings.ToUpper(strings.TrimSpace(data.Currency))
	if data.Currency == "" {
		return nil, fmt.Errorf("response is missing currency")
	}

	// Dates are optional; drop anything that cannot be normalized rather than
	// exporting a malformed value.
	data.Date = normalizeDate(data.Date)
	data.DueDate = normalizeDate(data.DueDate)

	data.InvoiceNumber = strings.TrimSpace(data.InvoiceNumber)
	data.PurchaseOrder = strings.TrimSpace(data.PurchaseOrder)
	data.Description = strings.TrimSpace(data.Description)

	return &data, nil
}

// normalizeDate converts a date string to ISO 8601 (YYYY-MM-DD). Models
// occasionally answer with a local format even when asked for ISO, so a few
// common layouts are tried before giving up and returning "".
func normalizeDate(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}

	formats := []string{
		"2006-01-02",
		"2006/01/02",
		"02/01/2006",
		"01/02/2006",
		"02-01-2006",
	}
	for _, format := range formats {
		if d, err := time.Parse(format, value); err == nil {
			return d.Format("2006-01-02")
		}
	}
	return ""
}
