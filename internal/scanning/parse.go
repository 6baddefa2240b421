package scanning

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/zombor/spend-tracker/internal/category"
	"github.com/zombor/spend-tracker/internal/extract"
)

// dateLayouts are tried in order for model supplied dates.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"02-01-2006",
}

// ParseClassification validates a model answer. Every field is checked on
// its own and degrades to nil when it has the wrong shape, so a partly
// usable answer is still returned.
func ParseClassification(text string) (*Classification, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("%w: no JSON object found", ErrMalformedResponse)
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx < startIdx {
		return nil, fmt.Errorf("%w: unterminated JSON object", ErrMalformedResponse)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text[startIdx:endIdx+1]), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return &Classification{
		Merchant: parseMerchant(fields["merchant"]),
		Total:    parseTotal(fields["total"]),
		Date:     parseDate(fields["date"]),
		Category: parseCategory(fields["category"]),
	}, nil
}

func parseString(raw json.RawMessage) (string, bool) {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

func parseMerchant(raw json.RawMessage) *string {
	s, ok := parseString(raw)
	if !ok {
		return nil
	}
	return &s
}

func parseTotal(raw json.RawMessage) *decimal.Decimal {
	if len(raw) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}

	var (
		d   decimal.Decimal
		err error
	)
	switch t := v.(type) {
	case json.Number:
		d, err = decimal.NewFromString(t.String())
	case string:
		d, err = extract.ParseAmount(strings.Trim(t, "$€£¥ "))
	default:
		return nil
	}
	if err != nil || d.IsNegative() {
		return nil
	}
	return &d
}

func parseDate(raw json.RawMessage) *civil.Date {
	s, ok := parseString(raw)
	if !ok {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := civil.DateOf(t)
			return &d
		}
	}
	return nil
}

func parseCategory(raw json.RawMessage) *category.Category {
	s, ok := parseString(raw)
	if !ok {
		return nil
	}
	c, ok := category.Parse(s)
	if !ok {
		return nil
	}
	return &c
}
