package extract

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// UnknownMerchant is used when no header line looks like a merchant name.
const UnknownMerchant = "Unknown Merchant"

const (
	merchantLines     = 3
	minMerchantLength = 3
)

// totalLine matches a total label followed by an amount with two decimals.
// Group 2 is the amount including any thousands separators.
var totalLine = regexp.MustCompile(`(?i)(TOTAL|AMOUNT|DUE|BALANCE|NET)[\s:]*[$€£¥]?\s*(\d+(?:[.,]\d{3})*[.,]\d{2})\b`)

// MatchPolicy decides which of several matching lines wins.
type MatchPolicy int

const (
	// LastMatch lets later lines overwrite earlier ones.
	LastMatch MatchPolicy = iota
	// FirstMatch keeps the first line that matched.
	FirstMatch
)

// Fields is the best-effort record recovered from receipt text.
type Fields struct {
	Merchant string
	Total    decimal.Decimal
	Date     civil.Date
	RawText  string
}

// Extractor pulls merchant, total and date out of normalized receipt lines.
type Extractor struct {
	totalPolicy MatchPolicy
	datePolicy  MatchPolicy
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithTotalPolicy overrides which total line wins (default LastMatch).
func WithTotalPolicy(p MatchPolicy) Option {
	return func(e *Extractor) { e.totalPolicy = p }
}

// WithDatePolicy overrides which date token wins (default FirstMatch).
func WithDatePolicy(p MatchPolicy) Option {
	return func(e *Extractor) { e.datePolicy = p }
}

// New creates an Extractor. The last total line and the first date token win
// unless overridden.
func New(opts ...Option) *Extractor {
	e := &Extractor{totalPolicy: LastMatch, datePolicy: FirstMatch}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractText normalizes raw and extracts its fields.
func (e *Extractor) ExtractText(raw string, capturedAt time.Time) Fields {
	f := e.Extract(Normalize(raw), capturedAt)
	f.RawText = raw
	return f
}

// Extract scans lines once. Fields that are not found fall back to
// UnknownMerchant, a zero total and the capture date.
func (e *Extractor) Extract(lines []string, capturedAt time.Time) Fields {
	f := Fields{
		Merchant: UnknownMerchant,
		Total:    decimal.Zero,
		Date:     civil.DateOf(capturedAt),
		RawText:  strings.Join(lines, "\n"),
	}

	var merchantFound, totalFound, dateFound bool
	for i, line := range lines {
		if name := strings.TrimSpace(line); !merchantFound && i < merchantLines && utf8.RuneCountInString(name) > minMerchantLength {
			f.Merchant = name
			merchantFound = true
		}

		if !totalFound || e.totalPolicy == LastMatch {
			if total, ok := matchTotal(line); ok {
				f.Total = total
				totalFound = true
			}
		}

		if !dateFound || e.datePolicy == LastMatch {
			if date, ok := matchDate(line); ok {
				f.Date = date
				dateFound = true
			}
		}
	}
	return f
}

func matchTotal(line string) (decimal.Decimal, bool) {
	m := totalLine.FindStringSubmatch(line)
	if m == nil {
		return decimal.Decimal{}, false
	}
	d, err := ParseAmount(m[2])
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// matchDate returns the first token on the line that resolves to a date.
func matchDate(line string) (civil.Date, bool) {
	for _, m := range dateToken.FindAllStringSubmatch(line, -1) {
		if d, ok := resolveDate(m[1], m[2], m[3]); ok {
			return d, true
		}
	}
	return civil.Date{}, false
}

// ParseAmount parses an amount whose final '.' or ',' is the decimal
// separator, e.g. "12,34", "1.234,56" or "1,234.56".
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	sep := strings.LastIndexAny(s, ".,")
	if sep >= 0 {
		whole := strings.NewReplacer(".", "", ",", "").Replace(s[:sep])
		s = whole + "." + s[sep+1:]
	}
	return decimal.NewFromString(s)
}
