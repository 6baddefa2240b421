package expense

import (
	"strings"
	"time"

	"github.com/zombor/spend-tracker/internal/category"
	"github.com/zombor/spend-tracker/internal/extract"
	"github.com/zombor/spend-tracker/internal/scanning"
)

// Reconcile merges the heuristic fields with an optional classification.
// Classified values win when present; category falls back to General.
func Reconcile(id string, fields extract.Fields, classified *scanning.Classification, capturedAt time.Time) *Record {
	record := &Record{
		ID:         id,
		Merchant:   strings.TrimSpace(fields.Merchant),
		Total:      fields.Total,
		Date:       fields.Date.String(),
		Category:   category.General,
		RawText:    fields.RawText,
		CapturedAt: capturedAt,
	}

	if classified != nil {
		if classified.Merchant != nil && strings.TrimSpace(*classified.Merchant) != "" {
			record.Merchant = strings.TrimSpace(*classified.Merchant)
		}
		if classified.Total != nil && !classified.Total.IsNegative() {
			record.Total = *classified.Total
		}
		if classified.Date != nil && classified.Date.IsValid() {
			record.Date = classified.Date.String()
		}
		if classified.Category != nil {
			record.Category = category.OrGeneral(string(*classified.Category))
		}
	}

	if record.Merchant == "" {
		record.Merchant = extract.UnknownMerchant
	}
	if record.Total.IsNegative() {
		record.Total = record.Total.Abs()
	}
	record.Total = record.Total.Round(2)

	return record
}
