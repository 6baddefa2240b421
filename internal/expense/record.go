package expense

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zombor/spend-tracker/internal/category"
)

// ErrNotFound is returned when no record has the requested id.
var ErrNotFound = errors.New("expense not found")

// Record is one reconciled receipt capture.
type Record struct {
	ID          string            `json:"id"`
	Merchant    string            `json:"merchant"`
	Total       decimal.Decimal   `json:"total"`
	Date        string            `json:"date"` // YYYY-MM-DD
	Category    category.Category `json:"category"`
	RawText     string            `json:"rawText"`
	CapturedAt  time.Time         `json:"capturedAt"`
	ImageFile   string            `json:"imageFile,omitempty"`
	ContentType string            `json:"contentType,omitempty"`
}
