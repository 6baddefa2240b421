package scanning

import (
	"context"
	"encoding/json"
	"errors"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/zombor/spend-tracker/internal/category"
)

// ErrMalformedResponse is returned when a model answer is not a JSON object.
var ErrMalformedResponse = errors.New("malformed model response")

// ProgressFunc receives recognition progress as a fraction in [0, 1].
type ProgressFunc func(fraction float64)

// Recognizer turns a receipt image into text.
type Recognizer interface {
	// Recognize reads all text in the image. progress may be nil.
	Recognize(ctx context.Context, imageData []byte, contentType string, progress ProgressFunc) (string, error)
}

// Classifier turns receipt text into structured fields.
type Classifier interface {
	// Classify returns the fields the model could determine. A nil field
	// means the model did not know or answered with an invalid value.
	Classify(ctx context.Context, rawText string) (*Classification, error)
}

// Classification is the validated model answer for one receipt.
type Classification struct {
	Merchant *string
	Total    *decimal.Decimal
	Date     *civil.Date
	Category *category.Category
}

// MarshalJSON writes the classification with total as a JSON number and
// unknown fields as null.
func (c Classification) MarshalJSON() ([]byte, error) {
	var total *json.Number
	if c.Total != nil {
		n := json.Number(c.Total.String())
		total = &n
	}
	return json.Marshal(struct {
		Merchant *string            `json:"merchant"`
		Total    *json.Number       `json:"total"`
		Date     *civil.Date        `json:"date"`
		Category *category.Category `json:"category"`
	}{c.Merchant, total, c.Date, c.Category})
}

func reportProgress(progress ProgressFunc, fraction float64) {
	if progress != nil {
		progress(fraction)
	}
}
