package scanning

import (
	"fmt"
	"strings"

	"github.com/zombor/spend-tracker/internal/category"
)

const classificationTemperature = 0.1

// classificationPrompt is the system instruction shared by all classifiers.
var classificationPrompt = fmt.Sprintf(`You are a receipt analysis assistant.
Extract the following fields from the text and return ONLY JSON:
- merchant (string)
- total (number, no currency symbols)
- date (YYYY-MM-DD)
- category (MUST be one of: %s)

If a field is missing, provide a logical guess or null.`, strings.Join(category.Names(), ", "))

// recognitionPrompt asks a vision model to act as a plain OCR engine.
const recognitionPrompt = `Read all text in this receipt image, top to bottom, left to right.
Return only the text exactly as printed, one printed line per line.
Do not summarize, translate, correct or format it, and do not use markdown.`

func classificationContent(rawText string) string {
	return "Receipt Text: " + rawText
}
