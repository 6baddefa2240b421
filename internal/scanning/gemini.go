package scanning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	geminiRecognizeTimeout = 60 * time.Second
	defaultGeminiModel     = "gemini-2.5-flash"
)

// Gemini reads and classifies receipts with Google Gemini.
type Gemini struct {
	client     *genai.Client
	reader     *genai.GenerativeModel
	classifier *genai.GenerativeModel
}

// NewGemini creates a Gemini client used for both recognition and
// classification.
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = defaultGeminiModel
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	reader := client.GenerativeModel(modelName)
	reader.SetTemperature(0)

	classifier := client.GenerativeModel(modelName)
	classifier.SetTemperature(classificationTemperature)
	classifier.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(classificationPrompt)},
	}

	return &Gemini{
		client:     client,
		reader:     reader,
		classifier: classifier,
	}, nil
}

// Recognize reads the text of a receipt image.
func (g *Gemini) Recognize(ctx context.Context, imageData []byte, contentType string, progress ProgressFunc) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, geminiRecognizeTimeout)
	defer cancel()

	reportProgress(progress, 0)
	pngData, err := preparePNG(imageData, contentType)
	if err != nil {
		return "", err
	}
	reportProgress(progress, 0.2)

	// genai.ImageData takes the format suffix, not the full MIME type.
	resp, err := g.reader.GenerateContent(ctx, genai.ImageData("png", pngData), genai.Text(recognitionPrompt))
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return "", fmt.Errorf("no text recognized by gemini")
	}
	return text, nil
}

// Classify sends the receipt text to Gemini in JSON mode. An empty answer
// is treated as an empty object.
func (g *Gemini) Classify(ctx context.Context, rawText string) (*Classification, error) {
	resp, err := g.classifier.GenerateContent(ctx, genai.Text(classificationContent(rawText)))
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		text = "{}"
	}
	return ParseClassification(text)
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return strings.TrimSpace(sb.String())
}
