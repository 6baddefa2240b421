package scanning

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Ollama reads and classifies receipts with a local Ollama server.
type Ollama struct {
	baseURL     string
	visionModel string
	textModel   string
	client      *http.Client
}

// NewOllama creates a new Ollama client.
// visionModel must accept images (e.g. llava, qwen2.5vl); textModel only
// needs JSON mode (e.g. llama3.1).
func NewOllama(baseURL string, visionModel string, textModel string) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if visionModel == "" {
		visionModel = "llava"
	}
	if textModel == "" {
		textModel = "llama3.1"
	}

	return &Ollama{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		visionModel: visionModel,
		textModel:   textModel,
		client: &http.Client{
			Timeout: 120 * time.Second, // vision models are slow on CPU
		},
	}, nil
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   string          `json:"format,omitempty"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// Recognize reads the text of a receipt image.
func (o *Ollama) Recognize(ctx context.Context, imageData []byte, contentType string, progress ProgressFunc) (string, error) {
	reportProgress(progress, 0)
	pngData, err := preparePNG(imageData, contentType)
	if err != nil {
		return "", err
	}
	reportProgress(progress, 0.2)

	text, err := o.chat(ctx, ollamaChatRequest{
		Model: o.visionModel,
		Messages: []ollamaMessage{
			{
				Role:    "user",
				Content: recognitionPrompt,
				Images:  []string{base64.StdEncoding.EncodeToString(pngData)},
			},
		},
		Options: &ollamaOptions{Temperature: 0},
	})
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("no text recognized by ollama")
	}
	return text, nil
}

// Classify asks the text model for a JSON classification.
func (o *Ollama) Classify(ctx context.Context, rawText string) (*Classification, error) {
	text, err := o.chat(ctx, ollamaChatRequest{
		Model: o.textModel,
		Messages: []ollamaMessage{
			{Role: "system", Content: classificationPrompt},
			{Role: "user", Content: classificationContent(rawText)},
		},
		Format:  "json",
		Options: &ollamaOptions{Temperature: classificationTemperature},
	})
	if err != nil {
		return nil, err
	}
	if text == "" {
		text = "{}"
	}
	return ParseClassification(text)
}

func (o *Ollama) chat(ctx context.Context, body ollamaChatRequest) (string, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/api/chat", o.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling ollama API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, string(b))
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	return strings.TrimSpace(chatResp.Message.Content), nil
}

// Close is a no-op; the HTTP client holds no resources.
func (o *Ollama) Close() error {
	return nil
}
