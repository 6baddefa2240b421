package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zombor/spend-tracker/internal/analytics"
	"github.com/zombor/spend-tracker/internal/expense"
	"github.com/zombor/spend-tracker/internal/extract"
	"github.com/zombor/spend-tracker/internal/scanning"
)

// ErrClassifierDisabled is returned by Classify when no classifier is set.
var ErrClassifierDisabled = errors.New("classification is disabled")

// IDGenerator generates unique IDs for expenses
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Config tunes the capture pipeline.
type Config struct {
	// ClassifyTimeout bounds the classification call. Zero means no bound
	// beyond the request context.
	ClassifyTimeout time.Duration
	// Budget is the monthly spending budget shown on the dashboard.
	Budget decimal.Decimal
}

// Service runs receipt captures and serves the dashboard.
type Service struct {
	store       *expense.Store
	recognizer  scanning.Recognizer
	classifier  scanning.Classifier
	storage     Storage
	extractor   *extract.Extractor
	config      Config
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service. classifier may be nil, in which case
// records are built from the heuristic fields alone.
func NewService(store *expense.Store, recognizer scanning.Recognizer, classifier scanning.Classifier, storage Storage, config Config) *Service {
	return NewServiceWithDeps(store, recognizer, classifier, storage, config, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(store *expense.Store, recognizer scanning.Recognizer, classifier scanning.Classifier, storage Storage, config Config, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		store:       store,
		recognizer:  recognizer,
		classifier:  classifier,
		storage:     storage,
		extractor:   extract.New(),
		config:      config,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// image is an uploaded receipt image kept alongside its record.
type image struct {
	file        string
	contentType string
}

// Capture reads a receipt image and records the expense. observer, if not
// nil, receives recognition progress.
func (s *Service) Capture(ctx context.Context, filename string, data []byte, contentType string, observer scanning.ProgressFunc) (*expense.Record, error) {
	task := scanning.StartRecognition(ctx, s.recognizer, data, contentType)
	for p := range task.Progress() {
		slog.Debug("Recognizing receipt", "filename", filename, "progress", p)
		if observer != nil {
			observer(p)
		}
	}

	rawText, err := task.Wait()
	if err != nil {
		slog.Error("Failed to recognize receipt",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		return nil, fmt.Errorf("recognizing receipt: %w", err)
	}

	id := s.idGenerator.Generate()

	var img *image
	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		slog.Warn("Failed to store receipt image", "filename", filename, "error", err)
	} else {
		img = &image{file: savedPath, contentType: contentType}
	}

	record, err := s.capture(ctx, id, rawText, img)
	if err != nil && img != nil {
		if delErr := s.storage.Delete(img.file); delErr != nil {
			slog.Warn("Failed to delete file", "filename", img.file, "error", delErr)
		}
	}
	return record, err
}

// CaptureText records the expense for already recognized receipt text.
func (s *Service) CaptureText(ctx context.Context, rawText string) (*expense.Record, error) {
	return s.capture(ctx, s.idGenerator.Generate(), rawText, nil)
}

func (s *Service) capture(ctx context.Context, id string, rawText string, img *image) (*expense.Record, error) {
	now := s.timeSource.Now()

	fields := s.extractor.ExtractText(rawText, now)
	classified := s.classify(ctx, id, rawText)

	record := expense.Reconcile(id, fields, classified, now)
	if img != nil {
		record.ImageFile = img.file
		record.ContentType = img.contentType
	}

	if err := s.store.Append(record); err != nil {
		return nil, fmt.Errorf("saving expense: %w", err)
	}

	slog.Info("Captured expense",
		"id", record.ID,
		"merchant", record.Merchant,
		"total", record.Total.StringFixed(2),
		"date", record.Date,
		"category", record.Category,
		"classified", classified != nil,
	)
	return record, nil
}

// classify returns nil when no classification is available. Failures are
// logged and never abort the capture.
func (s *Service) classify(ctx context.Context, id string, rawText string) *scanning.Classification {
	if s.classifier == nil {
		return nil
	}

	if s.config.ClassifyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ClassifyTimeout)
		defer cancel()
	}

	classified, err := s.classifier.Classify(ctx, rawText)
	if err != nil {
		slog.Warn("Failed to classify receipt, using extracted fields", "id", id, "error", err)
		return nil
	}
	return classified
}

// Classify runs the classifier on rawText without recording anything.
func (s *Service) Classify(ctx context.Context, rawText string) (*scanning.Classification, error) {
	if s.classifier == nil {
		return nil, ErrClassifierDisabled
	}
	classified, err := s.classifier.Classify(ctx, rawText)
	if err != nil {
		return nil, fmt.Errorf("classifying receipt: %w", err)
	}
	return classified, nil
}

// ListExpenses returns all expenses, newest first.
func (s *Service) ListExpenses() []*expense.Record {
	return s.store.Records()
}

// GetExpense retrieves an expense by ID
func (s *Service) GetExpense(id string) (*expense.Record, error) {
	record, err := s.store.Get(id)
	if err != nil {
		return nil, fmt.Errorf("getting expense: %w", err)
	}
	return record, nil
}

// GetExpenseImage returns the stored image of an expense.
func (s *Service) GetExpenseImage(id string) ([]byte, string, error) {
	record, err := s.store.Get(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting expense: %w", err)
	}
	if record.ImageFile == "" {
		return nil, "", fmt.Errorf("%w: no image for %s", expense.ErrNotFound, id)
	}

	data, err := s.storage.Get(record.ImageFile)
	if err != nil {
		return nil, "", fmt.Errorf("getting expense image: %w", err)
	}
	return data, record.ContentType, nil
}

// Dashboard aggregates the current expense list.
func (s *Service) Dashboard() analytics.View {
	return analytics.Aggregate(s.store.Records(), s.timeSource.Now(), s.config.Budget)
}
