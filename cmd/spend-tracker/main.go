package main

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/shopspring/decimal"

	"github.com/zombor/spend-tracker/internal/expense"
	"github.com/zombor/spend-tracker/internal/scanning"
	"github.com/zombor/spend-tracker/internal/tracker"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

// engine is a model backend that can both read and classify receipts.
type engine interface {
	scanning.Recognizer
	scanning.Classifier
	Close() error
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	// A .env file is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: loading .env: %v\n", err)
	}

	flags := ff.NewFlagSet("spend-tracker")
	var (
		port              = flags.IntLong("port", 8080, "HTTP server port")
		dbPath            = flags.StringLong("db", "spend-tracker.db", "Database file path")
		storagePath       = flags.StringLong("storage", "./receipts", "Receipt image directory path")
		ocrType           = flags.StringLong("ocr", "gemini", "OCR engine: 'gemini' or 'ollama'")
		classifierType    = flags.StringLong("classifier", "gemini", "Classifier: 'gemini', 'ollama' or 'none'")
		geminiKey         = flags.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel       = flags.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL         = flags.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaVisionModel = flags.StringLong("ollama-vision-model", "llava", "Ollama model used to read receipt images")
		ollamaTextModel   = flags.StringLong("ollama-text-model", "llama3.1", "Ollama model used to classify receipt text")
		classifyTimeout   = flags.DurationLong("classify-timeout", 30*time.Second, "Maximum time to wait for the classifier")
		budget            = flags.StringLong("budget", "1000", "Monthly spending budget")
		authUser          = flags.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass          = flags.StringLong("auth-pass", "", "Basic auth password (optional)")
		debug             = flags.BoolLong("debug", "Enable debug logging")
		showVersion       = flags.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(flags, os.Args[1:],
		ff.WithEnvVarPrefix("SPEND_TRACKER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(flags))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if *debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	monthlyBudget, err := decimal.NewFromString(*budget)
	if err != nil || monthlyBudget.IsNegative() {
		slog.Error("Invalid budget", "budget", *budget)
		os.Exit(1)
	}

	// Initialize database
	slog.Info("Initializing database...")
	db, err := expense.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	store, err := expense.OpenStore(db)
	if err != nil {
		slog.Error("Failed to load expenses", "error", err)
		os.Exit(1)
	}

	// Engines are created once and shared between OCR and classification.
	engines := map[string]engine{}
	getEngine := func(name string) engine {
		if e, ok := engines[name]; ok {
			return e
		}

		var e engine
		switch name {
		case "gemini":
			// Get Gemini API key from flag or environment
			apiKey := *geminiKey
			if apiKey == "" {
				apiKey = os.Getenv("GEMINI_API_KEY")
			}
			if apiKey == "" {
				slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
				os.Exit(1)
			}
			slog.Info("Initializing Gemini...", "model", *geminiModel)
			e, err = scanning.NewGemini(apiKey, *geminiModel)
			if err != nil {
				slog.Error("Failed to initialize Gemini", "error", err)
				os.Exit(1)
			}
		case "ollama":
			slog.Info("Initializing Ollama...", "url", *ollamaURL, "vision_model", *ollamaVisionModel, "text_model", *ollamaTextModel)
			e, err = scanning.NewOllama(*ollamaURL, *ollamaVisionModel, *ollamaTextModel)
			if err != nil {
				slog.Error("Failed to initialize Ollama", "error", err)
				os.Exit(1)
			}
		default:
			slog.Error("Invalid engine type", "type", name, "valid", "gemini or ollama")
			os.Exit(1)
		}
		engines[name] = e
		return e
	}

	recognizer := getEngine(*ocrType)

	var classifier scanning.Classifier
	if *classifierType == "none" {
		slog.Info("Classification disabled, using extracted fields only")
	} else {
		classifier = getEngine(*classifierType)
	}

	defer func() {
		for _, e := range engines {
			e.Close()
		}
	}()

	// Initialize storage
	slog.Info("Initializing storage...")
	storage, err := tracker.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	// Initialize service
	service := tracker.NewService(store, recognizer, classifier, storage, tracker.Config{
		ClassifyTimeout: *classifyTimeout,
		Budget:          monthlyBudget,
	})

	// Initialize server
	basicAuth := tracker.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := tracker.NewServer(service, basicAuth)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
