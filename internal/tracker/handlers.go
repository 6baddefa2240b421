package tracker

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/zombor/spend-tracker/internal/expense"
)

// maxUploadSize bounds multipart uploads; phone photos are large.
const maxUploadSize = int64(50 << 20)

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// writeJSON encodes v with the given status
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// jsonError writes {"error": message} with CORS headers set
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	writeJSON(w, code, map[string]string{"error": message})
}

type textRequest struct {
	RawText string `json:"rawText"`
}

func decodeTextRequest(r *http.Request) (string, bool) {
	var req textRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", false
	}
	return req.RawText, true
}

// handleIndex serves the HTML interface
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// handleCapture reads an uploaded receipt image and records it
func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			errorMsg = "File is too large. Maximum size is 50MB. Please compress or resize your image."
		}
		jsonError(w, errorMsg, http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		errorMsg := "No file provided"
		if errors.Is(err, http.ErrMissingFile) {
			errorMsg = "No file was selected. Please choose a file to upload."
		}
		jsonError(w, errorMsg, http.StatusBadRequest)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = contentTypeFromExt(header.Filename)
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))

	record, err := s.service.Capture(r.Context(), header.Filename, data, contentType, nil)
	if err != nil {
		slog.Error("Error capturing receipt", "filename", header.Filename, "error", err)
		jsonError(w, "Could not read the receipt. Please try a clearer image.", http.StatusUnprocessableEntity)
		return
	}

	writeJSON(w, http.StatusCreated, record)
}

func contentTypeFromExt(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

// handleCaptureText records an expense from already recognized text
func (s *Server) handleCaptureText(w http.ResponseWriter, r *http.Request) {
	rawText, ok := decodeTextRequest(r)
	if !ok {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	record, err := s.service.CaptureText(r.Context(), rawText)
	if err != nil {
		slog.Error("Error capturing receipt text", "error", err)
		jsonError(w, "Error saving expense", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, record)
}

// handleClassify returns the model classification for receipt text
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	rawText, ok := decodeTextRequest(r)
	if !ok {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	classified, err := s.service.Classify(r.Context(), rawText)
	if err != nil {
		slog.Error("Error classifying receipt", "error", err)
		jsonError(w, "Failed to classify", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, classified)
}

// handleListExpenses returns all expenses, newest first
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.ListExpenses())
}

// handleGetExpense returns a single expense
func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	record, err := s.service.GetExpense(r.PathValue("id"))
	if err != nil {
		corsError(w, "Expense not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// handleGetExpenseImage returns the receipt image of an expense
func (s *Server) handleGetExpenseImage(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetExpenseImage(r.PathValue("id"))
	if err != nil {
		if !errors.Is(err, expense.ErrNotFound) {
			slog.Error("Error reading expense image", "error", err)
		}
		corsError(w, "File not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleAnalytics returns the dashboard metrics
func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Dashboard())
}
