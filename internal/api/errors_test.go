package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sanghalabs/kindred/internal/middleware"
)

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response body: %v, body: %s", err, w.Body.String())
	}
	return resp
}

func TestWriteError_Envelope(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, context.Background(), http.StatusNotFound, ErrCodeNotFound, "Profile not found")

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Errorf("expected JSON content type, got %s", ct)
	}

	resp := decodeErrorBody(t, w)
	if resp.Error.Code != ErrCodeNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeNotFound, resp.Error.Code)
	}
	if resp.Error.Message != "Profile not found" {
		t.Errorf("expected message 'Profile not found', got %s", resp.Error.Message)
	}

	// The envelope is exactly {"error":{"code","message"}}.
	var generic map[string]map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &generic); err != nil {
		t.Fatalf("failed to reparse response: %v", err)
	}
	if len(generic) != 1 {
		t.Errorf("expected only the error key, got %v", generic)
	}
	if inner := generic["error"]; len(inner) != 2 {
		t.Errorf("expected code and message fields, got %v", inner)
	}
}

func TestWriteError_AllCodes(t *testing.T) {
	tests := []struct {
		code    string
		status  int
		message string
	}{
		{ErrCodeValidation, http.StatusBadRequest, "Invalid input"},
		{ErrCodeAuthFailed, http.StatusUnauthorized, "Authentication required"},
		{ErrCodeNotFound, http.StatusNotFound, "Resource not found"},
		{ErrCodeRateLimited, http.StatusTooManyRequests, "Too many requests"},
		{ErrCodeInternal, http.StatusInternalServerError, "Internal server error"},
		{ErrCodeForbidden, http.StatusForbidden, "Access denied"},
		{ErrCodeConflict, http.StatusConflict, "Resource already exists"},
		{ErrCodeBadRequest, http.StatusBadRequest, "Malformed request"},
		{ErrCodeMissingProfile, http.StatusPreconditionFailed, "Create a profile before requesting matches"},
		{ErrCodeInvalidRating, http.StatusBadRequest, "Rating must be between 1 and 5"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, context.Background(), tt.status, tt.code, tt.message)

			if w.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, w.Code)
			}
			resp := decodeErrorBody(t, w)
			if resp.Error.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, resp.Error.Code)
			}
			if resp.Error.Message != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, resp.Error.Message)
			}
		})
	}
}

func TestStatusCodeMapping(t *testing.T) {
	tests := []struct {
		code       string
		wantStatus int
	}{
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeInvalidRating, http.StatusBadRequest},
		{ErrCodeAuthFailed, http.StatusUnauthorized},
		{ErrCodeForbidden, http.StatusForbidden},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeConflict, http.StatusConflict},
		{ErrCodeMissingProfile, http.StatusPreconditionFailed},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		{ErrCodeInternal, http.StatusInternalServerError},
		{"unknown_code", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := StatusCodeMapping(tt.code); got != tt.wantStatus {
				t.Errorf("StatusCodeMapping(%s) = %d, want %d", tt.code, got, tt.wantStatus)
			}
		})
	}
}

func TestWriteError_ErrorCodeReachesRequestLog(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	handler := middleware.Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeMissingProfile)
		WriteError(w, ctx, http.StatusPreconditionFailed, ErrCodeMissingProfile, "Create a profile before requesting matches")
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/matches/run", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusPreconditionFailed {
		t.Errorf("expected status 412, got %d", w.Code)
	}

	var entry struct {
		Level     string `json:"level"`
		Status    int    `json:"status"`
		ErrorCode string `json:"error_code"`
	}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log entry: %v, log: %s", err, buf.String())
	}
	if entry.Status != http.StatusPreconditionFailed {
		t.Errorf("expected logged status 412, got %d", entry.Status)
	}
	if entry.Level != "WARN" {
		t.Errorf("expected log level WARN for 4xx, got %s", entry.Level)
	}
	if entry.ErrorCode != ErrCodeMissingProfile {
		t.Errorf("expected error_code %s in log, got %s", ErrCodeMissingProfile, entry.ErrorCode)
	}
}

func TestWriteError_RequestIDInLog(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	handler := middleware.RequestID(
		middleware.Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
			WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Invalid token")
		})),
	)

	req := httptest.NewRequest(http.MethodPost, "/v1/matches/run", nil)
	req.Header.Set(middleware.RequestIDHeader, "run-req-123")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", w.Code)
	}

	var entry struct {
		RequestID string `json:"request_id"`
		ErrorCode string `json:"error_code"`
	}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log entry: %v", err)
	}
	if entry.RequestID != "run-req-123" {
		t.Errorf("expected request_id run-req-123 in log, got %s", entry.RequestID)
	}
	if entry.ErrorCode != ErrCodeAuthFailed {
		t.Errorf("expected error_code %s in log, got %s", ErrCodeAuthFailed, entry.ErrorCode)
	}
}

func TestWriteError_MessageEdgeCases(t *testing.T) {
	tests := []struct {
		name    string
		message string
	}{
		{"empty message", ""},
		{"quotes and markup", `Error with "quotes", <brackets> & ampersands`},
		{"emoji", "Profile incomplete 🪷"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, context.Background(), http.StatusBadRequest, ErrCodeValidation, tt.message)

			resp := decodeErrorBody(t, w)
			if resp.Error.Message != tt.message {
				t.Errorf("message round-trip failed: got %q, want %q", resp.Error.Message, tt.message)
			}
		})
	}
}
