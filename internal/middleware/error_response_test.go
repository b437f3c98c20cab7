package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/socialpulse/internal/model"
)

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) ErrorResponseBody {
	t.Helper()
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}

// TestStatusForCode は定義済みエラーコードとHTTPステータスの対応を検証する。
func TestStatusForCode(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{model.ErrCodeDataNotReady, http.StatusServiceUnavailable},
		{model.ErrCodeInvalidPostType, http.StatusBadRequest},
		{model.ErrCodeRefreshInProgress, http.StatusConflict},
		{model.ErrCodeRefreshTooSoon, http.StatusTooManyRequests},
		{model.ErrCodeRateLimited, http.StatusTooManyRequests},
		{model.ErrCodeInternal, http.StatusInternalServerError},
		{"UNKNOWN", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := StatusForCode(tt.code); got != tt.want {
				t.Errorf("StatusForCode(%q) = %d, want %d", tt.code, got, tt.want)
			}
		})
	}
}

// TestWriteAPIError_DataNotReady は初回スナップショット公開前の503ボディを検証する。
func TestWriteAPIError_DataNotReady(t *testing.T) {
	w := httptest.NewRecorder()

	WriteAPIError(w, model.NewDataNotReadyError())

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}
	body := decodeErrorBody(t, w)
	want := model.NewDataNotReadyError()
	if body.Code != want.Code || body.Message != want.Message || body.Category != "data" || body.Action == "" {
		t.Errorf("body = %+v, want %+v", body, want)
	}
}

// TestWriteAPIError_NilIsInternalError はnilが内部エラーとして書き込まれることを検証する。
func TestWriteAPIError_NilIsInternalError(t *testing.T) {
	w := httptest.NewRecorder()

	WriteAPIError(w, nil)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if body := decodeErrorBody(t, w); body.Code != model.ErrCodeInternal {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeInternal)
	}
}

// TestWriteAPIErrorWithRetryAfter は手動更新の間隔不足が429とRetry-Afterで返ることを検証する。
func TestWriteAPIErrorWithRetryAfter(t *testing.T) {
	w := httptest.NewRecorder()

	WriteAPIErrorWithRetryAfter(w, model.NewRefreshTooSoonError(7), 7)

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if got := w.Header().Get("Retry-After"); got != "7" {
		t.Errorf("Retry-After = %q, want %q", got, "7")
	}
	body := decodeErrorBody(t, w)
	if body.Code != model.ErrCodeRefreshTooSoon {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeRefreshTooSoon)
	}
	if !strings.Contains(body.Message, "7 seconds") {
		t.Errorf("message = %q, should contain the wait time", body.Message)
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want int
	}{
		{0, 1},
		{-time.Second, 1},
		{500 * time.Millisecond, 1},
		{time.Second, 1},
		{1200 * time.Millisecond, 2},
		{6 * time.Second, 6},
	}

	for _, tt := range tests {
		if got := RetryAfterSeconds(tt.in); got != tt.want {
			t.Errorf("RetryAfterSeconds(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

// TestWriteInternalServerError_HidesDetails は内部エラーが一般的なメッセージのみを返すことを検証する。
func TestWriteInternalServerError_HidesDetails(t *testing.T) {
	w := httptest.NewRecorder()

	WriteInternalServerError(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	body := decodeErrorBody(t, w)
	if body.Code != model.ErrCodeInternal || body.Category != "system" || body.Action == "" {
		t.Errorf("body = %+v", body)
	}
}
