package middleware

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/hitoshi/socialpulse/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 原因カテゴリと対処方法を含む。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// StatusForCode はAPIErrorコードに対応するHTTPステータスコードを返す。
// 未知のコードは500とする。
func StatusForCode(code string) int {
	switch code {
	case model.ErrCodeDataNotReady:
		return http.StatusServiceUnavailable
	case model.ErrCodeInvalidPostType:
		return http.StatusBadRequest
	case model.ErrCodeRefreshInProgress:
		return http.StatusConflict
	case model.ErrCodeRateLimited, model.ErrCodeRefreshTooSoon:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// WriteAPIError はapiErrをコードに対応するステータスで統一フォーマットとして書き込む。
// apiErrがnilの場合は内部エラーとして扱う。
func WriteAPIError(w http.ResponseWriter, apiErr *model.APIError) {
	if apiErr == nil {
		apiErr = model.NewInternalError()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusForCode(apiErr.Code))
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// WriteAPIErrorWithRetryAfter はRetry-Afterヘッダー（秒）を付けてapiErrを書き込む。
func WriteAPIErrorWithRetryAfter(w http.ResponseWriter, apiErr *model.APIError, retryAfterSec int) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	WriteAPIError(w, apiErr)
}

// RetryAfterSeconds は待ち時間をRetry-After用の秒数に切り上げる。最小値は1。
func RetryAfterSeconds(d time.Duration) int {
	sec := int(math.Ceil(d.Seconds()))
	if sec < 1 {
		return 1
	}
	return sec
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteAPIError(w, model.NewInternalError())
}
