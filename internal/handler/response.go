package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/socialpulse/internal/middleware"
	"github.com/hitoshi/socialpulse/internal/model"
	"github.com/hitoshi/socialpulse/internal/snapshot"
)

// writeJSON はステータスコードとJSONボディを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// handleServiceError はサービス層のエラーを統一フォーマットのレスポンスに変換する。
// 想定外のエラーはloggerに記録し、詳細を返さずに500とする。
func handleServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var (
		tooSoon *snapshot.RefreshTooSoonError
		apiErr  *model.APIError
	)
	switch {
	case errors.Is(err, snapshot.ErrNotReady):
		middleware.WriteAPIError(w, model.NewDataNotReadyError())
	case errors.Is(err, snapshot.ErrRefreshInProgress):
		middleware.WriteAPIError(w, model.NewRefreshInProgressError())
	case errors.As(err, &tooSoon):
		sec := middleware.RetryAfterSeconds(tooSoon.RetryAfter)
		middleware.WriteAPIErrorWithRetryAfter(w, model.NewRefreshTooSoonError(sec), sec)
	case errors.As(err, &apiErr):
		middleware.WriteAPIError(w, apiErr)
	default:
		logger.Error("internal server error", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
	}
}

// loggerOrDefault はnilの場合にslog.Default()を返す。
func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
