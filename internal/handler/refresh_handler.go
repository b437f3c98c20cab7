package handler

import (
	"context"
	"log/slog"
	"net/http"
)

// RefreshStarter は手動更新の開始に必要なインターフェース。
type RefreshStarter interface {
	// StartRefresh は更新をバックグラウンドで開始する。
	// 実行中ならErrRefreshInProgress、最小間隔内なら*RefreshTooSoonErrorを返す。
	StartRefresh(ctx context.Context) error
}

// RefreshHandler は手動更新のHTTPハンドラー。
type RefreshHandler struct {
	refresher RefreshStarter
	logger    *slog.Logger
}

// NewRefreshHandler はRefreshHandlerを生成する。loggerがnilの場合はslog.Default()を使用する。
func NewRefreshHandler(refresher RefreshStarter, logger *slog.Logger) *RefreshHandler {
	return &RefreshHandler{refresher: refresher, logger: loggerOrDefault(logger)}
}

type refreshResponse struct {
	Status string `json:"status"`
}

// Refresh はPOST /api/refresh を処理する。
// 更新の完了は待たず、受け付けた時点で202を返す。
func (h *RefreshHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	// レスポンス送信後も更新を継続させる
	ctx := context.WithoutCancel(r.Context())

	if err := h.refresher.StartRefresh(ctx); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, refreshResponse{Status: "accepted"})
}
