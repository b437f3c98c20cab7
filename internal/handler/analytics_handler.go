package handler

import (
	"log/slog"
	"net/http"

	"github.com/hitoshi/socialpulse/internal/model"
)

// 投稿一覧の種別
const (
	PostTypeLatest  = "latest"
	PostTypePopular = "popular"
)

// AnalyticsServiceInterface は集計ハンドラーが必要とするサービスインターフェース。
type AnalyticsServiceInterface interface {
	// GetTopUsers は投稿数上位のユーザーを返す。
	GetTopUsers() ([]model.TopUser, error)
	// GetLatestPosts は最新の投稿を返す。
	GetLatestPosts() ([]model.Post, error)
	// GetTrendingPosts はコメント数が最大の投稿を返す。
	GetTrendingPosts() ([]model.TrendingPost, error)
}

// AnalyticsHandler は公開済みスナップショットに対する集計クエリのHTTPハンドラー。
type AnalyticsHandler struct {
	service AnalyticsServiceInterface
	logger  *slog.Logger
}

// NewAnalyticsHandler はAnalyticsHandlerを生成する。loggerがnilの場合はslog.Default()を使用する。
func NewAnalyticsHandler(service AnalyticsServiceInterface, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{service: service, logger: loggerOrDefault(logger)}
}

// TopUsers はGET /users を処理する。
func (h *AnalyticsHandler) TopUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.GetTopUsers()
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// Posts はGET /posts?type=latest|popular を処理する。
// typeが未指定または不正な場合は400を返す。
func (h *AnalyticsHandler) Posts(w http.ResponseWriter, r *http.Request) {
	postType := r.URL.Query().Get("type")

	switch postType {
	case PostTypeLatest:
		posts, err := h.service.GetLatestPosts()
		if err != nil {
			handleServiceError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, posts)
	case PostTypePopular:
		posts, err := h.service.GetTrendingPosts()
		if err != nil {
			handleServiceError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, posts)
	default:
		handleServiceError(w, h.logger, model.NewInvalidPostTypeError(postType))
	}
}
