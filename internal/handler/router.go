package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/hitoshi/socialpulse/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	// TrustProxyHeaders がtrueの場合、X-Forwarded-For等からクライアントIPを決定する
	TrustProxyHeaders bool

	// 集計
	AnalyticsService AnalyticsServiceInterface

	// 更新
	Refresher RefreshStarter

	// 運用
	Snapshots      SnapshotReader
	MetricsHandler http.Handler
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → (RealIP) → Recovery → Logging → SecurityHeaders → CORS → RateLimit
//
// /health と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	if deps.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.NewRecoveryMiddleware(deps.Logger))
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	analyticsHandler := NewAnalyticsHandler(deps.AnalyticsService, deps.Logger)
	refreshHandler := NewRefreshHandler(deps.Refresher, deps.Logger)
	healthHandler := NewHealthHandler(deps.Snapshots)

	// --- レート制限対象外 ---
	r.Get("/health", healthHandler.Health)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- クエリAPI ---
	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware())
		}

		r.Get("/users", analyticsHandler.TopUsers)
		r.Get("/posts", analyticsHandler.Posts)
		r.Post("/api/refresh", refreshHandler.Refresh)
	})

	return r
}
