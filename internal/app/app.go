package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/hitoshi/socialpulse/internal/analytics"
	"github.com/hitoshi/socialpulse/internal/config"
	"github.com/hitoshi/socialpulse/internal/handler"
	"github.com/hitoshi/socialpulse/internal/logger"
	"github.com/hitoshi/socialpulse/internal/metrics"
	"github.com/hitoshi/socialpulse/internal/middleware"
	"github.com/hitoshi/socialpulse/internal/model"
	"github.com/hitoshi/socialpulse/internal/security"
	"github.com/hitoshi/socialpulse/internal/snapshot"
	"github.com/hitoshi/socialpulse/internal/upstream"
	"github.com/hitoshi/socialpulse/internal/worker/refresh"
)

// Init はアプリケーションの初期化を行う。
// .envファイル（ENV_FILEで変更可）と環境変数からConfigを読み込み、構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, logger.FormatJSON)

	// 2. .envファイルと環境変数から設定を読み込む
	if err := config.LoadEnvFile(os.Getenv("ENV_FILE")); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定された形式でログを再構成する
	logger.SetupDefault(w, cfg.LogFormat)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "3000"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("upstream_base_url", cfg.UpstreamBaseURL),
	)

	switch cmd {
	case CommandFetch:
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runFetch(ctx, cfg, os.Stdout)
	default:
		return runServe(cfg)
	}
}

// components はserve/fetchの両モードで共有する依存関係。
type components struct {
	registry  *prometheus.Registry
	store     *snapshot.Store
	refresher *snapshot.Refresher
	analytics *analytics.Service
}

// newComponents は設定から上流クライアント、フェッチパス、スナップショットストアを組み立てる。
func newComponents(cfg *config.Config, log *slog.Logger) *components {
	// 1. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// 2. 上流クライアント
	var limiter *rate.Limiter
	if cfg.UpstreamRateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.UpstreamRateLimit), cfg.UpstreamRateBurst)
	}
	client := upstream.NewClient(&http.Client{}, log, upstream.Config{
		BaseURL:            cfg.UpstreamBaseURL,
		Token:              cfg.AccessToken,
		Timeout:            cfg.UpstreamTimeout,
		Limiter:            limiter,
		ErrorBodySanitizer: security.NewContentSanitizer(),
		Recorder:           collector,
	})

	// 3. フェッチパスと公開先
	builder := snapshot.NewBuilder(client, log, collector, snapshot.BuilderConfig{
		PostsConcurrency:    cfg.PostsMaxConcurrent,
		CommentsConcurrency: cfg.CommentsMaxConcurrent,
	})
	store := snapshot.NewStore()
	refresher := snapshot.NewRefresher(builder, store, log, collector)
	refresher.SetManualMinInterval(cfg.RefreshMinInterval)

	return &components{
		registry:  registry,
		store:     store,
		refresher: refresher,
		analytics: analytics.NewService(store),
	}
}

// newRouter はcomponentsからHTTPルーターを構築する。
func newRouter(cfg *config.Config, log *slog.Logger, c *components, rl *middleware.RateLimiter) http.Handler {
	return handler.NewRouter(&handler.RouterDeps{
		Logger:            log,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rl,
		TrustProxyHeaders: cfg.TrustProxyHeaders,

		AnalyticsService: c.analytics,
		Refresher:        c.refresher,

		Snapshots:      c.store,
		MetricsHandler: metrics.Handler(c.registry),
	})
}

// runServe はAPIサーバーモードで起動する。
// 全依存関係をワイヤリングし、スナップショット更新をバックグラウンドで開始してからHTTPサーバーを起動する。
// 初回スナップショットの公開前でもサーバーは起動し、クエリには503を返す。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	log := slog.Default()

	// 1. 依存関係の初期化
	c := newComponents(cfg, log)

	// 2. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral))
	defer rateLimiter.Stop()

	router := newRouter(cfg, log, c, rateLimiter)

	// 3. 更新スケジューラの起動
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := refresh.NewScheduler(c.refresher, log, refresh.SchedulerConfig{
		Interval:       cfg.RefreshInterval,
		InitialBackoff: cfg.RefreshInitialBackoff,
		MaxBackoff:     cfg.RefreshMaxBackoff,
	})
	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		scheduler.Start(ctx)
	}()

	// 4. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-stop:
		slog.Info("shutting down API server...")
	case err := <-serverErr:
		cancel()
		<-schedulerDone
		return fmt.Errorf("server listen error: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// リクエストを捌き切ってから更新を止める
	shutdownErr := server.Shutdown(shutdownCtx)
	cancel()
	<-schedulerDone
	if shutdownErr != nil {
		return fmt.Errorf("server shutdown failed: %w", shutdownErr)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// fetchSummary はfetchコマンドの出力。
type fetchSummary struct {
	SnapshotID    string               `json:"snapshot_id"`
	FetchedAt     time.Time            `json:"fetched_at"`
	UserCount     int                  `json:"user_count"`
	PostCount     int                  `json:"post_count"`
	TopUsers      []model.TopUser      `json:"top_users"`
	LatestPosts   []model.Post         `json:"latest_posts"`
	TrendingPosts []model.TrendingPost `json:"trending_posts"`
}

// runFetch はフェッチパスを1回実行し、集計結果をJSONでoutに書き出す。
// ユーザー取得に失敗した場合、またはctxのキャンセルでパスが中断された場合はエラーを返す。
func runFetch(ctx context.Context, cfg *config.Config, out io.Writer) error {
	c := newComponents(cfg, slog.Default())

	snap, err := c.refresher.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}

	summary := fetchSummary{
		SnapshotID:    snap.ID,
		FetchedAt:     snap.FetchedAt,
		UserCount:     len(snap.Users),
		PostCount:     len(snap.Posts),
		TopUsers:      analytics.TopUsers(snap, analytics.DefaultTopN),
		LatestPosts:   analytics.LatestPosts(snap, analytics.DefaultTopN),
		TrendingPosts: analytics.TrendingPosts(snap),
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
