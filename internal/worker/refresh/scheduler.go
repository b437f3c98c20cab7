// Package refresh はスナップショットのバックグラウンド更新処理を提供する。
// 起動時の初回更新（バックオフ付きリトライ）と、一定間隔の定期更新を行う。
package refresh

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/socialpulse/internal/model"
)

// SnapshotRefresher はスナップショット更新の実行インターフェース。
type SnapshotRefresher interface {
	Refresh(ctx context.Context) (*model.Snapshot, error)
}

// SchedulerConfig はスケジューラの設定。
type SchedulerConfig struct {
	// Interval は定期更新の間隔。0以下の場合は初回更新のみ行う。
	Interval time.Duration
	// InitialBackoff は初回更新失敗時の初回遅延（デフォルト: 5秒）。
	InitialBackoff time.Duration
	// MaxBackoff は初回更新失敗時の最大遅延（デフォルト: 5分）。
	MaxBackoff time.Duration
}

// Scheduler はスナップショット更新のスケジューリングを行う。
type Scheduler struct {
	refresher SnapshotRefresher
	logger    *slog.Logger
	config    SchedulerConfig
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
func NewScheduler(refresher SnapshotRefresher, logger *slog.Logger, config SchedulerConfig) *Scheduler {
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = defaultInitialBackoff
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = defaultMaxBackoff
	}
	return &Scheduler{
		refresher: refresher,
		logger:    logger,
		config:    config,
	}
}

// Start は初回更新を行い、Intervalが設定されていれば定期更新を開始する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("更新スケジューラを開始しました",
		slog.Duration("interval", s.config.Interval),
	)

	s.runInitial(ctx)

	if s.config.Interval <= 0 {
		s.logger.Info("定期更新は無効です。初回更新のみ実行しました")
		return
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("更新スケジューラを停止しました")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("定期更新の実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce はスナップショットの更新を1回実行する。
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()

	snap, err := s.refresher.Refresh(ctx)
	if err != nil {
		return err
	}

	s.logger.Info("更新サイクルが完了しました",
		slog.String("snapshot_id", snap.ID),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// runInitial は初回のスナップショットが公開されるまで、
// 指数バックオフで更新を再試行する。認証エラーの場合は再試行しない。
func (s *Scheduler) runInitial(ctx context.Context) {
	for attempt := 0; ; attempt++ {
		err := s.RunOnce(ctx)
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			return
		}

		if ClassifyRefreshError(err) == RetryResultStop {
			s.logger.Error("初回更新に失敗しました。認証エラーのため再試行しません",
				slog.String("error", err.Error()),
			)
			return
		}

		delay := CalculateBackoff(s.config.InitialBackoff, s.config.MaxBackoff, attempt)
		s.logger.Warn("初回更新に失敗しました。再試行します",
			slog.Int("attempt", attempt+1),
			slog.Duration("retry_in", delay),
			slog.String("error", err.Error()),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
