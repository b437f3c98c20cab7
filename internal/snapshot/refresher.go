package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/socialpulse/internal/model"
)

// ErrRefreshInProgress は更新中に別の更新を要求した場合のエラー。
var ErrRefreshInProgress = errors.New("snapshot refresh already in progress")

// ErrRefreshTooSoon は前回の更新完了から手動更新の最小間隔が経過していない場合のエラー。
var ErrRefreshTooSoon = errors.New("snapshot refresh requested too soon")

// RefreshTooSoonError は次に手動更新を受け付けるまでの待ち時間を保持する。
// errors.Is(err, ErrRefreshTooSoon) で判定できる。
type RefreshTooSoonError struct {
	RetryAfter time.Duration
}

// Error はerrorインターフェースを実装する。
func (e *RefreshTooSoonError) Error() string {
	return fmt.Sprintf("%s: retry after %s", ErrRefreshTooSoon.Error(), e.RetryAfter)
}

// Is はErrRefreshTooSoonとの比較でtrueを返す。
func (e *RefreshTooSoonError) Is(target error) bool {
	return target == ErrRefreshTooSoon
}

// SnapshotBuilder はSnapshot生成のインターフェース。
type SnapshotBuilder interface {
	Build(ctx context.Context) (*model.Snapshot, error)
}

// RefreshRecorder はフェッチパス結果の記録先。
type RefreshRecorder interface {
	RecordRefreshSuccess(duration time.Duration)
	RecordRefreshFailure(duration time.Duration)
	RecordSnapshot(users, posts, comments int, publishedAt time.Time)
}

// Refresher はSnapshotの生成と公開を単一ライターで行う。
// 生成に失敗した場合は直前に公開されたSnapshotをそのまま残す。
type Refresher struct {
	builder  SnapshotBuilder
	store    *Store
	logger   *slog.Logger
	recorder RefreshRecorder
	now      func() time.Time

	// manualMinInterval はStartRefreshに適用する最小間隔。0以下なら制限しない。
	manualMinInterval time.Duration

	mu           sync.Mutex
	lastFinished time.Time // muで保護
}

// NewRefresher はRefresherの新しいインスタンスを生成する。recorderはnil可。
func NewRefresher(builder SnapshotBuilder, store *Store, logger *slog.Logger, recorder RefreshRecorder) *Refresher {
	return &Refresher{
		builder:  builder,
		store:    store,
		logger:   logger,
		recorder: recorder,
		now:      time.Now,
	}
}

// SetManualMinInterval はStartRefreshによる手動更新の最小間隔を設定する。
// 更新の開始前に呼び出すこと。
func (r *Refresher) SetManualMinInterval(d time.Duration) {
	r.manualMinInterval = d
}

// Refresh はフェッチパスを実行し、成功した場合にSnapshotを公開する。
// 他の更新が実行中の場合は完了を待ってから実行する。
func (r *Refresher) Refresh(ctx context.Context) (*model.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refreshLocked(ctx)
}

// TryRefresh はRefreshと同様だが、他の更新が実行中の場合は待たずにErrRefreshInProgressを返す。
func (r *Refresher) TryRefresh(ctx context.Context) (*model.Snapshot, error) {
	if !r.mu.TryLock() {
		return nil, ErrRefreshInProgress
	}
	defer r.mu.Unlock()
	return r.refreshLocked(ctx)
}

// StartRefresh は更新をバックグラウンドで開始し、完了を待たずに戻る。
// 他の更新が実行中の場合はErrRefreshInProgressを、
// 前回の更新完了から最小間隔が経過していない場合は*RefreshTooSoonErrorを返す。
// ctxはリクエストのキャンセルから切り離したものを渡すこと。
func (r *Refresher) StartRefresh(ctx context.Context) error {
	if !r.mu.TryLock() {
		return ErrRefreshInProgress
	}
	if wait := r.manualWaitLocked(); wait > 0 {
		r.mu.Unlock()
		return &RefreshTooSoonError{RetryAfter: wait}
	}
	go func() {
		defer r.mu.Unlock()
		_, _ = r.refreshLocked(ctx)
	}()
	return nil
}

// manualWaitLocked は手動更新を受け付けるまでの残り時間を返す。
func (r *Refresher) manualWaitLocked() time.Duration {
	if r.manualMinInterval <= 0 || r.lastFinished.IsZero() {
		return 0
	}
	elapsed := r.now().Sub(r.lastFinished)
	if elapsed >= r.manualMinInterval {
		return 0
	}
	return r.manualMinInterval - elapsed
}

func (r *Refresher) refreshLocked(ctx context.Context) (*model.Snapshot, error) {
	start := time.Now()
	defer func() { r.lastFinished = r.now() }()

	snap, err := r.builder.Build(ctx)
	if err != nil {
		if r.recorder != nil {
			r.recorder.RecordRefreshFailure(time.Since(start))
		}
		r.logger.Error("スナップショットの更新に失敗しました。直前のスナップショットを維持します",
			slog.Bool("has_previous", r.store.Ready()),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	r.store.Publish(snap)

	if r.recorder != nil {
		r.recorder.RecordRefreshSuccess(time.Since(start))
		r.recorder.RecordSnapshot(len(snap.Users), len(snap.Posts), countComments(snap), snap.FetchedAt)
	}
	r.logger.Info("スナップショットを公開しました",
		slog.String("snapshot_id", snap.ID),
		slog.Int("user_count", len(snap.Users)),
		slog.Int("post_count", len(snap.Posts)),
	)

	return snap, nil
}

func countComments(snap *model.Snapshot) int {
	n := 0
	for _, comments := range snap.CommentsByPost {
		n += len(comments)
	}
	return n
}
