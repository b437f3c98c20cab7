// Package snapshot は上流データの3段階フェッチとスナップショットの公開を提供する。
//
// ユーザー → ユーザーごとの投稿 → 投稿ごとのコメント の順にフェッチし、
// 結果を1つの不変なSnapshotにまとめる。致命的なのはユーザー取得の失敗とパスのキャンセルで、
// 投稿・コメントの個別失敗はログとメトリクスに記録した上で空データとして扱う。
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/socialpulse/internal/fetch"
	"github.com/hitoshi/socialpulse/internal/model"
	"github.com/hitoshi/socialpulse/internal/upstream"
)

// ステージ名。ログとメトリクスのラベルに使用する。
const (
	StageUsers    = "users"
	StagePosts    = "posts"
	StageComments = "comments"
)

const (
	defaultPostsConcurrency    = 10
	defaultCommentsConcurrency = 10
)

// ErrSnapshotFetchFailed はフェッチパス全体の失敗を表す。
var ErrSnapshotFetchFailed = errors.New("snapshot fetch failed")

// FetchError はフェッチパスを中断させたエラー。
// errors.Is(err, ErrSnapshotFetchFailed) と原因のエラー種別の両方で判定できる。
type FetchError struct {
	Stage string
	Err   error
}

// Error はerrorインターフェースを実装する。
func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %s stage: %v", ErrSnapshotFetchFailed.Error(), e.Stage, e.Err)
}

// Is はErrSnapshotFetchFailedとの比較でtrueを返す。
func (e *FetchError) Is(target error) bool {
	return target == ErrSnapshotFetchFailed
}

// Unwrap は原因のエラーを返す。
func (e *FetchError) Unwrap() error {
	return e.Err
}

// UpstreamSource は上流データ取得のインターフェース。
// テスト時にモックに差し替え可能。
type UpstreamSource interface {
	ListUsers(ctx context.Context) (map[int]model.User, error)
	ListPostsForUser(ctx context.Context, userID int) ([]model.Post, error)
	ListCommentsForPost(ctx context.Context, postID int) ([]model.Comment, error)
}

// StageRecorder はステージ内の個別失敗の記録先。
type StageRecorder interface {
	RecordStageFailure(stage string)
}

// BuilderConfig はビルダーの並列数設定。
type BuilderConfig struct {
	// PostsConcurrency は投稿ステージの最大並列数（デフォルト: 10）。
	PostsConcurrency int
	// CommentsConcurrency はコメントステージの最大並列数（デフォルト: 10）。
	// 投稿数ぶんのタスクが発生するため、投稿ステージとは独立に絞れるようにしている。
	CommentsConcurrency int
}

// Builder は3段階のフェッチパスを実行してSnapshotを組み立てる。
type Builder struct {
	source   UpstreamSource
	logger   *slog.Logger
	recorder StageRecorder
	config   BuilderConfig
	now      func() time.Time
}

// NewBuilder はBuilderの新しいインスタンスを生成する。
// 並列数が0以下の場合はデフォルト値10を使用する。recorderはnil可。
func NewBuilder(source UpstreamSource, logger *slog.Logger, recorder StageRecorder, config BuilderConfig) *Builder {
	if config.PostsConcurrency <= 0 {
		config.PostsConcurrency = defaultPostsConcurrency
	}
	if config.CommentsConcurrency <= 0 {
		config.CommentsConcurrency = defaultCommentsConcurrency
	}
	return &Builder{
		source:   source,
		logger:   logger,
		recorder: recorder,
		config:   config,
		now:      time.Now,
	}
}

// Build はフェッチパスを1回実行し、新しいSnapshotを返す。
// ユーザー取得に失敗した場合、またはパスの途中でctxがキャンセルされた場合は*FetchErrorを返す。
func (b *Builder) Build(ctx context.Context) (*model.Snapshot, error) {
	passID := uuid.NewString()
	logger := b.logger.With(slog.String("pass_id", passID))
	start := b.now()

	logger.Info("データのフェッチを開始します")

	// 1. ユーザー
	users, err := b.source.ListUsers(ctx)
	if err != nil {
		logger.Error("ユーザー一覧の取得に失敗しました",
			slog.String("stage", StageUsers),
			slog.String("error", err.Error()),
		)
		if errors.Is(err, upstream.ErrUnauthorized) {
			logger.Error("認証に失敗しました。ACCESS_TOKENを確認してください")
		}
		return nil, &FetchError{Stage: StageUsers, Err: err}
	}
	logger.Info("ユーザー一覧を取得しました",
		slog.Int("user_count", len(users)),
	)

	// 2. 投稿
	posts := b.fetchPosts(ctx, logger, users)
	if err := ctx.Err(); err != nil {
		return nil, b.abort(logger, StagePosts, err)
	}
	logger.Info("投稿を取得しました",
		slog.Int("post_count", len(posts)),
	)

	// 3. コメント
	commentsByPost := b.fetchComments(ctx, logger, posts)
	if err := ctx.Err(); err != nil {
		return nil, b.abort(logger, StageComments, err)
	}

	snap := &model.Snapshot{
		ID:             passID,
		FetchedAt:      b.now(),
		Users:          users,
		Posts:          posts,
		CommentsByPost: commentsByPost,
	}

	logger.Info("データのフェッチが完了しました",
		slog.Int("user_count", len(users)),
		slog.Int("post_count", len(posts)),
		slog.Int("commented_post_count", len(commentsByPost)),
		slog.Float64("duration_ms", float64(b.now().Sub(start).Milliseconds())),
	)

	return snap, nil
}

// fetchPosts はユーザーID昇順に投稿を取得し、取得順に連結して返す。
// 失敗したユーザーは空として扱う。
func (b *Builder) fetchPosts(ctx context.Context, logger *slog.Logger, users map[int]model.User) []model.Post {
	userIDs := sortedUserIDs(users)

	tasks := make([]fetch.Task[[]model.Post], len(userIDs))
	for i, userID := range userIDs {
		tasks[i] = func(ctx context.Context) ([]model.Post, error) {
			return b.source.ListPostsForUser(ctx, userID)
		}
	}

	outcomes := fetch.Run(ctx, b.config.PostsConcurrency, tasks)

	posts := make([]model.Post, 0, len(userIDs))
	for i, o := range outcomes {
		userID := userIDs[i]
		if o.Err != nil {
			logger.Warn("ユーザーの投稿取得に失敗しました。空として扱います",
				slog.String("stage", StagePosts),
				slog.Int("user_id", userID),
				slog.String("error", o.Err.Error()),
			)
			b.recordFailure(StagePosts)
			continue
		}
		for _, p := range o.Value {
			p.UserID = userID
			posts = append(posts, p)
		}
	}

	if failed := fetch.CountFailures(outcomes); failed > 0 {
		logger.Warn("一部ユーザーの投稿取得に失敗しました",
			slog.Int("failed_users", failed),
			slog.Int("total_users", len(userIDs)),
		)
	}

	return posts
}

// fetchComments は全投稿のコメントを取得する。
// 取得を試行した全ての投稿IDがキーとして必ず存在し、失敗時は空スライスになる。
// 同じ投稿IDが複数回現れた場合も取得は1回のみ行う。
func (b *Builder) fetchComments(ctx context.Context, logger *slog.Logger, posts []model.Post) map[int][]model.Comment {
	postIDs := uniquePostIDs(posts)

	tasks := make([]fetch.Task[[]model.Comment], len(postIDs))
	for i, postID := range postIDs {
		tasks[i] = func(ctx context.Context) ([]model.Comment, error) {
			return b.source.ListCommentsForPost(ctx, postID)
		}
	}

	logger.Info("コメントを取得します",
		slog.Int("post_count", len(postIDs)),
		slog.Int("max_concurrency", b.config.CommentsConcurrency),
	)

	outcomes := fetch.Run(ctx, b.config.CommentsConcurrency, tasks)

	commentsByPost := make(map[int][]model.Comment, len(postIDs))
	for i, o := range outcomes {
		postID := postIDs[i]
		if o.Err != nil {
			logger.Warn("投稿のコメント取得に失敗しました。空として扱います",
				slog.String("stage", StageComments),
				slog.Int("post_id", postID),
				slog.String("error", o.Err.Error()),
			)
			b.recordFailure(StageComments)
			commentsByPost[postID] = []model.Comment{}
			continue
		}
		if o.Value == nil {
			commentsByPost[postID] = []model.Comment{}
			continue
		}
		commentsByPost[postID] = o.Value
	}

	logger.Info("コメントを取得しました",
		slog.Int("attempted", len(postIDs)),
		slog.Int("recorded", len(commentsByPost)),
		slog.Int("failed", fetch.CountFailures(outcomes)),
	)

	return commentsByPost
}

// abort はキャンセルされたパスを中断する。
func (b *Builder) abort(logger *slog.Logger, stage string, err error) error {
	logger.Warn("フェッチパスがキャンセルされました。Snapshotは公開しません",
		slog.String("stage", stage),
		slog.String("error", err.Error()),
	)
	return &FetchError{Stage: stage, Err: err}
}

func (b *Builder) recordFailure(stage string) {
	if b.recorder != nil {
		b.recorder.RecordStageFailure(stage)
	}
}

// sortedUserIDs はユーザーIDを昇順で返す。
func sortedUserIDs(users map[int]model.User) []int {
	ids := make([]int, 0, len(users))
	for id := range users {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// uniquePostIDs は投稿IDを出現順に重複なく返す。
func uniquePostIDs(posts []model.Post) []int {
	seen := make(map[int]struct{}, len(posts))
	ids := make([]int, 0, len(posts))
	for _, p := range posts {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		ids = append(ids, p.ID)
	}
	return ids
}
