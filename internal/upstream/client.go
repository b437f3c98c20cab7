// Package upstream は分析対象データを提供する上流サーバーとの連携機能を提供する。
// ユーザー一覧、ユーザーごとの投稿、投稿ごとのコメントの3種類の取得APIを型付きで扱う。
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/socialpulse/internal/model"
)

const (
	// maxBodySize はレスポンスボディの最大読み取りサイズ（10MB）。
	maxBodySize = 10 << 20
	// defaultTimeout はリクエスト単位のデフォルトタイムアウト。
	defaultTimeout = 10 * time.Second
)

// エンドポイント種別。メトリクスのラベルに使用する。
const (
	EndpointUsers    = "users"
	EndpointPosts    = "posts"
	EndpointComments = "comments"
)

// Sanitizer はエラーレスポンスボディをログ向けテキストに変換する。
type Sanitizer interface {
	Sanitize(raw string) string
}

// Recorder は上流リクエスト結果の記録先。
// statusCodeはトランスポートエラー時に0となる。
type Recorder interface {
	RecordUpstreamRequest(endpoint string, statusCode int, duration time.Duration)
}

// Config はClientの設定パラメータ。
type Config struct {
	// BaseURL は上流サーバーのベースURL（例: http://20.244.56.144/test）。
	BaseURL string
	// Token は全リクエストに付与するBearerトークン。
	Token string
	// Timeout はリクエスト単位のタイムアウト（デフォルト: 10秒）。
	Timeout time.Duration
	// Limiter は上流へのリクエストレートを制限する。nilの場合は無制限。
	Limiter *rate.Limiter
	// ErrorBodySanitizer は2xx以外のレスポンスボディ（プロキシのHTMLエラーページ等）を
	// StatusError.Bodyに格納する前に正規化する。nilの場合は前後の空白のみ除去する。
	// ユーザー名や本文には適用しない。
	ErrorBodySanitizer Sanitizer
	// Recorder はリクエスト結果の記録先。nilの場合は記録しない。
	Recorder Recorder
}

// Client は上流サーバーのAPIクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	token      string
	timeout    time.Duration
	limiter    *rate.Limiter
	sanitizer  Sanitizer
	recorder   Recorder
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger, cfg Config) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		timeout:    timeout,
		limiter:    cfg.Limiter,
		sanitizer:  cfg.ErrorBodySanitizer,
		recorder:   cfg.Recorder,
	}
}

// usersResponse は GET /users のレスポンス。キーはユーザーIDの文字列表現。
// usersフィールドの欠落は空のユーザー一覧と区別する。
type usersResponse struct {
	Users *map[string]string `json:"users"`
}

// postPayload は投稿1件のペイロード。userid等の付随フィールドは無視する。
type postPayload struct {
	ID      flexInt `json:"id"`
	Content string  `json:"content"`
}

type postsResponse struct {
	Posts []postPayload `json:"posts"`
}

type commentPayload struct {
	ID      flexInt `json:"id"`
	Content string  `json:"content"`
}

type commentsResponse struct {
	Comments []commentPayload `json:"comments"`
}

// ListUsers は全ユーザーを取得する。
// 401/403はErrUnauthorized、ネットワークエラー/5xxはErrUnavailable、
// その他の2xx以外は*StatusErrorを返す。
// usersフィールドを欠くレスポンスはErrInvalidPayloadとする。
// 数値として解釈できないユーザーIDは警告を出してスキップする。
func (c *Client) ListUsers(ctx context.Context) (map[int]model.User, error) {
	var resp usersResponse
	if _, err := c.get(ctx, EndpointUsers, "/users", &resp); err != nil {
		return nil, err
	}
	if resp.Users == nil {
		return nil, fmt.Errorf("%w: missing users field", ErrInvalidPayload)
	}

	users := make(map[int]model.User, len(*resp.Users))
	for key, name := range *resp.Users {
		id, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			c.logger.Warn("数値でないユーザーIDをスキップしました",
				slog.String("user_key", key),
			)
			continue
		}
		users[id] = model.User{ID: id, Name: name}
	}

	return users, nil
}

// ListPostsForUser は指定ユーザーの投稿を取得する。
// 404は「投稿なし」または「ユーザー不在」として空スライスを返す（エラーではない）。
// 返却する投稿のUserIDは常に引数のuserIDで上書きする。
func (c *Client) ListPostsForUser(ctx context.Context, userID int) ([]model.Post, error) {
	var resp postsResponse
	found, err := c.get(ctx, EndpointPosts, fmt.Sprintf("/users/%d/posts", userID), &resp)
	if err != nil {
		return nil, err
	}
	if !found {
		return []model.Post{}, nil
	}

	posts := make([]model.Post, 0, len(resp.Posts))
	for _, p := range resp.Posts {
		posts = append(posts, model.Post{
			ID:      int(p.ID),
			UserID:  userID,
			Content: p.Content,
		})
	}
	return posts, nil
}

// ListCommentsForPost は指定投稿のコメントを取得する。
// 404は空スライスを返す（エラーではない）。
func (c *Client) ListCommentsForPost(ctx context.Context, postID int) ([]model.Comment, error) {
	var resp commentsResponse
	found, err := c.get(ctx, EndpointComments, fmt.Sprintf("/posts/%d/comments", postID), &resp)
	if err != nil {
		return nil, err
	}
	if !found {
		return []model.Comment{}, nil
	}

	comments := make([]model.Comment, 0, len(resp.Comments))
	for _, cm := range resp.Comments {
		comments = append(comments, model.Comment{
			ID:      int(cm.ID),
			PostID:  postID,
			Content: cm.Content,
		})
	}
	return comments, nil
}

// get はGETリクエストを実行し、レスポンスJSONをoutにデコードする。
// 404の場合はfound=falseとnilエラーを返す。
func (c *Client) get(ctx context.Context, endpoint, path string, out any) (found bool, err error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return false, classifyTransportError(err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return false, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.record(endpoint, 0, time.Since(start))
		return false, classifyTransportError(err)
	}
	defer resp.Body.Close()
	c.record(endpoint, resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return false, fmt.Errorf("%w: status %d on %s", ErrUnauthorized, resp.StatusCode, path)
	case resp.StatusCode >= 500:
		return false, &unavailableError{statusCode: resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return false, &StatusError{StatusCode: resp.StatusCode, Body: c.errorBody(body)}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(out); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return false, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return false, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	return true, nil
}

func (c *Client) errorBody(body []byte) string {
	if c.sanitizer == nil {
		return strings.TrimSpace(string(body))
	}
	return c.sanitizer.Sanitize(string(body))
}

func (c *Client) record(endpoint string, statusCode int, d time.Duration) {
	if c.recorder != nil {
		c.recorder.RecordUpstreamRequest(endpoint, statusCode, d)
	}
}

// classifyTransportError はトランスポート層のエラーをエラー種別に変換する。
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return &unavailableError{cause: err}
}

// flexInt は数値または数値文字列のどちらでも受け付ける整数。
type flexInt int

// UnmarshalJSON はjson.Unmarshalerを実装する。
func (f *flexInt) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a number: %s", string(b))
	}
	i, err := strconv.Atoi(n.String())
	if err != nil {
		return fmt.Errorf("id must be an integer: %s", n.String())
	}
	*f = flexInt(i)
	return nil
}

