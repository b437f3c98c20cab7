package refresh

import (
	"errors"
	"time"

	"github.com/hitoshi/socialpulse/internal/upstream"
)

// RetryResult は更新失敗時のリトライ方針。
type RetryResult int

const (
	// RetryResultBackoff はバックオフ後に再試行する（ネットワークエラー/5xx/タイムアウト等）。
	RetryResultBackoff RetryResult = iota
	// RetryResultStop は再試行しても回復しない失敗（401/403）。
	RetryResultStop
)

const (
	// defaultInitialBackoff は初回更新リトライの初回遅延。
	defaultInitialBackoff = 5 * time.Second
	// defaultMaxBackoff は初回更新リトライの最大遅延。
	defaultMaxBackoff = 5 * time.Minute
)

// ClassifyRefreshError は更新エラーをリトライ方針に分類する。
// 認証エラーはトークンを差し替えるまで回復しないため停止する。
func ClassifyRefreshError(err error) RetryResult {
	if errors.Is(err, upstream.ErrUnauthorized) {
		return RetryResultStop
	}
	return RetryResultBackoff
}

// CalculateBackoff は連続エラー回数に基づいて指数バックオフ遅延を計算する。
// initialから2倍ずつ増加し、maxで頭打ちになる。
func CalculateBackoff(initial, max time.Duration, consecutiveErrors int) time.Duration {
	delay := initial
	for i := 0; i < consecutiveErrors; i++ {
		delay *= 2
		if delay > max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}
