package upstream

import (
	"errors"
	"fmt"
)

// 上流呼び出しのエラー種別。errors.Isで判定する。
var (
	// ErrUnauthorized は401/403を表す。アクセストークンが無効であることを示す。
	ErrUnauthorized = errors.New("upstream rejected the access token (check ACCESS_TOKEN)")
	// ErrUnavailable はネットワークエラーまたは5xxを表す。
	ErrUnavailable = errors.New("upstream unavailable")
	// ErrTimeout はリクエスト単位のタイムアウトを表す。
	ErrTimeout = errors.New("upstream request timed out")
	// ErrInvalidPayload はレスポンスJSONが想定の形でない場合を表す。
	ErrInvalidPayload = errors.New("upstream returned an invalid payload")
)

// maxErrorBodySize はStatusErrorに保持するレスポンスボディの最大バイト数。
const maxErrorBodySize = 512

// StatusError は上記以外の2xx以外のステータスを表す。
type StatusError struct {
	StatusCode int
	Body       string
}

// Error はerrorインターフェースを実装する。
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}

// unavailableError は5xxのステータスコードを保持しつつErrUnavailableとして判定される。
type unavailableError struct {
	statusCode int
	cause      error
}

func (e *unavailableError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", ErrUnavailable.Error(), e.cause)
	}
	return fmt.Sprintf("%s: status %d", ErrUnavailable.Error(), e.statusCode)
}

func (e *unavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

func (e *unavailableError) Unwrap() error {
	return e.cause
}
