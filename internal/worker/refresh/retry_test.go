package refresh

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hitoshi/socialpulse/internal/snapshot"
	"github.com/hitoshi/socialpulse/internal/upstream"
)

func TestClassifyRefreshError_UnauthorizedStops(t *testing.T) {
	err := &snapshot.FetchError{Stage: snapshot.StageUsers, Err: fmt.Errorf("%w: status 401", upstream.ErrUnauthorized)}
	if got := ClassifyRefreshError(err); got != RetryResultStop {
		t.Errorf("認証エラーは RetryResultStop を返すべき, got %v", got)
	}
}

func TestClassifyRefreshError_OthersBackoff(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"unavailable", &snapshot.FetchError{Stage: snapshot.StageUsers, Err: upstream.ErrUnavailable}},
		{"timeout", fmt.Errorf("wrap: %w", upstream.ErrTimeout)},
		{"status", &upstream.StatusError{StatusCode: 429}},
		{"unknown", errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyRefreshError(tt.err); got != RetryResultBackoff {
				t.Errorf("%s は RetryResultBackoff を返すべき, got %v", tt.name, got)
			}
		})
	}
}

func TestCalculateBackoff(t *testing.T) {
	initial := 5 * time.Second
	max := 5 * time.Minute

	tests := []struct {
		errors int
		want   time.Duration
	}{
		{0, 5 * time.Second},
		{1, 10 * time.Second},
		{2, 20 * time.Second},
		{5, 160 * time.Second},
		{6, 5 * time.Minute},
		{30, 5 * time.Minute},
	}

	for _, tt := range tests {
		if got := CalculateBackoff(initial, max, tt.errors); got != tt.want {
			t.Errorf("CalculateBackoff(%d) = %v, want %v", tt.errors, got, tt.want)
		}
	}
}

func TestCalculateBackoff_InitialAboveMax(t *testing.T) {
	if got := CalculateBackoff(time.Minute, time.Second, 0); got != time.Second {
		t.Errorf("CalculateBackoff() = %v, want %v", got, time.Second)
	}
}
