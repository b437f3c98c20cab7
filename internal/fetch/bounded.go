// Package fetch は並列数を制限したフェイルソフトなバッチ実行を提供する。
//
// Runは全タスクを必ず解決し、結果をタスクの位置で返す。
// 1つのタスクの失敗が他のタスクをキャンセルすることはない。
package fetch

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Task は1件のフェッチ処理。
type Task[T any] func(ctx context.Context) (T, error)

// Outcome はタスク1件の結果。Errがnilでない場合Valueはゼロ値。
type Outcome[T any] struct {
	Value T
	Err   error
}

// Run はtasksを最大limit並列で実行し、タスクと同じ順序で結果を返す。
// 空きスロットができ次第次のタスクを開始する（動的ワークキュー）。
// limitが1未満の場合は1として扱う。
// タスク開始時点でctxがキャンセル済みの場合、そのタスクの結果はctx.Err()となる。
func Run[T any](ctx context.Context, limit int, tasks []Task[T]) []Outcome[T] {
	outcomes := make([]Outcome[T], len(tasks))
	if len(tasks) == 0 {
		return outcomes
	}
	if limit < 1 {
		limit = 1
	}

	// WithContextは使わない。1件の失敗で残りを止めないため。
	var g errgroup.Group
	g.SetLimit(limit)

	for i, task := range tasks {
		g.Go(func() error {
			outcomes[i] = runTask(ctx, task)
			return nil
		})
	}

	_ = g.Wait()
	return outcomes
}

// runTask はタスクを1件実行する。panicは失敗として捕捉する。
func runTask[T any](ctx context.Context, task Task[T]) (out Outcome[T]) {
	defer func() {
		if rec := recover(); rec != nil {
			out = Outcome[T]{Err: fmt.Errorf("task panicked: %v", rec)}
		}
	}()

	if err := ctx.Err(); err != nil {
		return Outcome[T]{Err: err}
	}

	v, err := task(ctx)
	if err != nil {
		return Outcome[T]{Err: err}
	}
	return Outcome[T]{Value: v}
}

// CountFailures は失敗した結果の件数を返す。
func CountFailures[T any](outcomes []Outcome[T]) int {
	n := 0
	for _, o := range outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}
