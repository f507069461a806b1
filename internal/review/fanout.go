package review

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// outcome は並行処理1件分の結果。failedがtrueならfailureが有効。
type outcome[T, E any] struct {
	value   T
	failure E
	failed  bool
}

func succeeded[T, E any](v T) outcome[T, E] {
	return outcome[T, E]{value: v}
}

func failedWith[T, E any](e E) outcome[T, E] {
	return outcome[T, E]{failure: e, failed: true}
}

// joinAll はitemsの各要素にfnを並行適用し、全件の完了を待ってから
// 成功と失敗に振り分けて返す。limitが正なら同時実行数をその値に制限する。
// 両方のスライスとも入力順を保ち、結果が0件でもnilではなく空スライスを返す。
// fnの失敗は戻り値で表すため、1件の失敗が他の処理を止めることはない。
func joinAll[In, T, E any](ctx context.Context, limit int, items []In, fn func(context.Context, In) outcome[T, E]) ([]T, []E) {
	results := make([]outcome[T, E], len(items))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, item := range items {
		g.Go(func() error {
			results[i] = fn(ctx, item)
			return nil
		})
	}
	_ = g.Wait()

	ok := make([]T, 0, len(items))
	failed := make([]E, 0)
	for _, r := range results {
		if r.failed {
			failed = append(failed, r.failure)
			continue
		}
		ok = append(ok, r.value)
	}
	return ok, failed
}
