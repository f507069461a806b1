package review

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

// TestJoinAll はjoinAll関数を検証する。
func TestJoinAll(t *testing.T) {
	t.Parallel()

	t.Run("成功と失敗がそれぞれ入力順に振り分けられること", func(t *testing.T) {
		t.Parallel()

		items := []int{1, 2, 3, 4, 5, 6}
		ok, failed := joinAll(t.Context(), 3, items, func(_ context.Context, n int) outcome[int, string] {
			// 後ろの要素ほど早く終わるようにして完了順と入力順をずらす
			time.Sleep(time.Duration(len(items)-n) * time.Millisecond)
			if n%2 == 0 {
				return failedWith[int]("even")
			}
			return succeeded[int, string](n * 10)
		})

		if len(ok) != 3 || ok[0] != 10 || ok[1] != 30 || ok[2] != 50 {
			t.Errorf("ok = %v, want [10 30 50]", ok)
		}
		if len(failed) != 3 {
			t.Errorf("failed = %v, want 3件", failed)
		}
	})

	t.Run("同時実行数がlimitを超えないこと", func(t *testing.T) {
		t.Parallel()

		var running, peak atomic.Int32
		items := make([]int, 20)
		joinAll(t.Context(), 4, items, func(_ context.Context, _ int) outcome[struct{}, error] {
			cur := running.Add(1)
			for {
				p := peak.Load()
				if cur <= p || peak.CompareAndSwap(p, cur) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			running.Add(-1)
			return succeeded[struct{}, error](struct{}{})
		})

		if p := peak.Load(); p > 4 {
			t.Errorf("最大同時実行数 = %d, want <= 4", p)
		}
	})

	t.Run("入力が空なら空スライスを返すこと", func(t *testing.T) {
		t.Parallel()

		ok, failed := joinAll(t.Context(), 0, []string(nil), func(_ context.Context, s string) outcome[string, error] {
			return succeeded[string, error](s)
		})
		if ok == nil || failed == nil || len(ok) != 0 || len(failed) != 0 {
			t.Errorf("ok = %v, failed = %v, want 空スライス", ok, failed)
		}
	})
}
