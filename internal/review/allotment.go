package review

import (
	"context"
	"fmt"
	"log"

	"github.com/nao1215/reviewdesk/pkg/event"
)

// Allotter は査読者の割り当てバッチを処理するエンジン。
type Allotter struct {
	store AllotmentStore
	opts  Options
}

// NewAllotter は新しいAllotterを生成する。
func NewAllotter(store AllotmentStore, opts Options) *Allotter {
	return &Allotter{store: store, opts: opts}
}

// Allot はrequestsの各組を並行に処理し、全件の完了を待って結果を返す。
// 各組は独立に判定され、バッチ全体としての原子性はない。
// 同じ組がバッチ内に複数回現れた場合、ストアのadd-if-absentで1件だけが成功し、
// 残りは重複として拒否される。
func (a *Allotter) Allot(ctx context.Context, requests []AllotmentRequest) AllotmentResult {
	accepted, rejected := joinAll(ctx, a.opts.FanoutLimit, requests, a.allotOne)
	if len(rejected) > 0 {
		log.Printf("[Allotment] %d件中%d件の割り当てを拒否しました", len(requests), len(rejected))
	}
	return AllotmentResult{Accepted: accepted, Rejected: rejected}
}

// allotOne は1組分の割り当てを行う。
// 重複判定は事前の存在確認ではなくAddReviewerのinserted戻り値だけで行う。
func (a *Allotter) allotOne(ctx context.Context, req AllotmentRequest) outcome[AuthorWork, *AllotmentError] {
	opCtx, cancel := a.opts.withTimeout(ctx)
	defer cancel()

	work, inserted, err := a.store.AddReviewer(opCtx, req.AuthorWorkID, req.ReviewerID)
	if err != nil {
		ae := newAllotmentError(req, err)
		if ae.Kind == RejectionInternal {
			log.Printf("[Allotment] 割り当てエラー: authorwork=%s, reviewer=%s: %v", req.AuthorWorkID, req.ReviewerID, err)
		}
		return failedWith[AuthorWork](ae)
	}
	if !inserted {
		return failedWith[AuthorWork](newAllotmentError(req, ErrDuplicateAssignment))
	}

	a.record(ctx, req)
	return succeeded[AuthorWork, *AllotmentError](work)
}

// record はReviewerAllottedイベントを記録する。
// 割り当て自体は確定済みのため、記録の失敗はログに残すだけにする。
func (a *Allotter) record(ctx context.Context, req AllotmentRequest) {
	if err := appendEvent(ctx, a.store, a.opts, event.AggregateTypeAuthorWork, req.AuthorWorkID, event.TypeReviewerAllotted, event.ReviewerAllottedData{
		ReviewerID: req.ReviewerID,
		AllottedBy: req.AllottedBy,
	}); err != nil {
		log.Printf("[Allotment] イベント記録に失敗: authorwork=%s, reviewer=%s: %v", req.AuthorWorkID, req.ReviewerID, err)
	}
}

// appendEvent は監査イベントを生成して記録する。
func appendEvent(ctx context.Context, rec EventRecorder, opts Options, aggType event.AggregateType, aggID string, typ event.Type, data any) error {
	ev, err := event.New(aggID, aggType, typ, data)
	if err != nil {
		return err
	}

	opCtx, cancel := opts.withTimeout(ctx)
	defer cancel()
	if err := rec.AppendEvent(opCtx, ev); err != nil {
		return fmt.Errorf("イベントの保存に失敗: %w", err)
	}
	return nil
}
