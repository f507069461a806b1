package review

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nao1215/reviewdesk/pkg/event"
)

// Notifier はトラック単位で査読依頼を一斉送信するエンジン。
type Notifier struct {
	store     NotificationStore
	transport Transport
	links     Links
	opts      Options
	now       func() time.Time
}

// NewNotifier は新しいNotifierを生成する。
func NewNotifier(store NotificationStore, transport Transport, links Links, opts Options) *Notifier {
	return &Notifier{
		store:     store,
		transport: transport,
		links:     links,
		opts:      opts,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Notify はトラックに割り当て済みの全 (論文, 査読者) 組へ依頼メッセージを送る。
// 全送信の完了を待ち、成功と失敗を1件ずつ報告する。送信失敗はエラーとしては返さない。
// トラックが存在しない場合はErrNotFound、読み出しに失敗した場合はそのエラーを返し、
// どちらの場合も1通も送信しない。
func (n *Notifier) Notify(ctx context.Context, trackID string, nc NotifyContext) (NotificationReport, error) {
	jobs, err := n.Jobs(ctx, trackID, nc)
	if err != nil {
		return NotificationReport{}, err
	}

	sent, failed := joinAll(ctx, n.opts.FanoutLimit, jobs, n.dispatch)
	log.Printf("[Notify] track=%s: 送信成功 %d件, 失敗 %d件", trackID, len(sent), len(failed))
	if err := appendEvent(ctx, n.store, n.opts, event.AggregateTypeTrack, trackID, event.TypeReviewRequestsDispatched, event.ReviewRequestsDispatchedData{
		Sent:   len(sent),
		Failed: len(failed),
	}); err != nil {
		log.Printf("[Notify] イベント記録に失敗: track=%s: %v", trackID, err)
	}
	return NotificationReport{Sent: sent, Failed: failed}, nil
}

// Jobs はトラック → 論文 → 査読者を読み出し、1組につき1件の送信ジョブを返す。
// 査読者のいない論文はジョブを生成しない。ジョブはトラック内の論文順、割り当て順に並ぶ。
func (n *Notifier) Jobs(ctx context.Context, trackID string, nc NotifyContext) ([]NotificationJob, error) {
	opCtx, cancel := n.opts.withTimeout(ctx)
	works, err := n.store.ListTrackWorks(opCtx, trackID)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("トラック %s の論文取得に失敗: %w", trackID, err)
	}

	perWork, failed := joinAll(ctx, n.opts.FanoutLimit, works, func(ctx context.Context, w AuthorWork) outcome[[]NotificationJob, error] {
		opCtx, cancel := n.opts.withTimeout(ctx)
		defer cancel()

		reviewers, err := n.store.ListReviewers(opCtx, w.ID)
		if err != nil {
			return failedWith[[]NotificationJob](fmt.Errorf("論文 %s の査読者取得に失敗: %w", w.ID, err))
		}
		jobs := make([]NotificationJob, 0, len(reviewers))
		for _, r := range reviewers {
			jobs = append(jobs, RenderJob(trackID, w, r, nc, n.links))
		}
		return succeeded[[]NotificationJob, error](jobs)
	})
	if len(failed) > 0 {
		return nil, failed[0]
	}

	var jobs []NotificationJob
	for _, js := range perWork {
		jobs = append(jobs, js...)
	}
	return jobs, nil
}

// dispatch は1ジョブを送信し、結果を監査イベントとして記録する。
func (n *Notifier) dispatch(ctx context.Context, job NotificationJob) outcome[Receipt, *DeliveryError] {
	messageID, err := n.send(ctx, job)
	if err != nil {
		de := newDeliveryError(job, err)
		log.Printf("[Notify] %v", de)
		n.record(ctx, job, event.TypeReviewRequestFailed, event.ReviewRequestFailedData{
			TrackID:    job.TrackID,
			ReviewerID: job.Reviewer.ID,
			Reason:     de.Reason,
		})
		return failedWith[Receipt](de)
	}

	n.record(ctx, job, event.TypeReviewRequestSent, event.ReviewRequestSentData{
		TrackID:    job.TrackID,
		ReviewerID: job.Reviewer.ID,
		MessageID:  messageID,
	})
	return succeeded[Receipt, *DeliveryError](Receipt{
		MessageID:    messageID,
		AuthorWorkID: job.Work.ID,
		ReviewerID:   job.Reviewer.ID,
		Recipient:    job.Reviewer.Email,
		SentAt:       n.now(),
	})
}

func (n *Notifier) send(ctx context.Context, job NotificationJob) (string, error) {
	if job.Message.To == "" {
		return "", ErrNoRecipient
	}
	opCtx, cancel := n.opts.withTimeout(ctx)
	defer cancel()
	return n.transport.Send(opCtx, job.Message)
}

func (n *Notifier) record(ctx context.Context, job NotificationJob, typ event.Type, data any) {
	if err := appendEvent(ctx, n.store, n.opts, event.AggregateTypeAuthorWork, job.Work.ID, typ, data); err != nil {
		log.Printf("[Notify] イベント記録に失敗: authorwork=%s, reviewer=%s: %v", job.Work.ID, job.Reviewer.ID, err)
	}
}
