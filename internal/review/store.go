package review

import (
	"context"
	"time"

	"github.com/nao1215/reviewdesk/pkg/event"
)

// EventRecorder は監査イベントを永続化する。
type EventRecorder interface {
	AppendEvent(ctx context.Context, ev *event.Event) error
}

// AllotmentStore はAllotterが必要とするストア操作。
type AllotmentStore interface {
	EventRecorder
	// AddReviewer は論文の査読者集合にreviewerIDを原子的に追加する（add-if-absent）。
	// 既に含まれていた場合はinserted=falseを返し、何も変更しない。
	// 論文が存在しない場合はErrNotFoundを返す。
	AddReviewer(ctx context.Context, workID, reviewerID string) (work AuthorWork, inserted bool, err error)
}

// NotificationStore はNotifierが必要とする読み出し操作。
type NotificationStore interface {
	EventRecorder
	// ListTrackWorks はトラックに属する論文をトラック内の順序で返す。
	// トラックが存在しない場合はErrNotFoundを返す。
	ListTrackWorks(ctx context.Context, trackID string) ([]AuthorWork, error)
	// ListReviewers は論文に割り当て済みの査読者を割り当て順に返す。
	// メンバーとして存在しないIDは結果に含めない。
	ListReviewers(ctx context.Context, workID string) ([]Member, error)
}

// Transport はレンダリング済みメッセージを1通送信する。
// 成功時はトランスポート側のメッセージIDを返す。再送は行わない。
type Transport interface {
	Send(ctx context.Context, msg Message) (messageID string, err error)
}

// Options は両エンジン共通の実行パラメータ。
type Options struct {
	// FanoutLimit は同時に実行するストア操作・送信の上限。0以下なら無制限。
	FanoutLimit int
	// OperationTimeout はストア操作・送信1件ごとのタイムアウト。0以下なら無制限。
	OperationTimeout time.Duration
}

// withTimeout はOperationTimeoutが設定されていればctxに期限を付ける。
func (o Options) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.OperationTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.OperationTimeout)
}
