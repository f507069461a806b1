package mailer

import (
	"context"
	"log"

	"github.com/google/uuid"

	"github.com/nao1215/reviewdesk/internal/review"
)

// LogTransport は送信せずにメッセージをログに出力する。ローカル開発用。
type LogTransport struct {
	logf func(format string, args ...any)
}

// NewLogTransport は新しいLogTransportを生成する。
func NewLogTransport() *LogTransport {
	return &LogTransport{logf: log.Printf}
}

// Name はトランスポートの種類を返す。
func (t *LogTransport) Name() string { return KindLog }

// Send はメッセージをログに出力し、生成したIDを返す。
func (t *LogTransport) Send(ctx context.Context, msg review.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := uuid.New().String()
	t.logf("[Mailer] id=%s to=%s subject=%q\n%s", id, msg.To, msg.Subject, msg.Body)
	return id, nil
}

// Close は何もしない。
func (t *LogTransport) Close() error { return nil }
