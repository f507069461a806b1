package mailer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wneessen/go-mail"

	"github.com/nao1215/reviewdesk/internal/review"
)

// sendFunc はmail.Client.DialAndSendWithContextと同じシグネチャの送信関数。
type sendFunc func(ctx context.Context, msgs ...*mail.Msg) error

// SMTPTransport はSMTPサーバー経由でメールを送信する。
// 1通ごとに接続し、ユーザー名が設定されていればPLAIN認証を行う。
type SMTPTransport struct {
	host string
	from string
	send sendFunc
	now  func() time.Time

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// NewSMTPTransport は新しいSMTPTransportを生成する。usernameが空なら認証しない。
// optsはクライアントの既定の設定の後に適用される。
func NewSMTPTransport(host string, port int, username, password, from string, opts ...mail.Option) (*SMTPTransport, error) {
	clientOpts := []mail.Option{
		mail.WithPort(port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if username != "" {
		clientOpts = append(clientOpts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(username),
			mail.WithPassword(password),
		)
	}
	clientOpts = append(clientOpts, opts...)

	client, err := mail.NewClient(host, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("SMTPクライアントの生成に失敗: %w", err)
	}
	return &SMTPTransport{
		host: host,
		from: from,
		send: client.DialAndSendWithContext,
		now:  time.Now,
	}, nil
}

// Name はトランスポートの種類を返す。
func (t *SMTPTransport) Name() string { return KindSMTP }

// Send はメッセージを1通送信し、付与したMessage-IDを返す。
// 接続から送信完了までctxに従い、ctxが終わればその時点で打ち切る。
func (t *SMTPTransport) Send(ctx context.Context, msg review.Message) (string, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return "", ErrClosed
	}
	t.inflight.Add(1)
	t.mu.Unlock()
	defer t.inflight.Done()

	m, messageID, err := t.newMsg(msg)
	if err != nil {
		return "", err
	}
	if err := t.send(ctx, m); err != nil {
		return "", fmt.Errorf("SMTP送信に失敗 (to=%s): %w", msg.To, err)
	}
	return messageID, nil
}

// newMsg はテキストメールを組み立て、付与したMessage-IDとともに返す。
func (t *SMTPTransport) newMsg(msg review.Message) (*mail.Msg, string, error) {
	m := mail.NewMsg()
	if err := m.From(t.from); err != nil {
		return nil, "", fmt.Errorf("差出人アドレスが不正です: %w", err)
	}
	if err := m.AddToFormat(msg.ToName, msg.To); err != nil {
		return nil, "", fmt.Errorf("宛先アドレスが不正です (to=%s): %w", msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)

	id := uuid.New().String() + "@" + t.host
	m.SetMessageIDWithValue(id)
	m.SetDateWithValue(t.now())
	return m, "<" + id + ">", nil
}

// Close は送信中のメッセージの完了を待つ。以降のSendはErrClosedを返す。
func (t *SMTPTransport) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.inflight.Wait()
	return nil
}
