package mailer

import (
	"errors"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/nao1215/reviewdesk/internal/review"
	"github.com/nao1215/reviewdesk/pkg/httpclient"
)

// 選択可能なトランスポート名
const (
	KindSMTP  = "smtp"
	KindRelay = "relay"
	KindLog   = "log"
)

// ErrClosed はClose後に送信しようとしたことを表す。
var ErrClosed = errors.New("トランスポートは既に閉じられています")

// Mailer はライフサイクルを持つトランスポート。
type Mailer interface {
	review.Transport
	// Name はトランスポートの種類を返す。
	Name() string
	// Close は送信中のメッセージの完了を待ってから資源を解放する。
	Close() error
}

// Config はトランスポートの設定。環境変数から読み込む。
type Config struct {
	// Transport は使用するトランスポート（smtp, relay, log）。
	Transport string `env:"REVIEW_MAIL_TRANSPORT" envDefault:"log"`
	// From は差出人アドレス。
	From string `env:"REVIEW_MAIL_FROM" envDefault:"noreply@localhost"`

	SMTPHost     string `env:"REVIEW_SMTP_HOST" envDefault:"smtp.gmail.com"`
	SMTPPort     int    `env:"REVIEW_SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"REVIEW_SMTP_USERNAME"`
	SMTPPassword string `env:"REVIEW_SMTP_PASSWORD"`

	// RelayURL はHTTPメールリレーのベースURL。
	RelayURL string `env:"REVIEW_RELAY_URL"`
	// RelayAPIKey はリレーに送るBearerトークン。
	RelayAPIKey string `env:"REVIEW_RELAY_API_KEY"`
}

// Validate は選択されたトランスポートに必要な項目が揃っているかを検証する。
func (c Config) Validate() error {
	switch c.Transport {
	case KindSMTP:
		if c.SMTPHost == "" {
			return errors.New("REVIEW_SMTP_HOST が未設定です")
		}
		if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
			return fmt.Errorf("REVIEW_SMTP_PORT が不正です: %d", c.SMTPPort)
		}
		if c.From == "" {
			return errors.New("REVIEW_MAIL_FROM が未設定です")
		}
	case KindRelay:
		if c.RelayURL == "" {
			return errors.New("REVIEW_RELAY_URL が未設定です")
		}
		if c.From == "" {
			return errors.New("REVIEW_MAIL_FROM が未設定です")
		}
	case KindLog:
	default:
		return fmt.Errorf("未知のトランスポートです: %q", c.Transport)
	}
	return nil
}

// New は設定に従ってトランスポートを生成する。
// timeoutが正ならSMTPの接続とリレーへのリクエストの上限時間として使う。
func New(cfg Config, timeout time.Duration) (Mailer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Transport {
	case KindSMTP:
		var opts []mail.Option
		if timeout > 0 {
			opts = append(opts, mail.WithTimeout(timeout))
		}
		return NewSMTPTransport(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.From, opts...)
	case KindRelay:
		var opts []httpclient.Option
		if timeout > 0 {
			opts = append(opts, httpclient.WithTimeout(timeout))
		}
		return NewRelayTransport(cfg.RelayURL, cfg.RelayAPIKey, cfg.From, opts...), nil
	default:
		return NewLogTransport(), nil
	}
}
