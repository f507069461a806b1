// Package config は環境変数からサービスの設定を読み込む。
//
// 読み込んだConfigはcmdからストア・トランスポート・エンジン・サーバーへ明示的に渡し、
// 各パッケージが環境変数を直接参照することはない。
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/nao1215/reviewdesk/internal/mailer"
	"github.com/nao1215/reviewdesk/internal/review"
)

// 選択可能なストア名
const (
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"
)

// Config はサービス全体の設定。
type Config struct {
	// Port はHTTPサーバーのリッスンポート。
	Port string `env:"PORT" envDefault:"8080"`

	// Store は使用するストア（sqlite, mongo）。
	Store     string `env:"REVIEW_STORE" envDefault:"sqlite"`
	SQLiteDSN string `env:"REVIEW_SQLITE_DSN" envDefault:"review.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"`
	MongoURI  string `env:"REVIEW_MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDB   string `env:"REVIEW_MONGO_DATABASE" envDefault:"cms"`

	// Mail は査読依頼の送信経路の設定。
	Mail mailer.Config

	// AcceptURL は承諾リンクのベースURL。
	AcceptURL string `env:"REVIEW_ACCEPT_URL" envDefault:"https://cms-alpha-sand.vercel.app/review-format"`
	// RejectURL は辞退リンクのベースURL。
	RejectURL string `env:"REVIEW_REJECT_URL" envDefault:"http://example.com/reject"`

	// FanoutLimit は同時に実行するストア操作・送信の上限。
	FanoutLimit int `env:"REVIEW_FANOUT_LIMIT" envDefault:"8"`
	// OperationTimeout はストア操作・送信1件ごとのタイムアウト。
	OperationTimeout time.Duration `env:"REVIEW_OPERATION_TIMEOUT" envDefault:"10s"`

	// JWTSecret が設定されている場合のみAPIをJWTで保護する。
	JWTSecret string `env:"REVIEW_JWT_SECRET"`
	// CORSOrigins は許可するオリジン。"*" で全許可。
	CORSOrigins []string `env:"REVIEW_CORS_ORIGINS" envSeparator:"," envDefault:"*"`
}

// ParseEnv は環境変数をtargetに読み込む。
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("環境変数の読み込みに失敗: %w", err)
	}
	return nil
}

// Load は環境変数から設定を読み込み、検証済みのConfigを返す。
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("設定が不正です: %w", err)
	}
	return cfg, nil
}

// Validate は設定値の整合性を検証する。
func (c Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT が未設定です")
	}
	switch c.Store {
	case StoreSQLite:
		if c.SQLiteDSN == "" {
			return errors.New("REVIEW_SQLITE_DSN が未設定です")
		}
	case StoreMongo:
		if c.MongoURI == "" || c.MongoDB == "" {
			return errors.New("REVIEW_MONGO_URI と REVIEW_MONGO_DATABASE が必要です")
		}
	default:
		return fmt.Errorf("未知のストアです: %q", c.Store)
	}
	if err := validateBaseURL("REVIEW_ACCEPT_URL", c.AcceptURL); err != nil {
		return err
	}
	if err := validateBaseURL("REVIEW_REJECT_URL", c.RejectURL); err != nil {
		return err
	}
	if c.FanoutLimit < 1 {
		return fmt.Errorf("REVIEW_FANOUT_LIMIT は1以上が必要です: %d", c.FanoutLimit)
	}
	if c.OperationTimeout <= 0 {
		return fmt.Errorf("REVIEW_OPERATION_TIMEOUT は正の値が必要です: %s", c.OperationTimeout)
	}
	return c.Mail.Validate()
}

func validateBaseURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s が不正です: %w", name, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s は絶対URLで指定してください: %q", name, raw)
	}
	return nil
}

// ReviewOptions はエンジンの実行パラメータを返す。
func (c Config) ReviewOptions() review.Options {
	return review.Options{
		FanoutLimit:      c.FanoutLimit,
		OperationTimeout: c.OperationTimeout,
	}
}

// Links は承諾・辞退リンクのベースURLを返す。
func (c Config) Links() review.Links {
	return review.Links{AcceptURL: c.AcceptURL, RejectURL: c.RejectURL}
}
