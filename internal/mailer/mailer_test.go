package mailer

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/reviewdesk/internal/review"
)

// TestConfigValidate はConfig.Validateを検証する。
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "logは追加設定なしで有効", cfg: Config{Transport: KindLog}},
		{name: "smtpはホストと差出人があれば有効", cfg: Config{Transport: KindSMTP, SMTPHost: "smtp.example.com", SMTPPort: 587, From: "a@example.com"}},
		{name: "smtpのホスト未設定はエラー", cfg: Config{Transport: KindSMTP, SMTPPort: 587, From: "a@example.com"}, wantErr: "REVIEW_SMTP_HOST"},
		{name: "smtpのポート範囲外はエラー", cfg: Config{Transport: KindSMTP, SMTPHost: "h", SMTPPort: 70000, From: "a@example.com"}, wantErr: "REVIEW_SMTP_PORT"},
		{name: "relayのURL未設定はエラー", cfg: Config{Transport: KindRelay, From: "a@example.com"}, wantErr: "REVIEW_RELAY_URL"},
		{name: "relayの差出人未設定はエラー", cfg: Config{Transport: KindRelay, RelayURL: "http://relay"}, wantErr: "REVIEW_MAIL_FROM"},
		{name: "未知のトランスポートはエラー", cfg: Config{Transport: "fax"}, wantErr: "未知のトランスポート"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate()でエラーが発生: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want %q を含むエラー", err, tt.wantErr)
			}
		})
	}
}

// TestNew は設定に応じたトランスポートが選ばれることを検証する。
func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		cfg  Config
		want string
	}{
		{cfg: Config{Transport: KindLog}, want: KindLog},
		{cfg: Config{Transport: KindSMTP, SMTPHost: "smtp.example.com", SMTPPort: 587, From: "a@example.com"}, want: KindSMTP},
		{cfg: Config{Transport: KindRelay, RelayURL: "http://relay", From: "a@example.com"}, want: KindRelay},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()

			m, err := New(tt.cfg, 5*time.Second)
			if err != nil {
				t.Fatalf("New()でエラーが発生: %v", err)
			}
			defer m.Close()
			if m.Name() != tt.want {
				t.Errorf("Name() = %q, want %q", m.Name(), tt.want)
			}
		})
	}

	t.Run("不正な設定ではエラーを返すこと", func(t *testing.T) {
		t.Parallel()

		if _, err := New(Config{Transport: "fax"}, 0); err == nil {
			t.Fatal("New()がエラーを返すべきだが、nilが返った")
		}
	})
}

// TestNewAppliesTimeout はNewに渡した上限時間がリレーへのリクエストに適用されることを検証する。
func TestNewAppliesTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(release)

	m, err := New(Config{Transport: KindRelay, RelayURL: ts.URL, From: "cms@example.com"}, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("New()でエラーが発生: %v", err)
	}
	defer m.Close()

	begin := time.Now()
	if _, err := m.Send(t.Context(), review.Message{To: "alice@example.com", Subject: "S", Body: "B"}); err == nil {
		t.Fatal("Send()がエラーを返すべきだが、nilが返った")
	}
	if elapsed := time.Since(begin); elapsed > 2*time.Second {
		t.Errorf("タイムアウトまで %v かかった", elapsed)
	}
}
