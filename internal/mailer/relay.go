package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/nao1215/reviewdesk/internal/review"
	"github.com/nao1215/reviewdesk/pkg/httpclient"
)

// relayPath はメールリレーの送信エンドポイント。
const relayPath = "/v1/messages"

// relayRequest はメールリレーへの送信リクエスト。
type relayRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	ToName  string `json:"to_name,omitempty"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// relayResponse はメールリレーの応答。
type relayResponse struct {
	ID string `json:"id"`
}

// RelayTransport はHTTPのメールリレーAPIにJSONで送信を依頼する。
type RelayTransport struct {
	client *httpclient.Client
	from   string
}

// NewRelayTransport は新しいRelayTransportを生成する。
func NewRelayTransport(baseURL, apiKey, from string, opts ...httpclient.Option) *RelayTransport {
	if apiKey != "" {
		opts = append(opts, httpclient.WithBearerToken(apiKey))
	}
	return &RelayTransport{
		client: httpclient.New(baseURL, opts...),
		from:   from,
	}
}

// Name はトランスポートの種類を返す。
func (t *RelayTransport) Name() string { return KindRelay }

// Send はメッセージを1通リレーに渡し、リレーが払い出したIDを返す。
func (t *RelayTransport) Send(ctx context.Context, msg review.Message) (string, error) {
	req := relayRequest{
		From:    t.from,
		To:      msg.To,
		ToName:  msg.ToName,
		Subject: msg.Subject,
		Text:    msg.Body,
	}
	var resp relayResponse
	if err := t.client.PostJSON(ctx, relayPath, req, &resp); err != nil {
		return "", fmt.Errorf("メールリレーへの送信に失敗 (to=%s): %w", msg.To, err)
	}
	if resp.ID == "" {
		return "", errors.New("メールリレーがメッセージIDを返しませんでした")
	}
	return resp.ID, nil
}

// Close はアイドル接続を閉じる。
func (t *RelayTransport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}
