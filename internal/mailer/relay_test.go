package mailer

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nao1215/reviewdesk/internal/review"
	"github.com/nao1215/reviewdesk/pkg/httpclient"
)

// TestRelayTransportSend はRelayTransport.Sendを検証する。
func TestRelayTransportSend(t *testing.T) {
	t.Parallel()

	msg := review.Message{To: "alice@example.com", ToName: "Alice", Subject: "S", Body: "B"}

	t.Run("JSONで送信しリレーのIDを返すこと", func(t *testing.T) {
		t.Parallel()

		var (
			got     relayRequest
			gotAuth string
			gotPath string
		)
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotAuth = r.Header.Get("Authorization")
			json.NewDecoder(r.Body).Decode(&got)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":"relay-123"}`))
		}))
		defer ts.Close()

		tr := NewRelayTransport(ts.URL, "key", "cms@example.com")
		defer tr.Close()

		id, err := tr.Send(t.Context(), msg)
		if err != nil {
			t.Fatalf("Send()でエラーが発生: %v", err)
		}
		if id != "relay-123" {
			t.Errorf("id = %q, want relay-123", id)
		}
		if gotPath != relayPath {
			t.Errorf("path = %q, want %q", gotPath, relayPath)
		}
		if gotAuth != "Bearer key" {
			t.Errorf("Authorization = %q", gotAuth)
		}
		want := relayRequest{From: "cms@example.com", To: "alice@example.com", ToName: "Alice", Subject: "S", Text: "B"}
		if got != want {
			t.Errorf("request = %+v, want %+v", got, want)
		}
	})

	t.Run("リレーのエラー応答はStatusErrorとして返すこと", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer ts.Close()

		_, err := NewRelayTransport(ts.URL, "", "cms@example.com").Send(t.Context(), msg)
		var statusErr *httpclient.StatusError
		if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("err = %v, want 503のStatusError", err)
		}
	})

	t.Run("IDのない応答はエラーにすること", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{}`))
		}))
		defer ts.Close()

		if _, err := NewRelayTransport(ts.URL, "", "cms@example.com").Send(t.Context(), msg); err == nil {
			t.Fatal("Send()がエラーを返すべきだが、nilが返った")
		}
	})
}
