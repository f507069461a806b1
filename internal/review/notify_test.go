package review

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/reviewdesk/pkg/event"
)

// testLinks はテスト用の承諾・辞退リンクのベースURL。
var testLinks = Links{
	AcceptURL: "https://cms.example.com/review-format",
	RejectURL: "https://cms.example.com/reject",
}

// testContext はテスト用の送信者情報。
var testContext = NotifyContext{Date: "2026-11-30", SenderName: "Program Chair", Designation: "ICSE 2027"}

// TestNotify はNotifierの一斉送信を検証する。
func TestNotify(t *testing.T) {
	t.Parallel()

	t.Run("論文と査読者の組ごとに1通送信されること", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		store.addMember(Member{ID: "r1", Name: "Alice", Email: "alice@example.com"})
		store.addMember(Member{ID: "r2", Name: "Bob", Email: "bob@example.com"})
		store.addWork(AuthorWork{ID: "w1", Title: "T", Abstract: "A", Name: "N", Reviewers: []string{"r1"}})
		store.addWork(AuthorWork{ID: "w2", Title: "T2", Reviewers: []string{"r1", "r2"}})
		store.addWork(AuthorWork{ID: "w3", Title: "no reviewers"})
		store.addTrack("t1", "w1", "w2", "w3")
		transport := &fakeTransport{}

		report, err := NewNotifier(store, transport, testLinks, Options{FanoutLimit: 2}).Notify(t.Context(), "t1", testContext)
		if err != nil {
			t.Fatalf("Notify()でエラーが発生: %v", err)
		}

		if len(report.Sent) != 3 {
			t.Errorf("Sent = %d件, want 3", len(report.Sent))
		}
		if !report.AllSent() {
			t.Errorf("Failed = %+v, want 0件", report.Failed)
		}
		if n := len(transport.messages()); n != 3 {
			t.Errorf("送信数 = %d, want 3", n)
		}
		if report.Sent[0].AuthorWorkID != "w1" || report.Sent[0].ReviewerID != "r1" {
			t.Errorf("Sent[0] = %+v, want w1/r1", report.Sent[0])
		}
		if report.Sent[0].MessageID != "msg-alice@example.com" {
			t.Errorf("MessageID = %q", report.Sent[0].MessageID)
		}
		if n := len(store.eventsOf(event.TypeReviewRequestSent)); n != 3 {
			t.Errorf("ReviewRequestSentイベント = %d件, want 3", n)
		}
	})

	t.Run("論文のないトラックでは空の結果で成功すること", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		store.addTrack("empty")
		transport := &fakeTransport{}

		report, err := NewNotifier(store, transport, testLinks, Options{}).Notify(t.Context(), "empty", testContext)
		if err != nil {
			t.Fatalf("Notify()でエラーが発生: %v", err)
		}
		if report.Sent == nil || len(report.Sent) != 0 {
			t.Errorf("Sent = %v, want 空スライス", report.Sent)
		}
		if !report.AllSent() {
			t.Error("AllSent() = false, want true")
		}
	})

	t.Run("査読者のいない論文だけのトラックでは何も送信しないこと", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		store.addWork(AuthorWork{ID: "w1"})
		store.addTrack("t1", "w1")
		transport := &fakeTransport{}

		report, err := NewNotifier(store, transport, testLinks, Options{}).Notify(t.Context(), "t1", testContext)
		if err != nil {
			t.Fatalf("Notify()でエラーが発生: %v", err)
		}
		if len(report.Sent) != 0 || len(transport.messages()) != 0 {
			t.Errorf("Sent = %d, 送信数 = %d, want 0/0", len(report.Sent), len(transport.messages()))
		}
	})

	t.Run("存在しないトラックではErrNotFoundを返し送信しないこと", func(t *testing.T) {
		t.Parallel()

		transport := &fakeTransport{}
		_, err := NewNotifier(newMemStore(), transport, testLinks, Options{}).Notify(t.Context(), "missing", testContext)
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
		if len(transport.messages()) != 0 {
			t.Error("トラックが無いのに送信された")
		}
	})

	t.Run("存在しないトラックでは一斉送信イベントを記録しないこと", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		_, _ = NewNotifier(store, &fakeTransport{}, testLinks, Options{}).Notify(t.Context(), "missing", testContext)
		if n := len(store.eventsOf(event.TypeReviewRequestsDispatched)); n != 0 {
			t.Errorf("ReviewRequestsDispatchedイベント = %d件, want 0", n)
		}
	})

	t.Run("2通中1通が失敗した場合は1件ずつ報告されること", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		store.addMember(Member{ID: "r1", Email: "ok@example.com"})
		store.addMember(Member{ID: "r2", Email: "bounce@example.com"})
		store.addWork(AuthorWork{ID: "w1", Reviewers: []string{"r1", "r2"}})
		store.addTrack("t1", "w1")
		cause := errors.New("550 mailbox unavailable")
		transport := &fakeTransport{failFor: map[string]error{"bounce@example.com": cause}}

		report, err := NewNotifier(store, transport, testLinks, Options{}).Notify(t.Context(), "t1", testContext)
		if err != nil {
			t.Fatalf("Notify()でエラーが発生: %v", err)
		}
		if len(report.Sent) != 1 || report.Sent[0].ReviewerID != "r1" {
			t.Errorf("Sent = %+v, want r1の1件", report.Sent)
		}
		if len(report.Failed) != 1 {
			t.Fatalf("Failed = %d件, want 1", len(report.Failed))
		}
		failed := report.Failed[0]
		if failed.ReviewerID != "r2" || failed.AuthorWorkID != "w1" || failed.Recipient != "bounce@example.com" {
			t.Errorf("Failed[0] = %+v", failed)
		}
		if !errors.Is(failed, cause) {
			t.Error("errors.Is(failed, cause) = false")
		}
		if report.AllSent() {
			t.Error("AllSent() = true, want false")
		}
		if n := len(store.eventsOf(event.TypeReviewRequestFailed)); n != 1 {
			t.Errorf("ReviewRequestFailedイベント = %d件, want 1", n)
		}

		dispatched := store.eventsOf(event.TypeReviewRequestsDispatched)
		if len(dispatched) != 1 {
			t.Fatalf("ReviewRequestsDispatchedイベント = %d件, want 1", len(dispatched))
		}
		if dispatched[0].AggregateType != event.AggregateTypeTrack || dispatched[0].AggregateID != "t1" {
			t.Errorf("aggregate = %s/%s, want Track/t1", dispatched[0].AggregateType, dispatched[0].AggregateID)
		}
		summary, err := event.DecodeData[event.ReviewRequestsDispatchedData](dispatched[0])
		if err != nil {
			t.Fatalf("DecodeData()でエラーが発生: %v", err)
		}
		if summary.Sent != 1 || summary.Failed != 1 {
			t.Errorf("summary = %+v, want sent=1 failed=1", summary)
		}
	})

	t.Run("メールアドレスのない査読者は送信せずに失敗として報告されること", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		store.addMember(Member{ID: "r1"})
		store.addWork(AuthorWork{ID: "w1", Reviewers: []string{"r1"}})
		store.addTrack("t1", "w1")
		transport := &fakeTransport{}

		report, err := NewNotifier(store, transport, testLinks, Options{}).Notify(t.Context(), "t1", testContext)
		if err != nil {
			t.Fatalf("Notify()でエラーが発生: %v", err)
		}
		if len(report.Failed) != 1 || !errors.Is(report.Failed[0], ErrNoRecipient) {
			t.Errorf("Failed = %+v, want ErrNoRecipientの1件", report.Failed)
		}
		if len(transport.messages()) != 0 {
			t.Error("宛先がないのに送信された")
		}
	})

	t.Run("送信がタイムアウトした場合はそのジョブだけ失敗すること", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		store.addMember(Member{ID: "r1", Email: "slow@example.com"})
		store.addWork(AuthorWork{ID: "w1", Reviewers: []string{"r1"}})
		store.addTrack("t1", "w1")
		transport := &fakeTransport{block: true}

		opts := Options{OperationTimeout: 20 * time.Millisecond}
		report, err := NewNotifier(store, transport, testLinks, opts).Notify(t.Context(), "t1", testContext)
		if err != nil {
			t.Fatalf("Notify()でエラーが発生: %v", err)
		}
		if len(report.Failed) != 1 || !errors.Is(report.Failed[0], context.DeadlineExceeded) {
			t.Errorf("Failed = %+v, want DeadlineExceededの1件", report.Failed)
		}
	})

	t.Run("査読者の取得に失敗した場合は1通も送信せずエラーを返すこと", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		store.addMember(Member{ID: "r1", Email: "alice@example.com"})
		store.addWork(AuthorWork{ID: "w1", Reviewers: []string{"r1"}})
		store.addWork(AuthorWork{ID: "w2", Reviewers: []string{"r1"}})
		store.addTrack("t1", "w1", "w2")
		store.failReviewers["w2"] = true
		transport := &fakeTransport{}

		_, err := NewNotifier(store, transport, testLinks, Options{}).Notify(t.Context(), "t1", testContext)
		if err == nil {
			t.Fatal("Notify()がエラーを返すべきだが、nilが返った")
		}
		if errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, ErrNotFoundであってはならない", err)
		}
		if len(transport.messages()) != 0 {
			t.Error("読み出し失敗時に送信された")
		}
	})
}

// TestNotifyRendersMessage は送信されるメッセージの内容を検証する。
func TestNotifyRendersMessage(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.addMember(Member{ID: "r1", Name: "Alice", Email: "alice@example.com"})
	store.addWork(AuthorWork{ID: "w1", Title: "T", Abstract: "A", Name: "Author N", Reviewers: []string{"r1"}})
	store.addTrack("t1", "w1")
	transport := &fakeTransport{}

	if _, err := NewNotifier(store, transport, testLinks, Options{}).Notify(t.Context(), "t1", testContext); err != nil {
		t.Fatalf("Notify()でエラーが発生: %v", err)
	}

	msgs := transport.messages()
	if len(msgs) != 1 {
		t.Fatalf("送信数 = %d, want 1", len(msgs))
	}
	msg := msgs[0]
	if msg.To != "alice@example.com" {
		t.Errorf("To = %q", msg.To)
	}
	for _, want := range []string{"w1", "T", "A", "Author N", "2026-11-30", "send by: Program Chair"} {
		if !strings.Contains(msg.Body, want) {
			t.Errorf("本文に %q が含まれていない:\n%s", want, msg.Body)
		}
	}
	if n := strings.Count(msg.Body, "reviewerId=r1&authorWorkId=w1"); n != 2 {
		t.Errorf("リンクの数 = %d, want 2:\n%s", n, msg.Body)
	}
}
