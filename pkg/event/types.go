// Package event は査読割り当てドメインの監査イベントを定義する。
//
// 割り当ての確定や依頼メールの送信結果をイベントとして記録し、
// 後から「誰がいつどの論文に割り当てられ、依頼が届いたか」を追跡できるようにする。
package event

import (
	"encoding/json"
	"time"
)

// AggregateType はイベントの対象となるエンティティの種類を表す。
type AggregateType string

const (
	// AggregateTypeAuthorWork は投稿論文エンティティを表す。
	AggregateTypeAuthorWork AggregateType = "AuthorWork"
	// AggregateTypeTrack はトラックエンティティを表す。
	AggregateTypeTrack AggregateType = "Track"
)

// Type はイベントの種類を表す。
type Type string

const (
	// TypeReviewerAllotted は査読者が論文に割り当てられたことを表す。
	TypeReviewerAllotted Type = "ReviewerAllotted"
	// TypeReviewRequestSent は査読依頼メールの送信に成功したことを表す。
	TypeReviewRequestSent Type = "ReviewRequestSent"
	// TypeReviewRequestFailed は査読依頼メールの送信に失敗したことを表す。
	TypeReviewRequestFailed Type = "ReviewRequestFailed"
	// TypeReviewRequestsDispatched はトラック単位の一斉送信が完了したことを表す。
	TypeReviewRequestsDispatched Type = "ReviewRequestsDispatched"
)

// Event は監査ログとして永続化される不変のイベントレコード。
type Event struct {
	// ID はイベントの一意識別子（UUID）。
	ID string `json:"id"`
	// AggregateID は対象エンティティの識別子。
	AggregateID string `json:"aggregate_id"`
	// AggregateType は対象エンティティの種類。
	AggregateType AggregateType `json:"aggregate_type"`
	// EventType はイベントの種類。
	EventType Type `json:"event_type"`
	// Data はイベント固有のデータ（JSON形式）。
	Data json.RawMessage `json:"data"`
	// CreatedAt はイベントが作成された日時。
	CreatedAt time.Time `json:"created_at"`
}

// ReviewerAllottedData はReviewerAllottedイベントのデータ。
type ReviewerAllottedData struct {
	// ReviewerID は割り当てられた査読者のID。
	ReviewerID string `json:"reviewer_id"`
	// AllottedBy は割り当てを行った委員のメンバーID。認証なしの場合は空。
	AllottedBy string `json:"allotted_by,omitempty"`
}

// ReviewRequestSentData はReviewRequestSentイベントのデータ。
type ReviewRequestSentData struct {
	// TrackID は送信バッチの対象トラックID。
	TrackID string `json:"track_id"`
	// ReviewerID は送信先の査読者ID。
	ReviewerID string `json:"reviewer_id"`
	// MessageID はトランスポートが返したメッセージID。
	MessageID string `json:"message_id"`
}

// ReviewRequestFailedData はReviewRequestFailedイベントのデータ。
type ReviewRequestFailedData struct {
	// TrackID は送信バッチの対象トラックID。
	TrackID string `json:"track_id"`
	// ReviewerID は送信先の査読者ID。
	ReviewerID string `json:"reviewer_id"`
	// Reason は送信失敗の理由。
	Reason string `json:"reason"`
}

// ReviewRequestsDispatchedData はReviewRequestsDispatchedイベントのデータ。
type ReviewRequestsDispatchedData struct {
	// Sent は送信に成功した件数。
	Sent int `json:"sent"`
	// Failed は送信に失敗した件数。
	Failed int `json:"failed"`
}
