package review

import (
	"slices"
	"time"
)

// AuthorWork は投稿された論文。Reviewersは重複を含まない査読者IDの集合。
type AuthorWork struct {
	// ID は論文の一意識別子。
	ID string `json:"id"`
	// Title は論文タイトル。
	Title string `json:"title"`
	// Abstract は論文の概要。
	Abstract string `json:"abstract"`
	// Name は著者名。
	Name string `json:"name"`
	// PDFLink は論文PDFの保存先。未登録なら空。
	PDFLink string `json:"pdf_link,omitempty"`
	// Reviewers は割り当て済みの査読者IDを割り当て順に並べたもの。
	Reviewers []string `json:"reviewers"`
}

// HasReviewer はreviewerIDが既に割り当てられているかを返す。
func (w AuthorWork) HasReviewer(reviewerID string) bool {
	return slices.Contains(w.Reviewers, reviewerID)
}

// Member は委員会メンバー（査読者）。このパッケージからは読み取り専用。
type Member struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Track は論文を束ねる会議のトラック。AuthorWorkIDsは登録順。
type Track struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	AuthorWorkIDs []string `json:"author_works"`
}

// AllotmentRequest は1組分の割り当て要求。
type AllotmentRequest struct {
	ReviewerID   string `json:"reviewer_id"`
	AuthorWorkID string `json:"authorwork_id"`
	// AllottedBy は割り当てを行った委員のメンバーID。監査イベントにだけ記録される。
	AllottedBy string `json:"-"`
}

// AllotmentResult はバッチ全体の割り当て結果。
// 入力の各組はAcceptedかRejectedのどちらか一方に必ず1回だけ現れる。
type AllotmentResult struct {
	// Accepted は割り当てに成功した組の更新後の論文。
	Accepted []AuthorWork `json:"results"`
	// Rejected は割り当てられなかった組とその理由。
	Rejected []*AllotmentError `json:"errors"`
}

// HasRejections は1件でも拒否された組があるかを返す。
func (r AllotmentResult) HasRejections() bool {
	return len(r.Rejected) > 0
}

// NotifyContext は依頼メッセージに差し込む送信者側の情報。
type NotifyContext struct {
	// Date は査読の締め切り日（表示用の文字列）。
	Date string `json:"date"`
	// SenderName は署名に使う送信者名。
	SenderName string `json:"name"`
	// Designation は送信者の肩書き。空なら署名に含めない。
	Designation string `json:"designation"`
}

// Message はトランスポートに渡すレンダリング済みのメッセージ。
type Message struct {
	To      string
	ToName  string
	Subject string
	Body    string
}

// NotificationJob は (論文, 査読者) 1組分の送信ジョブ。
type NotificationJob struct {
	TrackID    string
	Work       AuthorWork
	Reviewer   Member
	AcceptLink string
	RejectLink string
	Message    Message
}

// Receipt は1件の送信成功の記録。
type Receipt struct {
	// MessageID はトランスポートが払い出したメッセージID。
	MessageID string `json:"message_id"`
	// AuthorWorkID は依頼対象の論文ID。
	AuthorWorkID string `json:"authorwork_id"`
	// ReviewerID は送信先の査読者ID。
	ReviewerID string `json:"reviewer_id"`
	// Recipient は送信先メールアドレス。
	Recipient string `json:"recipient"`
	// SentAt は送信完了日時。
	SentAt time.Time `json:"sent_at"`
}

// NotificationReport はトラック単位の送信結果。
type NotificationReport struct {
	Sent   []Receipt        `json:"sent"`
	Failed []*DeliveryError `json:"failed"`
}

// AllSent は全ジョブの送信に成功したかを返す。ジョブが0件の場合もtrue。
func (r NotificationReport) AllSent() bool {
	return len(r.Failed) == 0
}
