package review

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound は論文・トラックなどの参照先が存在しないことを表す。
	ErrNotFound = errors.New("対象が見つかりません")
	// ErrDuplicateAssignment は査読者が既に論文に割り当て済みであることを表す。
	ErrDuplicateAssignment = errors.New("査読者は既に割り当て済みです")
	// ErrNoRecipient は査読者にメールアドレスが登録されていないことを表す。
	ErrNoRecipient = errors.New("送信先メールアドレスがありません")
	// ErrInvalidID はIDの形式がストアの要求を満たさないことを表す。
	ErrInvalidID = errors.New("IDの形式が不正です")
)

// RejectionKind は割り当てが拒否された理由の分類。
type RejectionKind string

const (
	// RejectionDuplicate は同じ組が既に割り当て済みだったことを表す。
	RejectionDuplicate RejectionKind = "duplicate"
	// RejectionNotFound は論文が存在しなかったことを表す。
	RejectionNotFound RejectionKind = "not_found"
	// RejectionInvalid は査読者IDまたは論文IDの形式が不正だったことを表す。
	RejectionInvalid RejectionKind = "invalid"
	// RejectionInternal はストア障害など想定外の失敗を表す。
	RejectionInternal RejectionKind = "internal"
)

// AllotmentError は1組分の割り当て拒否。Messageは利用者向けの文言。
type AllotmentError struct {
	Kind         RejectionKind `json:"kind"`
	ReviewerID   string        `json:"reviewer_id"`
	AuthorWorkID string        `json:"authorwork_id"`
	Message      string        `json:"error"`
	cause        error
}

// Error はerrorインターフェースを実装する。
func (e *AllotmentError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap は原因となったエラーを返す。
func (e *AllotmentError) Unwrap() error {
	return e.cause
}

// newAllotmentError はストアから返ったエラーを分類してAllotmentErrorに変換する。
func newAllotmentError(req AllotmentRequest, err error) *AllotmentError {
	ae := &AllotmentError{
		ReviewerID:   req.ReviewerID,
		AuthorWorkID: req.AuthorWorkID,
		cause:        err,
	}
	switch {
	case errors.Is(err, ErrDuplicateAssignment):
		ae.Kind = RejectionDuplicate
		ae.Message = fmt.Sprintf("査読者 %s は論文 %s に既に割り当てられています", req.ReviewerID, req.AuthorWorkID)
	case errors.Is(err, ErrNotFound):
		ae.Kind = RejectionNotFound
		ae.Message = fmt.Sprintf("論文 %s が見つかりません", req.AuthorWorkID)
	case errors.Is(err, ErrInvalidID):
		ae.Kind = RejectionInvalid
		ae.Message = fmt.Sprintf("査読者ID %s または論文ID %s の形式が不正です", req.ReviewerID, req.AuthorWorkID)
	default:
		ae.Kind = RejectionInternal
		ae.Message = fmt.Sprintf("査読者 %s の論文 %s への割り当てに失敗しました", req.ReviewerID, req.AuthorWorkID)
	}
	return ae
}

// DeliveryError は1ジョブ分の送信失敗。Causeはトランスポートのエラーそのもの。
type DeliveryError struct {
	AuthorWorkID string `json:"authorwork_id"`
	ReviewerID   string `json:"reviewer_id"`
	Recipient    string `json:"recipient"`
	Reason       string `json:"error"`
	Cause        error  `json:"-"`
}

func newDeliveryError(job NotificationJob, cause error) *DeliveryError {
	return &DeliveryError{
		AuthorWorkID: job.Work.ID,
		ReviewerID:   job.Reviewer.ID,
		Recipient:    job.Reviewer.Email,
		Reason:       cause.Error(),
		Cause:        cause,
	}
}

// Error はerrorインターフェースを実装する。
func (e *DeliveryError) Error() string {
	return fmt.Sprintf("査読依頼の送信に失敗 (authorwork=%s, reviewer=%s): %v", e.AuthorWorkID, e.ReviewerID, e.Cause)
}

// Unwrap は原因となったエラーを返す。
func (e *DeliveryError) Unwrap() error {
	return e.Cause
}
