package server

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/reviewdesk/internal/review"
	"github.com/nao1215/reviewdesk/pkg/middleware"
)

// allotmentItem は割り当てリクエストの1要素。
type allotmentItem struct {
	// ReviewerID は割り当てる査読者のID。
	ReviewerID string `json:"reviewer_id" binding:"required"`
	// AuthorWorkID は割り当て先の論文ID。
	AuthorWorkID string `json:"authorwork_id" binding:"required"`
}

// sendMailsRequest は査読依頼送信のリクエストボディ。
type sendMailsRequest struct {
	// Date は査読の締め切り日。
	Date string `json:"date"`
	// Name は署名に使う送信者名。
	Name string `json:"name"`
	// Designation は送信者の肩書き。
	Designation string `json:"designation"`
}

// handleAllot は査読者を論文に一括で割り当てるハンドラ。
// 全組が成功すれば200、重複・論文不在・ID形式不正の組があれば400、ストア障害があれば500を返す。
// どの場合も成功した組と拒否された組の両方を返す。
func (s *Server) handleAllot() gin.HandlerFunc {
	return func(c *gin.Context) {
		var items []allotmentItem
		if err := c.ShouldBindJSON(&items); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストボディが不正です: " + err.Error()})
			return
		}

		actor := middleware.GetMemberID(c)
		reqs := make([]review.AllotmentRequest, 0, len(items))
		for _, it := range items {
			reqs = append(reqs, review.AllotmentRequest{
				ReviewerID:   it.ReviewerID,
				AuthorWorkID: it.AuthorWorkID,
				AllottedBy:   actor,
			})
		}

		result := s.allotter.Allot(c.Request.Context(), reqs)
		switch {
		case hasInternal(result.Rejected):
			log.Printf("[Allotment] request_id=%s: ストア障害により %d 件中 %d 件が割り当てられませんでした",
				middleware.GetRequestID(c), len(reqs), len(result.Rejected))
			c.JSON(http.StatusInternalServerError, gin.H{
				"message": "査読者の割り当て中に内部エラーが発生しました",
				"results": result.Accepted,
				"errors":  result.Rejected,
			})
		case result.HasRejections():
			c.JSON(http.StatusBadRequest, gin.H{
				"message": "既に割り当て済み、存在しない論文、または不正なIDのため一部の割り当てに失敗しました",
				"results": result.Accepted,
				"errors":  result.Rejected,
			})
		default:
			c.JSON(http.StatusOK, gin.H{
				"message": "査読者を論文に割り当てました",
				"results": result.Accepted,
			})
		}
	}
}

func hasInternal(rejected []*review.AllotmentError) bool {
	for _, r := range rejected {
		if r.Kind == review.RejectionInternal {
			return true
		}
	}
	return false
}

// handleSendMails はトラックに割り当て済みの全査読者へ査読依頼を送るハンドラ。
// 全件送信できれば200、トラックが存在しなければ404、一部でも送信に失敗すれば502を返す。
// ボディが空の場合は日付・署名を空欄として送信する。
func (s *Server) handleSendMails() gin.HandlerFunc {
	return func(c *gin.Context) {
		trackID := c.Param("trackId")

		var req sendMailsRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "リクエストボディが不正です: " + err.Error()})
			return
		}

		report, err := s.notifier.Notify(c.Request.Context(), trackID, review.NotifyContext{
			Date:        req.Date,
			SenderName:  req.Name,
			Designation: req.Designation,
		})
		if errors.Is(err, review.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "トラックが見つかりません"})
			return
		}
		if err != nil {
			log.Printf("[Notify] request_id=%s: 査読依頼の送信準備に失敗: %v", middleware.GetRequestID(c), err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "内部サーバーエラーが発生しました"})
			return
		}

		if !report.AllSent() {
			c.JSON(http.StatusBadGateway, gin.H{
				"message": "一部の査読者への送信に失敗しました",
				"details": report.Sent,
				"errors":  report.Failed,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "全査読者に査読依頼を送信しました",
			"details": report.Sent,
		})
	}
}

// handleGetPDF は論文PDFの保存先を返すハンドラ。
func (s *Server) handleGetPDF() gin.HandlerFunc {
	return func(c *gin.Context) {
		work, ok := s.loadAuthorWork(c, c.Param("authorworkId"))
		if !ok {
			return
		}
		if work.PDFLink == "" {
			c.JSON(http.StatusNotFound, gin.H{"error": "この論文にはPDFが登録されていません"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"pdfUrl": work.PDFLink})
	}
}

// handleGetAuthorWork は論文と割り当て済み査読者IDを返すハンドラ。
func (s *Server) handleGetAuthorWork() gin.HandlerFunc {
	return func(c *gin.Context) {
		work, ok := s.loadAuthorWork(c, c.Param("id"))
		if !ok {
			return
		}
		c.JSON(http.StatusOK, work)
	}
}

// handleListEvents は論文の監査イベントを記録順に返すハンドラ。
func (s *Server) handleListEvents() gin.HandlerFunc {
	return func(c *gin.Context) {
		work, ok := s.loadAuthorWork(c, c.Param("id"))
		if !ok {
			return
		}

		events, err := s.store.ListEvents(c.Request.Context(), work.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "イベント一覧の取得に失敗しました"})
			log.Printf("イベント一覧取得エラー: %v", err)
			return
		}
		c.JSON(http.StatusOK, events)
	}
}

// loadAuthorWork は論文を取得する。取得できなかった場合はレスポンスを書き込みfalseを返す。
func (s *Server) loadAuthorWork(c *gin.Context, id string) (review.AuthorWork, bool) {
	work, err := s.store.GetAuthorWork(c.Request.Context(), id)
	if errors.Is(err, review.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "論文が見つかりません"})
		return review.AuthorWork{}, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "論文の取得に失敗しました"})
		log.Printf("論文取得エラー: %v", err)
		return review.AuthorWork{}, false
	}
	return work, true
}

// handleHealth はストアへの疎通を含めたヘルスチェックのハンドラ。
func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			log.Printf("ヘルスチェック失敗: %v", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "service": "reviewdesk", "transport": s.mailer.Name()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "reviewdesk", "transport": s.mailer.Name()})
	}
}
