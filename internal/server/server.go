package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/reviewdesk/internal/config"
	"github.com/nao1215/reviewdesk/internal/mailer"
	"github.com/nao1215/reviewdesk/internal/review"
	"github.com/nao1215/reviewdesk/pkg/event"
	"github.com/nao1215/reviewdesk/pkg/middleware"
)

// shutdownTimeout はグレースフルシャットダウンの待ち時間の上限。
const shutdownTimeout = 15 * time.Second

// Store はサーバーが必要とするストア操作。sqlitestoreとmongostoreが実装する。
type Store interface {
	review.AllotmentStore
	review.NotificationStore
	// GetAuthorWork はIDで論文を取得する。存在しない場合はErrNotFoundを返す。
	GetAuthorWork(ctx context.Context, id string) (review.AuthorWork, error)
	// ListEvents は集約IDに紐づく監査イベントを記録順に返す。
	ListEvents(ctx context.Context, aggregateID string) ([]event.Event, error)
	Ping(ctx context.Context) error
	Close() error
}

// Server は査読サービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// store は論文・査読者・トラックを保持するストア。
	store Store
	// mailer は査読依頼の送信経路。
	mailer mailer.Mailer
	// allotter は査読者割り当てエンジン。
	allotter *review.Allotter
	// notifier は査読依頼の一斉送信エンジン。
	notifier *review.Notifier
}

// NewServer は新しい査読サーバーを生成する。
// storeとmailerの所有権はServerに移り、Runの終了時に閉じられる。
func NewServer(cfg config.Config, store Store, m mailer.Mailer) *Server {
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORS(cfg.CORSOrigins))

	opts := cfg.ReviewOptions()
	s := &Server{
		router:   router,
		port:     cfg.Port,
		store:    store,
		mailer:   m,
		allotter: review.NewAllotter(store, opts),
		notifier: review.NewNotifier(store, m, cfg.Links(), opts),
	}
	s.setupRoutes(cfg.JWTSecret)

	return s
}

// Handler はルーティング済みのhttp.Handlerを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes はAPIルーティングを設定する。
// jwtSecretが空でなければヘルスチェック以外をJWTで保護する。
func (s *Server) setupRoutes(jwtSecret string) {
	for _, g := range []*gin.RouterGroup{s.router.Group(""), s.router.Group("/api/v1")} {
		if jwtSecret != "" {
			g.Use(middleware.JWTAuth(jwtSecret))
		}
		// 査読者の一括割り当て
		g.POST("/allotments", s.handleAllot())
		// トラック単位の査読依頼送信
		g.POST("/sendMails/:trackId", s.handleSendMails())
		// 論文PDFの保存先取得
		g.GET("/getpdf/:authorworkId", s.handleGetPDF())
		// 論文取得
		g.GET("/authorworks/:id", s.handleGetAuthorWork())
		// 論文の監査イベント一覧
		g.GET("/authorworks/:id/events", s.handleListEvents())
	}

	// ヘルスチェック
	s.router.GET("/health", s.handleHealth())
}

// Run はHTTPサーバーを起動し、ctxが終了するとグレースフルシャットダウンする。
// 終了時にトランスポートとストアを閉じる。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		return errors.Join(err, s.Close())
	case <-ctx.Done():
	}

	log.Printf("シャットダウンを開始します")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		err = fmt.Errorf("HTTPサーバーの停止に失敗: %w", err)
	}
	return errors.Join(err, s.Close())
}

// Close はトランスポートとストアを閉じる。送信中のメッセージはトランスポートが待つ。
func (s *Server) Close() error {
	var errs []error
	if err := s.mailer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("トランスポートのクローズに失敗: %w", err))
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("ストアのクローズに失敗: %w", err))
	}
	return errors.Join(errs...)
}
