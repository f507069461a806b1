// 査読サービスのエントリポイント。
// 会議に投稿された論文へ査読者を割り当て、トラック単位で査読依頼メールを一斉送信する。
// 設定は環境変数から読み込み、SIGINT/SIGTERMでグレースフルシャットダウンする。
package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/nao1215/reviewdesk/internal/config"
	"github.com/nao1215/reviewdesk/internal/mailer"
	"github.com/nao1215/reviewdesk/internal/server"
	"github.com/nao1215/reviewdesk/internal/store/mongostore"
	"github.com/nao1215/reviewdesk/internal/store/sqlitestore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("ストアの初期化に失敗: %v", err)
	}

	m, err := mailer.New(cfg.Mail, cfg.OperationTimeout)
	if err != nil {
		_ = store.Close()
		log.Fatalf("トランスポートの初期化に失敗: %v", err)
	}

	srv := server.NewServer(cfg, store, m)

	log.Printf("査読サービスを起動します: :%s (store=%s, transport=%s)", cfg.Port, cfg.Store, m.Name())
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("査読サービスの実行に失敗: %v", err)
	}
	log.Printf("査読サービスを停止しました")
}

// openStore は設定に従ってストアを開く。
func openStore(ctx context.Context, cfg config.Config) (server.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	switch cfg.Store {
	case config.StoreMongo:
		return mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	case config.StoreSQLite:
		return sqlitestore.Open(ctx, cfg.SQLiteDSN)
	default:
		return nil, fmt.Errorf("未知のストアです: %q", cfg.Store)
	}
}
