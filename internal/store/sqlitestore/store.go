// Package sqlitestore は査読割り当てデータをSQLiteに保存するストア実装を提供する。
//
// 論文の査読者集合は author_work_reviewers テーブルのUNIQUE制約で表現し、
// INSERT ... ON CONFLICT DO NOTHING の影響行数をadd-if-absentの結果として扱う。
package sqlitestore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nao1215/reviewdesk/internal/review"
	"github.com/nao1215/reviewdesk/pkg/event"
	"github.com/nao1215/reviewdesk/pkg/migration"
)

//go:embed migrations/*.up.sql
var migrations embed.FS

// timeLayout は created_at 列の書式。文字列比較で時刻順に並ぶよう小数部の桁を固定する。
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store はSQLiteをバックエンドとするストア。
type Store struct {
	// db はSQLiteデータベース接続。
	db *sql.DB
}

// Open はdsnのSQLiteデータベースを開き、マイグレーションを適用したStoreを返す。
// 外部キー制約はプールの全接続で有効になるようDSNに付与する。
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", withForeignKeys(dsn))
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	if strings.Contains(dsn, ":memory:") {
		// インメモリDBは接続ごとに別物になるため接続を1本に固定する
		db.SetMaxOpenConns(1)
	}

	s := New(db)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// withForeignKeys はdsnに外部キー制約を有効にするpragmaを付与する。
// PRAGMAは接続単位の設定なので、新しい接続を開くたびにドライバが適用するDSN側で指定する。
func withForeignKeys(dsn string) string {
	if strings.Contains(strings.ToLower(dsn), "_pragma=foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)"
}

// New は既存の接続からStoreを生成する。スキーマは適用しない。
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate は埋め込みのマイグレーションを適用する。
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := migration.Run(ctx, s.db, migrations, "migrations"); err != nil {
		return fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}
	return nil
}

// Ping はデータベースへの疎通を確認する。
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close はデータベース接続を閉じる。
func (s *Store) Close() error {
	return s.db.Close()
}

// queryer は*sql.DBと*sql.Txの共通部分。
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// GetAuthorWork は論文を査読者集合つきで取得する。
func (s *Store) GetAuthorWork(ctx context.Context, id string) (review.AuthorWork, error) {
	return getAuthorWork(ctx, s.db, id)
}

func getAuthorWork(ctx context.Context, q queryer, id string) (review.AuthorWork, error) {
	var w review.AuthorWork
	err := q.QueryRowContext(ctx,
		"SELECT id, title, abstract, name, pdf_link FROM author_works WHERE id = ?", id,
	).Scan(&w.ID, &w.Title, &w.Abstract, &w.Name, &w.PDFLink)
	if errors.Is(err, sql.ErrNoRows) {
		return review.AuthorWork{}, fmt.Errorf("論文 %s: %w", id, review.ErrNotFound)
	}
	if err != nil {
		return review.AuthorWork{}, fmt.Errorf("論文の取得に失敗: %w", err)
	}

	reviewers, err := reviewerIDs(ctx, q, id)
	if err != nil {
		return review.AuthorWork{}, err
	}
	w.Reviewers = reviewers
	return w, nil
}

func reviewerIDs(ctx context.Context, q queryer, workID string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT reviewer_id FROM author_work_reviewers WHERE author_work_id = ? ORDER BY seq", workID)
	if err != nil {
		return nil, fmt.Errorf("査読者一覧の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("査読者IDの読み取りに失敗: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AddReviewer は論文の査読者集合にreviewerIDを原子的に追加する。
// 挿入とその後の読み出しを同じトランザクションで行い、更新後の論文を返す。
func (s *Store) AddReviewer(ctx context.Context, workID, reviewerID string) (review.AuthorWork, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return review.AuthorWork{}, false, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	// 論文が存在し、かつ未割り当ての場合だけ1行挿入される
	res, err := tx.ExecContext(ctx, `
		INSERT INTO author_work_reviewers (author_work_id, reviewer_id)
		SELECT ?, ? WHERE EXISTS (SELECT 1 FROM author_works WHERE id = ?)
		ON CONFLICT (author_work_id, reviewer_id) DO NOTHING`,
		workID, reviewerID, workID,
	)
	if err != nil {
		return review.AuthorWork{}, false, fmt.Errorf("査読者の追加に失敗: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return review.AuthorWork{}, false, fmt.Errorf("影響行数の取得に失敗: %w", err)
	}

	w, err := getAuthorWork(ctx, tx, workID)
	if err != nil {
		return review.AuthorWork{}, false, err
	}
	if err := tx.Commit(); err != nil {
		return review.AuthorWork{}, false, fmt.Errorf("コミットに失敗: %w", err)
	}
	return w, affected == 1, nil
}

// ListTrackWorks はトラックに属する論文をトラック内の順序で返す。
func (s *Store) ListTrackWorks(ctx context.Context, trackID string) ([]review.AuthorWork, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM tracks WHERE id = ?", trackID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("トラック %s: %w", trackID, review.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("トラックの取得に失敗: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT w.id, w.title, w.abstract, w.name, w.pdf_link
		FROM track_author_works t
		JOIN author_works w ON w.id = t.author_work_id
		WHERE t.track_id = ?
		ORDER BY t.position`, trackID)
	if err != nil {
		return nil, fmt.Errorf("トラックの論文取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	works := make([]review.AuthorWork, 0)
	index := make(map[string]int)
	for rows.Next() {
		w := review.AuthorWork{Reviewers: make([]string, 0)}
		if err := rows.Scan(&w.ID, &w.Title, &w.Abstract, &w.Name, &w.PDFLink); err != nil {
			return nil, fmt.Errorf("論文の読み取りに失敗: %w", err)
		}
		index[w.ID] = len(works)
		works = append(works, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	_ = rows.Close()

	// 査読者IDはトラック全体を1回のクエリでまとめて読み出す
	rrows, err := s.db.QueryContext(ctx, `
		SELECT r.author_work_id, r.reviewer_id
		FROM author_work_reviewers r
		JOIN track_author_works t ON t.author_work_id = r.author_work_id
		WHERE t.track_id = ?
		ORDER BY r.seq`, trackID)
	if err != nil {
		return nil, fmt.Errorf("査読者一覧の取得に失敗: %w", err)
	}
	defer func() { _ = rrows.Close() }()

	for rrows.Next() {
		var workID, reviewerID string
		if err := rrows.Scan(&workID, &reviewerID); err != nil {
			return nil, fmt.Errorf("査読者IDの読み取りに失敗: %w", err)
		}
		if i, ok := index[workID]; ok {
			works[i].Reviewers = append(works[i].Reviewers, reviewerID)
		}
	}
	return works, rrows.Err()
}

// ListReviewers は論文に割り当て済みのメンバーを割り当て順に返す。
// membersに存在しない査読者IDは結果に含めない。
func (s *Store) ListReviewers(ctx context.Context, workID string) ([]review.Member, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM author_works WHERE id = ?", workID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("論文 %s: %w", workID, review.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("論文の取得に失敗: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.name, m.email
		FROM author_work_reviewers r
		JOIN members m ON m.id = r.reviewer_id
		WHERE r.author_work_id = ?
		ORDER BY r.seq`, workID)
	if err != nil {
		return nil, fmt.Errorf("査読者の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	members := make([]review.Member, 0)
	for rows.Next() {
		var m review.Member
		if err := rows.Scan(&m.ID, &m.Name, &m.Email); err != nil {
			return nil, fmt.Errorf("メンバーの読み取りに失敗: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// AppendEvent は監査イベントを追記する。
func (s *Store) AppendEvent(ctx context.Context, ev *event.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO review_events (id, aggregate_id, aggregate_type, event_type, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.AggregateID, string(ev.AggregateType), string(ev.EventType), string(ev.Data),
		ev.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("イベントの追記に失敗: %w", err)
	}
	return nil
}

// ListEvents は対象エンティティの監査イベントを古い順に返す。
func (s *Store) ListEvents(ctx context.Context, aggregateID string) ([]event.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, aggregate_id, aggregate_type, event_type, data, created_at
		FROM review_events
		WHERE aggregate_id = ?
		ORDER BY created_at, rowid`, aggregateID)
	if err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	events := make([]event.Event, 0)
	for rows.Next() {
		var (
			ev        event.Event
			aggType   string
			eventType string
			data      string
			createdAt string
		)
		if err := rows.Scan(&ev.ID, &ev.AggregateID, &aggType, &eventType, &data, &createdAt); err != nil {
			return nil, fmt.Errorf("イベントの読み取りに失敗: %w", err)
		}
		ev.AggregateType = event.AggregateType(aggType)
		ev.EventType = event.Type(eventType)
		ev.Data = []byte(data)
		if ev.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("イベント日時の解析に失敗: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
