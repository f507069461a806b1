package sqlitestore

import (
	"context"
	"fmt"

	"github.com/nao1215/reviewdesk/internal/review"
)

// 以下は投稿受付・会員管理側が行う登録処理。割り当てと通知のエンジンからは使わない。

// CreateMember はメンバーを登録する。
func (s *Store) CreateMember(ctx context.Context, m review.Member) error {
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO members (id, name, email) VALUES (?, ?, ?)", m.ID, m.Name, m.Email,
	); err != nil {
		return fmt.Errorf("メンバーの登録に失敗: %w", err)
	}
	return nil
}

// CreateAuthorWork は論文を登録する。w.Reviewersの重複は1件にまとめられる。
func (s *Store) CreateAuthorWork(ctx context.Context, w review.AuthorWork) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO author_works (id, title, abstract, name, pdf_link) VALUES (?, ?, ?, ?, ?)",
		w.ID, w.Title, w.Abstract, w.Name, w.PDFLink,
	); err != nil {
		return fmt.Errorf("論文の登録に失敗: %w", err)
	}
	for _, r := range w.Reviewers {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO author_work_reviewers (author_work_id, reviewer_id) VALUES (?, ?) ON CONFLICT DO NOTHING",
			w.ID, r,
		); err != nil {
			return fmt.Errorf("査読者の登録に失敗: %w", err)
		}
	}
	return tx.Commit()
}

// CreateTrack はトラックと、t.AuthorWorkIDsの順で並ぶ所属論文を登録する。
func (s *Store) CreateTrack(ctx context.Context, t review.Track) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "INSERT INTO tracks (id, name) VALUES (?, ?)", t.ID, t.Name); err != nil {
		return fmt.Errorf("トラックの登録に失敗: %w", err)
	}
	for i, workID := range t.AuthorWorkIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO track_author_works (track_id, author_work_id, position) VALUES (?, ?, ?)",
			t.ID, workID, i,
		); err != nil {
			return fmt.Errorf("トラックへの論文登録に失敗: %w", err)
		}
	}
	return tx.Commit()
}
