// Package mongostore は査読割り当てデータをMongoDBに保存するストア実装を提供する。
//
// 論文ドキュメントの reviewers 配列を査読者集合として扱い、
// {reviewers: {$ne: id}} 条件付きの $addToSet でadd-if-absentを1往復で行う。
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/nao1215/reviewdesk/internal/review"
	"github.com/nao1215/reviewdesk/pkg/event"
)

// コレクション名
const (
	collAuthorWorks = "authorworks"
	collMembers     = "members"
	collTracks      = "tracks"
	collEvents      = "review_events"
)

// Store はMongoDBをバックエンドとするストア。
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect はuriのMongoDBに接続し、database を使うStoreを返す。
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("MongoDB接続に失敗: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("MongoDBへの疎通確認に失敗: %w", err)
	}
	return &Store{client: client, db: client.Database(database)}, nil
}

// Ping はMongoDBへの疎通を確認する。
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close は接続を切断する。
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// GetAuthorWork はIDで論文を取得する。
func (s *Store) GetAuthorWork(ctx context.Context, id string) (review.AuthorWork, error) {
	oid, err := parseID(id)
	if err != nil {
		return review.AuthorWork{}, fmt.Errorf("論文 %s: %w", id, review.ErrNotFound)
	}
	doc, err := s.findWork(ctx, oid)
	if err != nil {
		return review.AuthorWork{}, err
	}
	return doc.toAuthorWork(), nil
}

func (s *Store) findWork(ctx context.Context, oid primitive.ObjectID) (authorWorkDoc, error) {
	var doc authorWorkDoc
	err := s.db.Collection(collAuthorWorks).FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return authorWorkDoc{}, fmt.Errorf("論文 %s: %w", oid.Hex(), review.ErrNotFound)
	}
	if err != nil {
		return authorWorkDoc{}, fmt.Errorf("論文 %s の取得に失敗: %w", oid.Hex(), err)
	}
	return doc, nil
}

// AddReviewer は論文の査読者集合にreviewerIDを原子的に追加する。
// 条件に一致しなかった場合のみ論文を読み直し、存在しないのか割り当て済みなのかを判別する。
func (s *Store) AddReviewer(ctx context.Context, workID, reviewerID string) (review.AuthorWork, bool, error) {
	wid, err := parseID(workID)
	if err != nil {
		return review.AuthorWork{}, false, fmt.Errorf("論文 %s: %w", workID, review.ErrNotFound)
	}
	rid, err := parseID(reviewerID)
	if err != nil {
		return review.AuthorWork{}, false, fmt.Errorf("査読者IDが不正です: %s: %w", reviewerID, review.ErrInvalidID)
	}

	filter := bson.M{"_id": wid, "reviewers": bson.M{"$ne": rid}}
	update := bson.M{"$addToSet": bson.M{"reviewers": rid}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc authorWorkDoc
	err = s.db.Collection(collAuthorWorks).FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	switch {
	case err == nil:
		return doc.toAuthorWork(), true, nil
	case !errors.Is(err, mongo.ErrNoDocuments):
		return review.AuthorWork{}, false, fmt.Errorf("査読者の追加に失敗: %w", err)
	}

	doc, err = s.findWork(ctx, wid)
	if err != nil {
		return review.AuthorWork{}, false, err
	}
	return doc.toAuthorWork(), false, nil
}

// ListTrackWorks はトラックに属する論文をトラック内の順序で返す。
// トラックから参照されているが存在しない論文は含めない。
func (s *Store) ListTrackWorks(ctx context.Context, trackID string) ([]review.AuthorWork, error) {
	tid, err := parseID(trackID)
	if err != nil {
		return nil, fmt.Errorf("トラック %s: %w", trackID, review.ErrNotFound)
	}

	var track trackDoc
	err = s.db.Collection(collTracks).FindOne(ctx, bson.M{"_id": tid}).Decode(&track)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("トラック %s: %w", trackID, review.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("トラック %s の取得に失敗: %w", trackID, err)
	}
	if len(track.AuthorWorks) == 0 {
		return []review.AuthorWork{}, nil
	}

	var docs []authorWorkDoc
	if err := s.findIn(ctx, collAuthorWorks, track.AuthorWorks, &docs); err != nil {
		return nil, fmt.Errorf("トラック %s の論文取得に失敗: %w", trackID, err)
	}
	ordered := orderByIDs(track.AuthorWorks, docs, func(d authorWorkDoc) primitive.ObjectID { return d.ID })

	works := make([]review.AuthorWork, 0, len(ordered))
	for _, d := range ordered {
		works = append(works, d.toAuthorWork())
	}
	return works, nil
}

// ListReviewers は論文に割り当て済みの査読者を割り当て順に返す。
func (s *Store) ListReviewers(ctx context.Context, workID string) ([]review.Member, error) {
	wid, err := parseID(workID)
	if err != nil {
		return nil, fmt.Errorf("論文 %s: %w", workID, review.ErrNotFound)
	}
	work, err := s.findWork(ctx, wid)
	if err != nil {
		return nil, err
	}
	if len(work.Reviewers) == 0 {
		return []review.Member{}, nil
	}

	var docs []memberDoc
	if err := s.findIn(ctx, collMembers, work.Reviewers, &docs); err != nil {
		return nil, fmt.Errorf("論文 %s の査読者取得に失敗: %w", workID, err)
	}
	ordered := orderByIDs(work.Reviewers, docs, func(d memberDoc) primitive.ObjectID { return d.ID })

	members := make([]review.Member, 0, len(ordered))
	for _, d := range ordered {
		members = append(members, d.toMember())
	}
	return members, nil
}

// findIn は_idがidsのいずれかに一致するドキュメントをすべてresultsに読み込む。
func (s *Store) findIn(ctx context.Context, coll string, ids []primitive.ObjectID, results any) error {
	cur, err := s.db.Collection(coll).Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return err
	}
	return cur.All(ctx, results)
}

// AppendEvent は監査イベントを保存する。
func (s *Store) AppendEvent(ctx context.Context, ev *event.Event) error {
	if _, err := s.db.Collection(collEvents).InsertOne(ctx, newEventDoc(ev)); err != nil {
		return fmt.Errorf("イベントの保存に失敗: %w", err)
	}
	return nil
}

// ListEvents は集約IDに紐づくイベントを記録順に返す。
func (s *Store) ListEvents(ctx context.Context, aggregateID string) ([]event.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := s.db.Collection(collEvents).Find(ctx, bson.M{"aggregate_id": aggregateID}, opts)
	if err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗: %w", err)
	}
	var docs []eventDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("イベントの読み込みに失敗: %w", err)
	}

	events := make([]event.Event, 0, len(docs))
	for _, d := range docs {
		events = append(events, d.toEvent())
	}
	return events, nil
}
