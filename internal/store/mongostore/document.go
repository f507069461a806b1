package mongostore

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nao1215/reviewdesk/internal/review"
	"github.com/nao1215/reviewdesk/pkg/event"
)

// authorWorkDoc は authorworks コレクションのドキュメント。
type authorWorkDoc struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty"`
	Title     string               `bson:"title"`
	Abstract  string               `bson:"abstract"`
	Name      string               `bson:"name"`
	PDFLink   string               `bson:"pdfLink,omitempty"`
	Reviewers []primitive.ObjectID `bson:"reviewers"`
}

func (d authorWorkDoc) toAuthorWork() review.AuthorWork {
	w := review.AuthorWork{
		ID:        d.ID.Hex(),
		Title:     d.Title,
		Abstract:  d.Abstract,
		Name:      d.Name,
		PDFLink:   d.PDFLink,
		Reviewers: make([]string, 0, len(d.Reviewers)),
	}
	for _, r := range d.Reviewers {
		w.Reviewers = append(w.Reviewers, r.Hex())
	}
	return w
}

// memberDoc は members コレクションのドキュメント。
type memberDoc struct {
	ID    primitive.ObjectID `bson:"_id,omitempty"`
	Name  string             `bson:"name"`
	Email string             `bson:"email"`
}

func (d memberDoc) toMember() review.Member {
	return review.Member{ID: d.ID.Hex(), Name: d.Name, Email: d.Email}
}

// trackDoc は tracks コレクションのドキュメント。
type trackDoc struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	Name        string               `bson:"name"`
	AuthorWorks []primitive.ObjectID `bson:"author_works"`
}

// eventDoc は review_events コレクションのドキュメント。Dataは元のJSONを文字列で保持する。
type eventDoc struct {
	ID            string    `bson:"_id"`
	AggregateID   string    `bson:"aggregate_id"`
	AggregateType string    `bson:"aggregate_type"`
	EventType     string    `bson:"event_type"`
	Data          string    `bson:"data"`
	CreatedAt     time.Time `bson:"created_at"`
}

func newEventDoc(ev *event.Event) eventDoc {
	return eventDoc{
		ID:            ev.ID,
		AggregateID:   ev.AggregateID,
		AggregateType: string(ev.AggregateType),
		EventType:     string(ev.EventType),
		Data:          string(ev.Data),
		CreatedAt:     ev.CreatedAt,
	}
}

func (d eventDoc) toEvent() event.Event {
	return event.Event{
		ID:            d.ID,
		AggregateID:   d.AggregateID,
		AggregateType: event.AggregateType(d.AggregateType),
		EventType:     event.Type(d.EventType),
		Data:          json.RawMessage(d.Data),
		CreatedAt:     d.CreatedAt.UTC(),
	}
}

// parseID は16進文字列のIDをObjectIDに変換する。
func parseID(id string) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(id)
}

// orderByIDs はdocsをidsの並びに並べ替える。
// docsに存在しないIDは読み飛ばし、idsの重複は最初の1件だけを採用する。
func orderByIDs[T any](ids []primitive.ObjectID, docs []T, key func(T) primitive.ObjectID) []T {
	byID := make(map[primitive.ObjectID]T, len(docs))
	for _, d := range docs {
		byID[key(d)] = d
	}
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	ordered := make([]T, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if d, ok := byID[id]; ok {
			ordered = append(ordered, d)
		}
	}
	return ordered
}
