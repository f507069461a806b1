package review

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/nao1215/reviewdesk/pkg/event"
)

// memStore はテスト用のインメモリストア。AddReviewerはミューテックスで原子的に動く。
type memStore struct {
	mu      sync.Mutex
	works   map[string]*AuthorWork
	members map[string]Member
	tracks  map[string][]string
	events  []*event.Event

	// failAdd が設定されていればAddReviewerはこのエラーを返す。
	failAdd error
	// failReviewers に含まれる論文IDはListReviewersが失敗する。
	failReviewers map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		works:         make(map[string]*AuthorWork),
		members:       make(map[string]Member),
		tracks:        make(map[string][]string),
		failReviewers: make(map[string]bool),
	}
}

func (s *memStore) addWork(w AuthorWork) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w.Reviewers = slices.Clone(w.Reviewers)
	s.works[w.ID] = &w
}

func (s *memStore) addMember(m Member) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[m.ID] = m
}

func (s *memStore) addTrack(id string, workIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracks[id] = workIDs
}

func (s *memStore) reviewersOf(workID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.works[workID].Reviewers)
}

func (s *memStore) eventsOf(typ event.Type) []*event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*event.Event
	for _, ev := range s.events {
		if ev.EventType == typ {
			out = append(out, ev)
		}
	}
	return out
}

func (s *memStore) AddReviewer(_ context.Context, workID, reviewerID string) (AuthorWork, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAdd != nil {
		return AuthorWork{}, false, s.failAdd
	}
	w, ok := s.works[workID]
	if !ok {
		return AuthorWork{}, false, ErrNotFound
	}
	inserted := !w.HasReviewer(reviewerID)
	if inserted {
		w.Reviewers = append(w.Reviewers, reviewerID)
	}
	out := *w
	out.Reviewers = slices.Clone(w.Reviewers)
	return out, inserted, nil
}

func (s *memStore) ListTrackWorks(_ context.Context, trackID string) ([]AuthorWork, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids, ok := s.tracks[trackID]
	if !ok {
		return nil, ErrNotFound
	}
	works := make([]AuthorWork, 0, len(ids))
	for _, id := range ids {
		if w, ok := s.works[id]; ok {
			out := *w
			out.Reviewers = slices.Clone(w.Reviewers)
			works = append(works, out)
		}
	}
	return works, nil
}

func (s *memStore) ListReviewers(_ context.Context, workID string) ([]Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReviewers[workID] {
		return nil, errors.New("reviewers lookup failed")
	}
	w, ok := s.works[workID]
	if !ok {
		return nil, ErrNotFound
	}
	var members []Member
	for _, id := range w.Reviewers {
		if m, ok := s.members[id]; ok {
			members = append(members, m)
		}
	}
	return members, nil
}

func (s *memStore) AppendEvent(_ context.Context, ev *event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

// fakeTransport は送信内容を記録するテスト用トランスポート。
// failFor に含まれる宛先への送信は失敗する。
type fakeTransport struct {
	mu      sync.Mutex
	sent    []Message
	failFor map[string]error
	// block がtrueの場合はctxが終わるまで戻らない。
	block bool
}

func (f *fakeTransport) Send(ctx context.Context, msg Message) (string, error) {
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[msg.To]; ok {
		return "", err
	}
	f.sent = append(f.sent, msg)
	return "msg-" + msg.To, nil
}

func (f *fakeTransport) messages() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.sent)
}
