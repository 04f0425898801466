package profile

import (
	"context"
	"errors"
	"testing"

	"feed-ranker/internal/domain"
)

type stubStore struct {
	liked         map[domain.ContentKind][]domain.ContentItem
	subscriptions []string
	likedErr      error
}

func (s *stubStore) FetchCandidates(context.Context, domain.ContentKind, domain.CandidateFilter, domain.CandidateSort, int) ([]domain.ContentItem, error) {
	return nil, nil
}
func (s *stubStore) CountCandidates(context.Context, domain.ContentKind, domain.CandidateFilter) (int, error) {
	return 0, nil
}
func (s *stubStore) FetchLikedContent(_ context.Context, _ string, kind domain.ContentKind) ([]domain.ContentItem, error) {
	if s.likedErr != nil {
		return nil, s.likedErr
	}
	return s.liked[kind], nil
}
func (s *stubStore) FetchSubscriptions(context.Context, string) ([]string, error) {
	return s.subscriptions, nil
}
func (s *stubStore) GetItem(context.Context, string) (domain.ContentItem, error) {
	return domain.ContentItem{}, domain.ErrNotFound
}

func TestBuildUnionsAllKinds(t *testing.T) {
	store := &stubStore{
		liked: map[domain.ContentKind][]domain.ContentItem{
			domain.KindReel:      {{ID: "r1", AuthorID: "a1", Tags: []string{"travel", "food"}}},
			domain.KindLongVideo: {{ID: "v1", AuthorID: "a2", Tags: []string{"travel"}}},
		},
		subscriptions: []string{"a3"},
	}
	builder := NewBuilder(store)
	p, err := builder.Build(context.Background(), "viewer-1")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(p.LikedContentIDs) != 2 {
		t.Fatalf("ожидали 2 лайкнутых элемента, получили %d", len(p.LikedContentIDs))
	}
	if len(p.InterestTags) != 2 {
		t.Fatalf("ожидали объединение тегов в 2 элемента, получили %d", len(p.InterestTags))
	}
	if _, ok := p.InteractedAuthorIDs["a2"]; !ok {
		t.Fatalf("ожидали автора a2 среди взаимодействий")
	}
	if _, ok := p.SubscribedAuthorIDs["a3"]; !ok {
		t.Fatalf("ожидали подписку на a3")
	}
}

func TestBuildColdStart(t *testing.T) {
	builder := NewBuilder(&stubStore{subscriptions: []string{"a1"}})
	_, err := builder.Build(context.Background(), "viewer-1")
	if !errors.Is(err, ErrColdStart) {
		t.Fatalf("ожидали ErrColdStart, получили %v", err)
	}
}

func TestBuildPropagatesStoreError(t *testing.T) {
	builder := NewBuilder(&stubStore{likedErr: errors.New("хранилище недоступно")})
	_, err := builder.Build(context.Background(), "viewer-1")
	if err == nil || errors.Is(err, ErrColdStart) {
		t.Fatalf("ожидали ошибку хранилища, получили %v", err)
	}
}
