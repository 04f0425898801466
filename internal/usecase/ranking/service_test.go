package ranking

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"feed-ranker/internal/domain"
	"feed-ranker/internal/usecase/profile"
)

type stubStore struct {
	items     map[domain.ContentKind][]domain.ContentItem
	failKinds map[domain.ContentKind]error
	subs      []string
	subsErr   error
	byID      map[string]domain.ContentItem
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}

func overlaps(a, b []string) bool {
	for _, v := range a {
		if contains(b, v) {
			return true
		}
	}
	return false
}

func (s *stubStore) filtered(kind domain.ContentKind, filter domain.CandidateFilter) []domain.ContentItem {
	var out []domain.ContentItem
	for _, item := range s.items[kind] {
		if len(filter.AuthorIDs) > 0 && !contains(filter.AuthorIDs, item.AuthorID) {
			continue
		}
		if len(filter.Tags) > 0 && !overlaps(filter.Tags, item.Tags) {
			continue
		}
		if !filter.Since.IsZero() && item.CreatedAt.Before(filter.Since) {
			continue
		}
		if contains(filter.ExcludeIDs, item.ID) {
			continue
		}
		if item.Visibility == domain.VisibilityPrivate && item.AuthorID != filter.OwnerID {
			continue
		}
		out = append(out, item)
	}
	return out
}

func (s *stubStore) FetchCandidates(_ context.Context, kind domain.ContentKind, filter domain.CandidateFilter, sortBy domain.CandidateSort, limit int) ([]domain.ContentItem, error) {
	if err, ok := s.failKinds[kind]; ok {
		return nil, err
	}
	out := s.filtered(kind, filter)
	sort.SliceStable(out, func(i, j int) bool {
		if sortBy == domain.SortPopular && out[i].LikeCount != out[j].LikeCount {
			return out[i].LikeCount > out[j].LikeCount
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubStore) CountCandidates(_ context.Context, kind domain.ContentKind, filter domain.CandidateFilter) (int, error) {
	if err, ok := s.failKinds[kind]; ok {
		return 0, err
	}
	return len(s.filtered(kind, filter)), nil
}

func (s *stubStore) FetchLikedContent(context.Context, string, domain.ContentKind) ([]domain.ContentItem, error) {
	return nil, nil
}

func (s *stubStore) FetchSubscriptions(context.Context, string) ([]string, error) {
	if s.subsErr != nil {
		return nil, s.subsErr
	}
	return s.subs, nil
}

func (s *stubStore) GetItem(_ context.Context, id string) (domain.ContentItem, error) {
	item, ok := s.byID[id]
	if !ok {
		return domain.ContentItem{}, domain.ErrNotFound
	}
	return item, nil
}

type stubProfiles struct {
	prof domain.ViewerProfile
	err  error
}

func (s *stubProfiles) Build(context.Context, string) (domain.ViewerProfile, error) {
	return s.prof, s.err
}

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestService(store *stubStore, profiles domain.ProfileBuilder) *Service {
	s := NewService(store, profiles, Config{}, zerolog.Nop())
	s.now = func() time.Time { return testNow }
	return s
}

func item(id string, kind domain.ContentKind, author string, age time.Duration) domain.ContentItem {
	return domain.ContentItem{
		ID:         id,
		Kind:       kind,
		AuthorID:   author,
		CreatedAt:  testNow.Add(-age),
		Visibility: domain.VisibilityPublic,
	}
}

func pageIDs(page domain.RankedPage) []string {
	out := make([]string, 0, len(page.Items))
	for _, it := range page.Items {
		out = append(out, it.Item.ID)
	}
	return out
}

func TestHomeFeedInterleaves(t *testing.T) {
	store := &stubStore{
		items: map[domain.ContentKind][]domain.ContentItem{
			domain.KindLongVideo: {
				item("L1", domain.KindLongVideo, "me", time.Hour),
				item("L2", domain.KindLongVideo, "me", 2*time.Hour),
				item("L3", domain.KindLongVideo, "me", 3*time.Hour),
			},
			domain.KindReel: {
				item("R1", domain.KindReel, "sub-author", 30*time.Minute),
				item("R2", domain.KindReel, "sub-author", 90*time.Minute),
			},
		},
		subs: []string{"sub-author"},
	}
	service := newTestService(store, &stubProfiles{})
	page, err := service.HomeFeed(context.Background(), "me", 0, 4)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if !equalIDs(pageIDs(page), "L1", "R1", "L2", "R2") {
		t.Fatalf("ожидали чередование [L1 R1 L2 R2], получили %v", pageIDs(page))
	}
	if !page.HasMore {
		t.Fatalf("остался L3, ожидали hasMore")
	}
}

func TestHomeFeedSecondPage(t *testing.T) {
	store := &stubStore{
		items: map[domain.ContentKind][]domain.ContentItem{
			domain.KindLongVideo: {
				item("L1", domain.KindLongVideo, "me", time.Hour),
				item("L2", domain.KindLongVideo, "me", 2*time.Hour),
				item("L3", domain.KindLongVideo, "me", 3*time.Hour),
			},
		},
	}
	service := newTestService(store, &stubProfiles{})
	page, err := service.HomeFeed(context.Background(), "me", 1, 2)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if !equalIDs(pageIDs(page), "L3") {
		t.Fatalf("ожидали [L3] на второй странице, получили %v", pageIDs(page))
	}
	if page.Offset != 2 {
		t.Fatalf("ожидали offset 2, получили %d", page.Offset)
	}
	if page.HasMore {
		t.Fatalf("контент исчерпан, hasMore должен быть false")
	}
}

func TestHomeFeedExcludesArchived(t *testing.T) {
	archived := item("A1", domain.KindReel, "me", time.Hour)
	archived.Archived = true
	store := &stubStore{
		items: map[domain.ContentKind][]domain.ContentItem{
			domain.KindReel: {archived, item("R1", domain.KindReel, "me", 2*time.Hour)},
		},
	}
	service := newTestService(store, &stubProfiles{})
	page, err := service.HomeFeed(context.Background(), "me", 0, 10)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	for _, got := range pageIDs(page) {
		if got == "A1" {
			t.Fatalf("архивный контент попал в выдачу")
		}
	}
}

func TestPersonalizedColdStartMatchesTrending(t *testing.T) {
	store := &stubStore{
		items: map[domain.ContentKind][]domain.ContentItem{
			domain.KindReel: {
				{ID: "a", Kind: domain.KindReel, CreatedAt: testNow.Add(-time.Hour), LikeCount: 5, Visibility: domain.VisibilityPublic},
				{ID: "b", Kind: domain.KindReel, CreatedAt: testNow.Add(-2 * time.Hour), LikeCount: 50, Visibility: domain.VisibilityPublic},
			},
		},
	}
	service := newTestService(store, &stubProfiles{err: profile.ErrColdStart})
	personal, err := service.Personalized(context.Background(), "viewer-1", 10)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	trending, err := service.Trending(context.Background(), domain.TimeframeDay, 10)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if !equalIDs(pageIDs(personal), pageIDs(trending)...) {
		t.Fatalf("холодный старт должен совпадать с трендами: %v против %v", pageIDs(personal), pageIDs(trending))
	}
}

func TestPersonalizedExcludesLikedAndRanks(t *testing.T) {
	prof := domain.ViewerProfile{
		ViewerID:            "viewer-1",
		LikedContentIDs:     map[string]struct{}{"liked": {}},
		InterestTags:        map[string]struct{}{"travel": {}},
		InteractedAuthorIDs: map[string]struct{}{"author-a": {}},
		SubscribedAuthorIDs: map[string]struct{}{},
	}
	store := &stubStore{
		items: map[domain.ContentKind][]domain.ContentItem{
			domain.KindReel: {
				{ID: "liked", Kind: domain.KindReel, AuthorID: "author-a", Tags: []string{"travel"}, LikeCount: 100, CreatedAt: testNow.Add(-time.Hour), Visibility: domain.VisibilityPublic},
				{ID: "x", Kind: domain.KindReel, AuthorID: "author-a", Tags: []string{"travel"}, LikeCount: 10, ViewCount: 100, CreatedAt: testNow.Add(-time.Hour), Visibility: domain.VisibilityPublic},
				{ID: "y", Kind: domain.KindReel, AuthorID: "author-b", Tags: []string{"travel"}, LikeCount: 50, CreatedAt: testNow.Add(-2 * time.Hour), Visibility: domain.VisibilityPublic},
			},
		},
	}
	service := newTestService(store, &stubProfiles{prof: prof})
	page, err := service.Personalized(context.Background(), "viewer-1", 10)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	got := pageIDs(page)
	if contains(got, "liked") {
		t.Fatalf("лайкнутый контент не должен рекомендоваться снова: %v", got)
	}
	// score(x) = (10+10)*1.2*1.3 = 31.2; score(y) = 50*1.2 = 60:
	// сырая вовлечённость y перевешивает персональные сигналы x.
	if !equalIDs(got, "y", "x") {
		t.Fatalf("ожидали [y x], получили %v", got)
	}
}

func TestTrendingIdempotent(t *testing.T) {
	store := &stubStore{
		items: map[domain.ContentKind][]domain.ContentItem{
			domain.KindImage: {
				{ID: "a", Kind: domain.KindImage, CreatedAt: testNow.Add(-time.Hour), LikeCount: 5, Visibility: domain.VisibilityPublic},
				{ID: "b", Kind: domain.KindImage, CreatedAt: testNow.Add(-time.Hour), LikeCount: 5, Visibility: domain.VisibilityPublic},
				{ID: "c", Kind: domain.KindImage, CreatedAt: testNow.Add(-3 * time.Hour), LikeCount: 40, Visibility: domain.VisibilityPublic},
			},
		},
	}
	service := newTestService(store, &stubProfiles{})
	first, err := service.Trending(context.Background(), domain.TimeframeDay, 10)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	second, err := service.Trending(context.Background(), domain.TimeframeDay, 10)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if !equalIDs(pageIDs(first), pageIDs(second)...) {
		t.Fatalf("повторный вызов дал другой порядок: %v против %v", pageIDs(first), pageIDs(second))
	}
}

func TestTrendingWindowFiltersOld(t *testing.T) {
	store := &stubStore{
		items: map[domain.ContentKind][]domain.ContentItem{
			domain.KindImage: {
				{ID: "fresh", Kind: domain.KindImage, CreatedAt: testNow.Add(-30 * time.Minute), Visibility: domain.VisibilityPublic},
				{ID: "stale", Kind: domain.KindImage, CreatedAt: testNow.Add(-3 * time.Hour), LikeCount: 100, Visibility: domain.VisibilityPublic},
			},
		},
	}
	service := newTestService(store, &stubProfiles{})
	page, err := service.Trending(context.Background(), domain.TimeframeHour, 10)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if !equalIDs(pageIDs(page), "fresh") {
		t.Fatalf("часовое окно должно отсечь старый контент: %v", pageIDs(page))
	}
}

func TestTrendingPartialDegradation(t *testing.T) {
	store := &stubStore{
		items: map[domain.ContentKind][]domain.ContentItem{
			domain.KindImage: {{ID: "a", Kind: domain.KindImage, CreatedAt: testNow.Add(-time.Hour), Visibility: domain.VisibilityPublic}},
		},
		failKinds: map[domain.ContentKind]error{
			domain.KindReel: errors.New("раздел недоступен"),
		},
	}
	service := newTestService(store, &stubProfiles{})
	page, err := service.Trending(context.Background(), domain.TimeframeDay, 10)
	if err != nil {
		t.Fatalf("отказ одного раздела не должен ломать выдачу: %v", err)
	}
	if !equalIDs(pageIDs(page), "a") {
		t.Fatalf("ожидали [a], получили %v", pageIDs(page))
	}
}

func TestTrendingAllSourcesFailed(t *testing.T) {
	failure := errors.New("раздел недоступен")
	store := &stubStore{
		failKinds: map[domain.ContentKind]error{
			domain.KindImage:     failure,
			domain.KindReel:      failure,
			domain.KindLongVideo: failure,
			domain.KindCommunity: failure,
		},
	}
	service := newTestService(store, &stubProfiles{})
	_, err := service.Trending(context.Background(), domain.TimeframeDay, 10)
	if !errors.Is(err, ErrServiceDegraded) {
		t.Fatalf("ожидали ErrServiceDegraded, получили %v", err)
	}
}

func TestTrendingEmptyResultIsNotError(t *testing.T) {
	service := newTestService(&stubStore{}, &stubProfiles{})
	page, err := service.Trending(context.Background(), domain.TimeframeDay, 10)
	if err != nil {
		t.Fatalf("пустая выдача не ошибка: %v", err)
	}
	if len(page.Items) != 0 || page.HasMore {
		t.Fatalf("ожидали пустую страницу без hasMore")
	}
}

func TestUpNextUnknownSeed(t *testing.T) {
	service := newTestService(&stubStore{}, &stubProfiles{})
	_, err := service.UpNext(context.Background(), "missing", 10)
	if !errors.Is(err, ErrSeedNotFound) {
		t.Fatalf("ожидали ErrSeedNotFound, получили %v", err)
	}
}

func TestUpNextRanksByAuthorAndTags(t *testing.T) {
	seed := domain.ContentItem{ID: "seed", Kind: domain.KindLongVideo, AuthorID: "author-a", Tags: []string{"travel"}, Visibility: domain.VisibilityPublic}
	store := &stubStore{
		byID: map[string]domain.ContentItem{"seed": seed},
		items: map[domain.ContentKind][]domain.ContentItem{
			domain.KindLongVideo: {
				seed,
				{ID: "same-author", Kind: domain.KindLongVideo, AuthorID: "author-a", LikeCount: 5, CreatedAt: testNow.Add(-time.Hour), Visibility: domain.VisibilityPublic},
				{ID: "same-tag", Kind: domain.KindLongVideo, AuthorID: "author-b", Tags: []string{"travel"}, LikeCount: 5, CreatedAt: testNow.Add(-time.Hour), Visibility: domain.VisibilityPublic},
			},
		},
	}
	service := newTestService(store, &stubProfiles{})
	page, err := service.UpNext(context.Background(), "seed", 10)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	got := pageIDs(page)
	if contains(got, "seed") {
		t.Fatalf("исходный элемент не должен попадать в подборку: %v", got)
	}
	// same-author: 5*1.3 = 6.5; same-tag: 5*1.2 = 6.
	if !equalIDs(got, "same-author", "same-tag") {
		t.Fatalf("ожидали [same-author same-tag], получили %v", got)
	}
}
