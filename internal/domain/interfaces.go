package domain

import (
	"context"
	"time"
)

// CandidateFilter описывает предикаты выборки кандидатов.
// Пустое поле означает отсутствие ограничения.
type CandidateFilter struct {
	// AuthorIDs ограничивает выборку перечисленными авторами.
	AuthorIDs []string
	// Tags требует пересечения хотя бы по одному тегу.
	Tags []string
	// OwnerID — зритель, которому видны его собственные непубличные материалы.
	// Без OwnerID выборка строго публичная.
	OwnerID string
	// Since отсекает контент старше указанного момента.
	Since time.Time
	// ExcludeIDs исключает конкретные идентификаторы.
	ExcludeIDs []string
}

// CandidateSort задаёт порядок выборки в хранилище.
type CandidateSort string

const (
	SortNewest  CandidateSort = "newest"
	SortPopular CandidateSort = "popular"
)

// ContentStore предоставляет движку доступ на чтение к контенту.
// Разделы хранятся раздельно и запрашиваются по одному.
type ContentStore interface {
	FetchCandidates(ctx context.Context, kind ContentKind, filter CandidateFilter, sort CandidateSort, limit int) ([]ContentItem, error)
	CountCandidates(ctx context.Context, kind ContentKind, filter CandidateFilter) (int, error)
	FetchLikedContent(ctx context.Context, viewerID string, kind ContentKind) ([]ContentItem, error)
	FetchSubscriptions(ctx context.Context, viewerID string) ([]string, error)
	GetItem(ctx context.Context, id string) (ContentItem, error)
}

// ProfileBuilder строит профиль интересов зрителя.
type ProfileBuilder interface {
	Build(ctx context.Context, viewerID string) (ViewerProfile, error)
}

// FeedService объединяет четыре поверхности выдачи.
type FeedService interface {
	HomeFeed(ctx context.Context, viewerID string, page, pageSize int) (RankedPage, error)
	Personalized(ctx context.Context, viewerID string, limit int) (RankedPage, error)
	Trending(ctx context.Context, timeframe Timeframe, limit int) (RankedPage, error)
	UpNext(ctx context.Context, contentID string, limit int) (RankedPage, error)
}

// EngagementQueue передаёт события вовлечённости между сервисами.
type EngagementQueue interface {
	Publish(ctx context.Context, event EngagementEvent) error
	Pop(ctx context.Context) (EngagementEvent, error)
}

// Cache используется для простых TTL-хранилищ.
type Cache interface {
	Set(key string, value []byte, ttl time.Duration) error
	Get(key string) ([]byte, error)
	DelPattern(pattern string) error
}
