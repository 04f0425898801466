package ranking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"feed-ranker/internal/domain"
	"feed-ranker/internal/infra/metrics"
)

// Ключи кэша. Инвалидатор удаляет их по шаблону при событиях
// вовлечённости, поэтому формат ключей — часть контракта.
const (
	cacheKeyTrending = "feed:trending:%s:%d"
	cacheKeyUpNext   = "feed:upnext:%s:%d"
	cacheKeyPersonal = "feed:personal:%s:%d"

	// PatternPublic покрывает разделяемые между зрителями страницы.
	PatternPublic = "feed:trending:*"
	// PatternPersonal покрывает персональные страницы.
	PatternPersonal = "feed:personal:*"
	// PatternUpNext покрывает страницы "смотреть дальше".
	PatternUpNext = "feed:upnext:*"
)

// CachedService кэширует страницы поверх движка. Корректность движка
// от кэша не зависит: промах или отказ кэша прозрачно уходит во
// внутренний сервис. Домашняя лента не кэшируется — она зависит от
// моментальных подписок и постранична.
type CachedService struct {
	inner       domain.FeedService
	cache       domain.Cache
	publicTTL   time.Duration
	personalTTL time.Duration
	log         zerolog.Logger
}

var _ domain.FeedService = (*CachedService)(nil)

// NewCachedService оборачивает движок кэшем.
func NewCachedService(inner domain.FeedService, cache domain.Cache, publicTTL, personalTTL time.Duration, logger zerolog.Logger) *CachedService {
	return &CachedService{inner: inner, cache: cache, publicTTL: publicTTL, personalTTL: personalTTL, log: logger}
}

// HomeFeed проксирует запрос без кэширования.
func (c *CachedService) HomeFeed(ctx context.Context, viewerID string, page, pageSize int) (domain.RankedPage, error) {
	return c.inner.HomeFeed(ctx, viewerID, page, pageSize)
}

// Personalized кэширует персональную страницу на короткий срок.
func (c *CachedService) Personalized(ctx context.Context, viewerID string, limit int) (domain.RankedPage, error) {
	key := fmt.Sprintf(cacheKeyPersonal, viewerID, limit)
	return c.lookup(ctx, "personalized", key, c.personalTTL, func() (domain.RankedPage, error) {
		return c.inner.Personalized(ctx, viewerID, limit)
	})
}

// Trending кэширует публичную трендовую страницу.
func (c *CachedService) Trending(ctx context.Context, timeframe domain.Timeframe, limit int) (domain.RankedPage, error) {
	key := fmt.Sprintf(cacheKeyTrending, timeframe, limit)
	return c.lookup(ctx, "trending", key, c.publicTTL, func() (domain.RankedPage, error) {
		return c.inner.Trending(ctx, timeframe, limit)
	})
}

// UpNext кэширует подборку "смотреть дальше" по исходному элементу.
func (c *CachedService) UpNext(ctx context.Context, contentID string, limit int) (domain.RankedPage, error) {
	key := fmt.Sprintf(cacheKeyUpNext, contentID, limit)
	return c.lookup(ctx, "upnext", key, c.publicTTL, func() (domain.RankedPage, error) {
		return c.inner.UpNext(ctx, contentID, limit)
	})
}

func (c *CachedService) lookup(_ context.Context, surface, key string, ttl time.Duration, build func() (domain.RankedPage, error)) (domain.RankedPage, error) {
	if data, err := c.cache.Get(key); err == nil && len(data) > 0 {
		var page domain.RankedPage
		if err := json.Unmarshal(data, &page); err == nil {
			metrics.IncCacheHit(surface)
			return page, nil
		}
		c.log.Warn().Str("key", key).Msg("cache: повреждённая страница, пересчитываем")
	}
	metrics.IncCacheMiss(surface)

	page, err := build()
	if err != nil {
		return domain.RankedPage{}, err
	}
	if data, err := json.Marshal(page); err == nil {
		if err := c.cache.Set(key, data, ttl); err != nil {
			c.log.Warn().Err(err).Str("key", key).Msg("cache: не удалось сохранить страницу")
		}
	}
	return page, nil
}
