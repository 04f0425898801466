package ranking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"feed-ranker/internal/adapters/scorer"
	"feed-ranker/internal/domain"
	"feed-ranker/internal/infra/metrics"
	"feed-ranker/internal/usecase/profile"
)

// ErrSeedNotFound возвращается, если исходный контент для "смотреть
// дальше" не существует.
var ErrSeedNotFound = errors.New("исходный контент не найден")

// ErrServiceDegraded возвращается, когда отказали все разделы контента.
var ErrServiceDegraded = errors.New("все разделы контента недоступны")

const (
	defaultPageSize     = 12
	defaultLimit        = 20
	defaultPoolLimit    = 200
	defaultFetchTimeout = 3 * time.Second
)

// Config задаёт веса и лимиты движка ранжирования.
type Config struct {
	Decay        scorer.DecayWeights
	Personal     scorer.PersonalWeights
	PoolLimit    int
	FetchTimeout time.Duration
}

// Service реализует четыре поверхности выдачи поверх хранилища
// контента и построителя профилей. Состояние между запросами не
// разделяется: каждый вызов читает и считает заново.
type Service struct {
	store        domain.ContentStore
	profiles     domain.ProfileBuilder
	decay        *scorer.DecayScorer
	personal     *scorer.PersonalScorer
	poolLimit    int
	fetchTimeout time.Duration
	log          zerolog.Logger
	now          func() time.Time
}

var _ domain.FeedService = (*Service)(nil)

// NewService создаёт движок ранжирования.
func NewService(store domain.ContentStore, profiles domain.ProfileBuilder, cfg Config, logger zerolog.Logger) *Service {
	if cfg.PoolLimit <= 0 {
		cfg.PoolLimit = defaultPoolLimit
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	return &Service{
		store:        store,
		profiles:     profiles,
		decay:        scorer.NewDecay(cfg.Decay),
		personal:     scorer.NewPersonal(cfg.Personal),
		poolLimit:    cfg.PoolLimit,
		fetchTimeout: cfg.FetchTimeout,
		log:          logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// HomeFeed строит домашнюю ленту: собственный контент зрителя и
// контент авторов, на которых он подписан, чередуются по шаблону.
// Прошлые лайки зрителя на пригодность не влияют.
func (s *Service) HomeFeed(ctx context.Context, viewerID string, page, pageSize int) (domain.RankedPage, error) {
	metrics.IncSurfaceRequest("home")
	start := time.Now()
	defer func() { metrics.ObserveSurfaceBuild("home", time.Since(start)) }()

	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if page < 0 {
		page = 0
	}
	skip := page * pageSize

	authors := []string{viewerID}
	subs, err := s.store.FetchSubscriptions(ctx, viewerID)
	if err != nil {
		s.log.Warn().Err(err).Str("viewer_id", viewerID).Msg("home: подписки недоступны, остаётся собственный контент")
	} else {
		authors = append(authors, subs...)
	}

	filter := domain.CandidateFilter{AuthorIDs: authors, OwnerID: viewerID}
	items, failed := s.fetchAllKinds(ctx, filter, domain.SortNewest, skip+pageSize)
	if failed == len(domain.AllKinds()) {
		metrics.IncDegraded()
		return domain.RankedPage{}, ErrServiceDegraded
	}

	pool := aggregate([]sourceList{{reason: domain.ReasonSubscription, items: items}}, nil)
	now := s.now()
	for i := range pool {
		pool[i].Score = s.decay.Score(pool[i].Item, now)
	}

	composed := composeHome(partitionByKind(pool), skip+pageSize)
	var pageItems []domain.ScoredCandidate
	if skip < len(composed) {
		pageItems = composed[skip:]
	}

	total := s.countAllKinds(ctx, filter)
	return domain.RankedPage{
		Items:   pageItems,
		Offset:  skip,
		HasMore: total > skip+len(pageItems),
	}, nil
}

// Personalized строит персональные рекомендации. Холодный старт и
// недоступный профиль откатываются на трендовую выдачу за день.
func (s *Service) Personalized(ctx context.Context, viewerID string, limit int) (domain.RankedPage, error) {
	metrics.IncSurfaceRequest("personalized")
	start := time.Now()
	defer func() { metrics.ObserveSurfaceBuild("personalized", time.Since(start)) }()

	if limit <= 0 {
		limit = defaultLimit
	}

	prof, err := s.profiles.Build(ctx, viewerID)
	if err != nil {
		if errors.Is(err, profile.ErrColdStart) {
			s.log.Debug().Str("viewer_id", viewerID).Msg("personalized: холодный старт, отдаём трендовую выдачу")
		} else {
			s.log.Warn().Err(err).Str("viewer_id", viewerID).Msg("personalized: профиль недоступен, переходим на неперсональное ранжирование")
		}
		return s.Trending(ctx, domain.TimeframeDay, limit)
	}

	kindCount := len(domain.AllKinds())
	var lists []sourceList
	strategiesRun := 0
	strategiesFailed := 0
	run := func(reason domain.SourceReason, filter domain.CandidateFilter, sortBy domain.CandidateSort) {
		items, failedKinds := s.fetchAllKinds(ctx, filter, sortBy, s.poolLimit)
		lists = append(lists, sourceList{reason: reason, items: items})
		strategiesRun++
		if failedKinds == kindCount {
			strategiesFailed++
		}
	}
	if len(prof.InterestTags) > 0 {
		run(domain.ReasonTagMatch, domain.CandidateFilter{Tags: sortedKeys(prof.InterestTags)}, domain.SortPopular)
	}
	if len(prof.InteractedAuthorIDs) > 0 {
		run(domain.ReasonAuthorMatch, domain.CandidateFilter{AuthorIDs: sortedKeys(prof.InteractedAuthorIDs)}, domain.SortNewest)
	}
	if len(prof.SubscribedAuthorIDs) > 0 {
		run(domain.ReasonSubscription, domain.CandidateFilter{AuthorIDs: sortedKeys(prof.SubscribedAuthorIDs)}, domain.SortNewest)
	}

	pool := aggregate(lists, prof.LikedContentIDs)
	if len(pool) < limit {
		// Пул тонкий: добираем популярным контентом всех разделов.
		popItems, popFailed := s.fetchAllKinds(ctx, domain.CandidateFilter{}, domain.SortPopular, s.poolLimit)
		if strategiesFailed == strategiesRun && popFailed == kindCount {
			metrics.IncDegraded()
			return domain.RankedPage{}, ErrServiceDegraded
		}
		lists = append(lists, sourceList{reason: domain.ReasonPopular, items: popItems})
		pool = aggregate(lists, prof.LikedContentIDs)
	}

	for i := range pool {
		pool[i].Score = s.personal.Score(pool[i].Item, prof)
	}
	sortCandidates(pool)

	hasMore := len(pool) > limit
	if hasMore {
		pool = pool[:limit]
	}
	return domain.RankedPage{Items: pool, HasMore: hasMore}, nil
}

// Trending строит публичную трендовую выдачу за окно. Зритель не
// требуется; период полураспада сокращается до окна, чтобы короткие
// окна сильнее прижимали несвежее.
func (s *Service) Trending(ctx context.Context, timeframe domain.Timeframe, limit int) (domain.RankedPage, error) {
	metrics.IncSurfaceRequest("trending")
	start := time.Now()
	defer func() { metrics.ObserveSurfaceBuild("trending", time.Since(start)) }()

	if limit <= 0 {
		limit = defaultLimit
	}
	window := timeframe.Duration()
	now := s.now()

	filter := domain.CandidateFilter{Since: now.Add(-window)}
	items, failed := s.fetchAllKinds(ctx, filter, domain.SortPopular, s.poolLimit)
	if failed == len(domain.AllKinds()) {
		metrics.IncDegraded()
		return domain.RankedPage{}, ErrServiceDegraded
	}

	pool := aggregate([]sourceList{{reason: domain.ReasonPopular, items: items}}, nil)
	decay := scorer.NewDecay(s.decay.Weights().WithHalfLife(window))
	for i := range pool {
		pool[i].Score = decay.Score(pool[i].Item, now)
	}
	sortCandidates(pool)

	hasMore := len(pool) > limit
	if hasMore {
		pool = pool[:limit]
	}
	return domain.RankedPage{Items: pool, HasMore: hasMore}, nil
}

// UpNext подбирает похожий контент к исходному элементу: совпадение
// тегов и тот же автор, без полного профиля зрителя.
func (s *Service) UpNext(ctx context.Context, contentID string, limit int) (domain.RankedPage, error) {
	metrics.IncSurfaceRequest("upnext")
	start := time.Now()
	defer func() { metrics.ObserveSurfaceBuild("upnext", time.Since(start)) }()

	if limit <= 0 {
		limit = defaultLimit
	}

	seed, err := s.store.GetItem(ctx, contentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.RankedPage{}, ErrSeedNotFound
		}
		return domain.RankedPage{}, fmt.Errorf("чтение исходного контента: %w", err)
	}

	pseudo := domain.ViewerProfile{
		InterestTags:        map[string]struct{}{},
		InteractedAuthorIDs: map[string]struct{}{seed.AuthorID: {}},
		SubscribedAuthorIDs: map[string]struct{}{},
	}
	for _, tag := range seed.Tags {
		pseudo.InterestTags[tag] = struct{}{}
	}

	kindCount := len(domain.AllKinds())
	exclude := map[string]struct{}{seed.ID: {}}
	var lists []sourceList
	strategiesRun := 0
	strategiesFailed := 0
	if len(seed.Tags) > 0 {
		items, failedKinds := s.fetchAllKinds(ctx, domain.CandidateFilter{Tags: seed.Tags, ExcludeIDs: []string{seed.ID}}, domain.SortPopular, s.poolLimit)
		lists = append(lists, sourceList{reason: domain.ReasonTagMatch, items: items})
		strategiesRun++
		if failedKinds == kindCount {
			strategiesFailed++
		}
	}
	items, failedKinds := s.fetchAllKinds(ctx, domain.CandidateFilter{AuthorIDs: []string{seed.AuthorID}, ExcludeIDs: []string{seed.ID}}, domain.SortNewest, s.poolLimit)
	lists = append(lists, sourceList{reason: domain.ReasonAuthorMatch, items: items})
	strategiesRun++
	if failedKinds == kindCount {
		strategiesFailed++
	}
	if strategiesFailed == strategiesRun {
		metrics.IncDegraded()
		return domain.RankedPage{}, ErrServiceDegraded
	}

	pool := aggregate(lists, exclude)
	for i := range pool {
		pool[i].Score = s.personal.Score(pool[i].Item, pseudo)
	}
	sortCandidates(pool)

	hasMore := len(pool) > limit
	if hasMore {
		pool = pool[:limit]
	}
	return domain.RankedPage{Items: pool, HasMore: hasMore}, nil
}

// sortedKeys возвращает ключи множества в устойчивом порядке, чтобы
// фильтры выборки не зависели от порядка обхода map.
func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
