package profile

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"feed-ranker/internal/domain"
)

// ErrColdStart возвращается, если у зрителя нет истории взаимодействий.
var ErrColdStart = errors.New("у зрителя нет истории взаимодействий")

// Builder строит профиль интересов из истории лайков и подписок.
type Builder struct {
	store domain.ContentStore
}

var _ domain.ProfileBuilder = (*Builder)(nil)

// NewBuilder создаёт построитель профилей.
func NewBuilder(store domain.ContentStore) *Builder {
	return &Builder{store: store}
}

// Build собирает профиль зрителя. История читается целиком, по всем
// разделам параллельно; отказ любого раздела срывает построение —
// вызывающая сторона обязана перейти на неперсональное ранжирование.
// Пустая история лайков означает холодный старт.
func (b *Builder) Build(ctx context.Context, viewerID string) (domain.ViewerProfile, error) {
	kinds := domain.AllKinds()
	liked := make([][]domain.ContentItem, len(kinds))
	var subscriptions []string

	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		i, kind := i, kind
		g.Go(func() error {
			items, err := b.store.FetchLikedContent(gctx, viewerID, kind)
			if err != nil {
				return fmt.Errorf("история лайков %s: %w", kind, err)
			}
			liked[i] = items
			return nil
		})
	}
	g.Go(func() error {
		authors, err := b.store.FetchSubscriptions(gctx, viewerID)
		if err != nil {
			return fmt.Errorf("подписки: %w", err)
		}
		subscriptions = authors
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.ViewerProfile{}, err
	}

	p := domain.ViewerProfile{
		ViewerID:            viewerID,
		LikedContentIDs:     map[string]struct{}{},
		InterestTags:        map[string]struct{}{},
		InteractedAuthorIDs: map[string]struct{}{},
		SubscribedAuthorIDs: map[string]struct{}{},
	}
	for _, items := range liked {
		for _, item := range items {
			p.LikedContentIDs[item.ID] = struct{}{}
			p.InteractedAuthorIDs[item.AuthorID] = struct{}{}
			for _, tag := range item.Tags {
				p.InterestTags[tag] = struct{}{}
			}
		}
	}
	for _, author := range subscriptions {
		p.SubscribedAuthorIDs[author] = struct{}{}
	}

	if len(p.LikedContentIDs) == 0 {
		return domain.ViewerProfile{}, ErrColdStart
	}
	return p, nil
}
