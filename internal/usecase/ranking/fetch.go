package ranking

import (
	"context"
	"sync"

	"feed-ranker/internal/domain"
	"feed-ranker/internal/infra/metrics"
)

// kindResult — исход выборки одного раздела.
type kindResult struct {
	kind  domain.ContentKind
	items []domain.ContentItem
	err   error
}

// fetchAllKinds параллельно выбирает кандидатов из всех четырёх
// разделов. Каждая выборка несёт собственный таймаут, поэтому
// медленный раздел не задерживает остальные, а отказ одного
// раздела не отменяет соседей. Результат склеивается в
// фиксированном порядке разделов; вторым значением возвращается
// число отказавших разделов.
func (s *Service) fetchAllKinds(ctx context.Context, filter domain.CandidateFilter, sortBy domain.CandidateSort, limit int) ([]domain.ContentItem, int) {
	kinds := domain.AllKinds()
	results := make([]kindResult, len(kinds))
	var wg sync.WaitGroup
	for i, kind := range kinds {
		i, kind := i, kind
		wg.Add(1)
		go func() {
			defer wg.Done()
			fctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
			defer cancel()
			items, err := s.store.FetchCandidates(fctx, kind, filter, sortBy, limit)
			results[i] = kindResult{kind: kind, items: items, err: err}
		}()
	}
	wg.Wait()

	out := make([]domain.ContentItem, 0)
	failed := 0
	for _, res := range results {
		if res.err != nil {
			failed++
			metrics.IncSourceError(string(res.kind))
			s.log.Warn().Err(res.err).Str("kind", string(res.kind)).Msg("ranking: раздел деградировал")
			continue
		}
		out = append(out, res.items...)
	}
	return out, failed
}

// countAllKinds суммирует количество доступных кандидатов по
// разделам. Отказавший раздел считается пустым.
func (s *Service) countAllKinds(ctx context.Context, filter domain.CandidateFilter) int {
	kinds := domain.AllKinds()
	counts := make([]int, len(kinds))
	var wg sync.WaitGroup
	for i, kind := range kinds {
		i, kind := i, kind
		wg.Add(1)
		go func() {
			defer wg.Done()
			fctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
			defer cancel()
			n, err := s.store.CountCandidates(fctx, kind, filter)
			if err != nil {
				metrics.IncSourceError(string(kind))
				s.log.Warn().Err(err).Str("kind", string(kind)).Msg("ranking: подсчёт раздела деградировал")
				return
			}
			counts[i] = n
		}()
	}
	wg.Wait()

	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}
