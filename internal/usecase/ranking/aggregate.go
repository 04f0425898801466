package ranking

import (
	"sort"

	"feed-ranker/internal/domain"
)

// sourceList связывает стратегию отбора с её кандидатами.
// Порядок списков при слиянии фиксирован и определяет приоритет.
type sourceList struct {
	reason domain.SourceReason
	items  []domain.ContentItem
}

// aggregate сливает списки кандидатов в один пул без дубликатов.
// Побеждает первое вхождение: sourceReason отражает самую
// приоритетную стратегию, повторные вхождения отбрасываются.
// Идентификаторы из exclude в пул не попадают.
func aggregate(lists []sourceList, exclude map[string]struct{}) []domain.ScoredCandidate {
	seen := make(map[string]struct{})
	out := make([]domain.ScoredCandidate, 0)
	for _, list := range lists {
		for _, item := range list.items {
			if item.Archived {
				continue
			}
			if _, ok := exclude[item.ID]; ok {
				continue
			}
			if _, ok := seen[item.ID]; ok {
				continue
			}
			seen[item.ID] = struct{}{}
			out = append(out, domain.ScoredCandidate{Item: item, SourceReason: list.reason})
		}
	}
	return out
}

// sortCandidates упорядочивает кандидатов детерминированно:
// по оценке, затем по свежести, затем по идентификатору.
func sortCandidates(items []domain.ScoredCandidate) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		if !items[i].Item.CreatedAt.Equal(items[j].Item.CreatedAt) {
			return items[i].Item.CreatedAt.After(items[j].Item.CreatedAt)
		}
		return items[i].Item.ID < items[j].Item.ID
	})
}
