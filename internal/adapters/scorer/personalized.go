package scorer

import (
	"feed-ranker/internal/domain"
)

// PersonalWeights задаёт коэффициенты персональной формулы.
type PersonalWeights struct {
	View              float64
	SubscriptionBoost float64
	TagBoost          float64
	AuthorBoost       float64
}

// DefaultPersonalWeights возвращает коэффициенты по умолчанию.
func DefaultPersonalWeights() PersonalWeights {
	return PersonalWeights{
		View:              0.1,
		SubscriptionBoost: 1.5,
		TagBoost:          0.2,
		AuthorBoost:       1.3,
	}
}

// PersonalScorer оценивает контент относительно профиля зрителя.
// Множители применяются последовательно: элемент, сильный сразу по
// нескольким сигналам, усиливается сверхлинейно.
type PersonalScorer struct {
	weights PersonalWeights
}

// NewPersonal создаёт оценщик. Нулевые коэффициенты заменяются умолчаниями.
func NewPersonal(weights PersonalWeights) *PersonalScorer {
	def := DefaultPersonalWeights()
	if weights.View == 0 {
		weights.View = def.View
	}
	if weights.SubscriptionBoost == 0 {
		weights.SubscriptionBoost = def.SubscriptionBoost
	}
	if weights.TagBoost == 0 {
		weights.TagBoost = def.TagBoost
	}
	if weights.AuthorBoost == 0 {
		weights.AuthorBoost = def.AuthorBoost
	}
	return &PersonalScorer{weights: weights}
}

// Score вычисляет персональную оценку элемента.
func (s *PersonalScorer) Score(item domain.ContentItem, profile domain.ViewerProfile) float64 {
	base := float64(item.LikeCount) + float64(item.ViewCount)*s.weights.View
	if _, ok := profile.SubscribedAuthorIDs[item.AuthorID]; ok {
		base *= s.weights.SubscriptionBoost
	}
	common := 0
	for _, tag := range item.Tags {
		if _, ok := profile.InterestTags[tag]; ok {
			common++
		}
	}
	base *= 1 + float64(common)*s.weights.TagBoost
	if _, ok := profile.InteractedAuthorIDs[item.AuthorID]; ok {
		base *= s.weights.AuthorBoost
	}
	return base
}
