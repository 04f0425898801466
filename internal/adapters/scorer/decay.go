package scorer

import (
	"math"
	"time"

	"feed-ranker/internal/domain"
)

// DecayWeights задаёт веса формулы вовлечённости с затуханием.
type DecayWeights struct {
	Like       float64
	Comment    float64
	Engagement float64
	Recency    float64
	HalfLife   time.Duration
}

// DefaultDecayWeights возвращает веса по умолчанию.
func DefaultDecayWeights() DecayWeights {
	return DecayWeights{
		Like:       2,
		Comment:    3,
		Engagement: 0.7,
		Recency:    100,
		HalfLife:   24 * time.Hour,
	}
}

// WithHalfLife возвращает копию весов с другим периодом полураспада.
func (w DecayWeights) WithHalfLife(halfLife time.Duration) DecayWeights {
	if halfLife > 0 && halfLife < w.HalfLife {
		w.HalfLife = halfLife
	}
	return w
}

// DecayScorer оценивает контент по вовлечённости и свежести.
// Слагаемые складываются, а не перемножаются: новый контент без
// реакций не обнуляется, а старый с большой вовлечённостью
// всё ещё может всплыть.
type DecayScorer struct {
	weights DecayWeights
}

// NewDecay создаёт оценщик. Нулевые веса заменяются умолчаниями.
func NewDecay(weights DecayWeights) *DecayScorer {
	def := DefaultDecayWeights()
	if weights.Like == 0 {
		weights.Like = def.Like
	}
	if weights.Comment == 0 {
		weights.Comment = def.Comment
	}
	if weights.Engagement == 0 {
		weights.Engagement = def.Engagement
	}
	if weights.Recency == 0 {
		weights.Recency = def.Recency
	}
	if weights.HalfLife <= 0 {
		weights.HalfLife = def.HalfLife
	}
	return &DecayScorer{weights: weights}
}

// Weights возвращает действующие веса.
func (s *DecayScorer) Weights() DecayWeights {
	return s.weights
}

// Score вычисляет оценку одного элемента на момент now.
func (s *DecayScorer) Score(item domain.ContentItem, now time.Time) float64 {
	ageMs := float64(now.Sub(item.CreatedAt).Milliseconds())
	if ageMs < 1 {
		ageMs = 1
	}
	halfLifeMs := float64(s.weights.HalfLife.Milliseconds())
	recency := math.Exp(-ageMs / halfLifeMs)
	engagement := float64(item.LikeCount)*s.weights.Like + float64(item.CommentCount)*s.weights.Comment
	return engagement*s.weights.Engagement + recency*s.weights.Recency
}
