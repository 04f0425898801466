package domain

import "time"

// ContentKind определяет раздел контента платформы.
type ContentKind string

const (
	KindImage     ContentKind = "image"
	KindReel      ContentKind = "reel"
	KindLongVideo ContentKind = "long"
	KindCommunity ContentKind = "community"
)

// AllKinds возвращает разделы в фиксированном порядке обхода.
func AllKinds() []ContentKind {
	return []ContentKind{KindLongVideo, KindReel, KindImage, KindCommunity}
}

// Visibility определяет доступность контента.
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityPrivate  Visibility = "private"
)

// ContentItem представляет единицу контента любого раздела.
// Счётчики принадлежат пути записи и читаются как есть,
// без предположений об атомарности между двумя чтениями.
type ContentItem struct {
	ID           string
	Kind         ContentKind
	AuthorID     string
	CreatedAt    time.Time
	Tags         []string
	LikeCount    int64
	CommentCount int64
	ViewCount    int64
	Archived     bool
	Visibility   Visibility
}

// ViewerProfile содержит сигналы интересов зрителя.
// Строится заново на каждый запрос и нигде не сохраняется.
type ViewerProfile struct {
	ViewerID            string
	LikedContentIDs     map[string]struct{}
	InterestTags        map[string]struct{}
	InteractedAuthorIDs map[string]struct{}
	SubscribedAuthorIDs map[string]struct{}
}

// SourceReason указывает, какая стратегия отбора дала кандидата.
type SourceReason string

const (
	ReasonTagMatch     SourceReason = "tag-match"
	ReasonAuthorMatch  SourceReason = "author-match"
	ReasonSubscription SourceReason = "subscription"
	ReasonPopular      SourceReason = "popular"
)

// ScoredCandidate хранит кандидата с вычисленной оценкой.
type ScoredCandidate struct {
	Item         ContentItem
	Score        float64
	SourceReason SourceReason
}

// RankedPage представляет страницу ранжированной выдачи.
type RankedPage struct {
	Items   []ScoredCandidate
	Offset  int
	HasMore bool
}

// Timeframe задаёт окно для трендовой выдачи.
type Timeframe string

const (
	TimeframeHour Timeframe = "hour"
	TimeframeDay  Timeframe = "day"
	TimeframeWeek Timeframe = "week"
)

// Duration переводит окно в длительность. Неизвестное окно считается днём.
func (t Timeframe) Duration() time.Duration {
	switch t {
	case TimeframeHour:
		return time.Hour
	case TimeframeWeek:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// EngagementEvent описывает событие вовлечённости из пути записи.
type EngagementEvent struct {
	ContentID  string      `json:"content_id"`
	Kind       ContentKind `json:"kind"`
	AuthorID   string      `json:"author_id"`
	Event      string      `json:"event"`
	OccurredAt time.Time   `json:"occurred_at"`
}
