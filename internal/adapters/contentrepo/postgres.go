package contentrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"feed-ranker/internal/domain"
	"feed-ranker/internal/infra/metrics"
)

// Postgres реализует domain.ContentStore на основе pgxpool.
// Разделы контента лежат в отдельных таблицах, общего индекса нет.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ domain.ContentStore = (*Postgres)(nil)

// NewPostgres создаёт адаптер хранилища контента.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

var kindTables = map[domain.ContentKind]string{
	domain.KindImage:     "content_images",
	domain.KindReel:      "content_reels",
	domain.KindLongVideo: "content_long_videos",
	domain.KindCommunity: "content_community_posts",
}

func tableFor(kind domain.ContentKind) (string, error) {
	table, ok := kindTables[kind]
	if !ok {
		return "", fmt.Errorf("неизвестный раздел контента: %s", kind)
	}
	return table, nil
}

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

func parseIDs(ids []string, what string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("некорректный %s %q: %w", what, raw, err)
		}
		out = append(out, id)
	}
	return out, nil
}

// buildWhere собирает условия фильтра с позиционными параметрами.
// Алиас столбцов передаётся для запросов с JOIN.
func buildWhere(alias string, filter domain.CandidateFilter, args []any) (string, []any, error) {
	prefix := ""
	if alias != "" {
		prefix = alias + "."
	}
	where := []string{prefix + "archived = FALSE"}

	if filter.OwnerID != "" {
		owner, err := uuid.Parse(filter.OwnerID)
		if err != nil {
			return "", nil, fmt.Errorf("некорректный id владельца %q: %w", filter.OwnerID, err)
		}
		args = append(args, owner)
		where = append(where, fmt.Sprintf("(%svisibility = 'public' OR %sauthor_id = $%d)", prefix, prefix, len(args)))
	} else {
		where = append(where, prefix+"visibility = 'public'")
	}

	if len(filter.AuthorIDs) > 0 {
		authors, err := parseIDs(filter.AuthorIDs, "id автора")
		if err != nil {
			return "", nil, err
		}
		args = append(args, authors)
		where = append(where, fmt.Sprintf("%sauthor_id = ANY($%d)", prefix, len(args)))
	}

	if len(filter.Tags) > 0 {
		args = append(args, filter.Tags)
		where = append(where, fmt.Sprintf("%stags && $%d", prefix, len(args)))
	}

	if !filter.Since.IsZero() {
		args = append(args, filter.Since)
		where = append(where, fmt.Sprintf("%screated_at >= $%d", prefix, len(args)))
	}

	if len(filter.ExcludeIDs) > 0 {
		excluded, err := parseIDs(filter.ExcludeIDs, "id контента")
		if err != nil {
			return "", nil, err
		}
		args = append(args, excluded)
		where = append(where, fmt.Sprintf("NOT (%sid = ANY($%d))", prefix, len(args)))
	}

	return strings.Join(where, " AND "), args, nil
}

func orderBy(alias string, sortBy domain.CandidateSort) string {
	prefix := ""
	if alias != "" {
		prefix = alias + "."
	}
	if sortBy == domain.SortPopular {
		return fmt.Sprintf("%slike_count + %scomment_count DESC, %screated_at DESC, %sid", prefix, prefix, prefix, prefix)
	}
	return fmt.Sprintf("%screated_at DESC, %sid", prefix, prefix)
}

func scanItems(rows pgx.Rows, kind domain.ContentKind) ([]domain.ContentItem, error) {
	defer rows.Close()
	var items []domain.ContentItem
	for rows.Next() {
		var (
			id       uuid.UUID
			authorID uuid.UUID
			item     domain.ContentItem
		)
		if err := rows.Scan(&id, &authorID, &item.CreatedAt, &item.Tags, &item.LikeCount, &item.CommentCount, &item.ViewCount, &item.Archived, &item.Visibility); err != nil {
			return nil, fmt.Errorf("чтение строки: %w", err)
		}
		item.ID = id.String()
		item.AuthorID = authorID.String()
		item.Kind = kind
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const itemColumns = "id, author_id, created_at, tags, like_count, comment_count, view_count, archived, visibility"

// FetchCandidates выбирает кандидатов одного раздела по фильтру.
func (p *Postgres) FetchCandidates(ctx context.Context, kind domain.ContentKind, filter domain.CandidateFilter, sortBy domain.CandidateSort, limit int) ([]domain.ContentItem, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	where, args, err := buildWhere("", filter, nil)
	if err != nil {
		return nil, err
	}
	args = append(args, limit)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s LIMIT $%d", itemColumns, table, where, orderBy("", sortBy), len(args))

	qctx, cancel := p.connCtx(ctx)
	defer cancel()
	start := time.Now()
	rows, err := p.pool.Query(qctx, query, args...)
	metrics.ObserveNetworkRequest("postgres", "fetch_candidates", table, start, err)
	if err != nil {
		return nil, fmt.Errorf("выборка %s: %w", table, err)
	}
	return scanItems(rows, kind)
}

// CountCandidates возвращает число кандидатов раздела по фильтру.
func (p *Postgres) CountCandidates(ctx context.Context, kind domain.ContentKind, filter domain.CandidateFilter) (int, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	where, args, err := buildWhere("", filter, nil)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", table, where)

	qctx, cancel := p.connCtx(ctx)
	defer cancel()
	var count int
	start := time.Now()
	err = p.pool.QueryRow(qctx, query, args...).Scan(&count)
	metrics.ObserveNetworkRequest("postgres", "count_candidates", table, start, err)
	if err != nil {
		return 0, fmt.Errorf("подсчёт %s: %w", table, err)
	}
	return count, nil
}

// FetchLikedContent возвращает лайкнутый зрителем контент одного раздела.
// История читается целиком, без пагинации.
func (p *Postgres) FetchLikedContent(ctx context.Context, viewerID string, kind domain.ContentKind) ([]domain.ContentItem, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	viewer, err := uuid.Parse(viewerID)
	if err != nil {
		return nil, fmt.Errorf("некорректный id зрителя %q: %w", viewerID, err)
	}
	query := fmt.Sprintf(`
SELECT c.id, c.author_id, c.created_at, c.tags, c.like_count, c.comment_count, c.view_count, c.archived, c.visibility
FROM %s c
JOIN likes l ON l.content_id = c.id AND l.kind = $2
WHERE l.viewer_id = $1
ORDER BY l.created_at DESC, c.id`, table)

	qctx, cancel := p.connCtx(ctx)
	defer cancel()
	start := time.Now()
	rows, err := p.pool.Query(qctx, query, viewer, string(kind))
	metrics.ObserveNetworkRequest("postgres", "fetch_liked", table, start, err)
	if err != nil {
		return nil, fmt.Errorf("история лайков %s: %w", table, err)
	}
	return scanItems(rows, kind)
}

// FetchSubscriptions возвращает авторов, на которых подписан зритель.
func (p *Postgres) FetchSubscriptions(ctx context.Context, viewerID string) ([]string, error) {
	viewer, err := uuid.Parse(viewerID)
	if err != nil {
		return nil, fmt.Errorf("некорректный id зрителя %q: %w", viewerID, err)
	}
	qctx, cancel := p.connCtx(ctx)
	defer cancel()
	start := time.Now()
	rows, err := p.pool.Query(qctx, `
SELECT author_id FROM subscriptions WHERE viewer_id = $1 ORDER BY author_id`, viewer)
	metrics.ObserveNetworkRequest("postgres", "fetch_subscriptions", "subscriptions", start, err)
	if err != nil {
		return nil, fmt.Errorf("подписки: %w", err)
	}
	defer rows.Close()

	var authors []string
	for rows.Next() {
		var author uuid.UUID
		if err := rows.Scan(&author); err != nil {
			return nil, fmt.Errorf("чтение строки: %w", err)
		}
		authors = append(authors, author.String())
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return authors, nil
}

// GetItem ищет контент по id во всех разделах по очереди.
func (p *Postgres) GetItem(ctx context.Context, id string) (domain.ContentItem, error) {
	itemID, err := uuid.Parse(id)
	if err != nil {
		return domain.ContentItem{}, fmt.Errorf("некорректный id контента %q: %w", id, err)
	}
	for _, kind := range domain.AllKinds() {
		table := kindTables[kind]
		query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", itemColumns, table)

		qctx, cancel := p.connCtx(ctx)
		var (
			rowID    uuid.UUID
			authorID uuid.UUID
			item     domain.ContentItem
		)
		start := time.Now()
		err := p.pool.QueryRow(qctx, query, itemID).Scan(&rowID, &authorID, &item.CreatedAt, &item.Tags, &item.LikeCount, &item.CommentCount, &item.ViewCount, &item.Archived, &item.Visibility)
		cancel()
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		metrics.ObserveNetworkRequest("postgres", "get_item", table, start, err)
		if err != nil {
			return domain.ContentItem{}, fmt.Errorf("чтение %s: %w", table, err)
		}
		item.ID = rowID.String()
		item.AuthorID = authorID.String()
		item.Kind = kind
		return item, nil
	}
	return domain.ContentItem{}, domain.ErrNotFound
}
