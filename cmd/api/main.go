package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"feed-ranker/internal/adapters/contentrepo"
	"feed-ranker/internal/adapters/scorer"
	"feed-ranker/internal/domain"
	"feed-ranker/internal/infra/cache"
	"feed-ranker/internal/infra/config"
	"feed-ranker/internal/infra/db"
	httpinfra "feed-ranker/internal/infra/http"
	logpkg "feed-ranker/internal/infra/log"
	"feed-ranker/internal/infra/metrics"
	"feed-ranker/internal/usecase/profile"
	"feed-ranker/internal/usecase/ranking"
)

func main() {
	cfg := config.Load()
	logger := logpkg.NewLogger(cfg.AppEnv, "api")

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN, cfg.DB.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: нет подключения к БД")
	}
	defer pool.Close()

	store := contentrepo.NewPostgres(pool)
	profiles := profile.NewBuilder(store)
	engine := ranking.NewService(store, profiles, ranking.Config{
		Decay: scorer.DecayWeights{
			Like:       cfg.Ranking.LikeWeight,
			Comment:    cfg.Ranking.CommentWeight,
			Engagement: cfg.Ranking.EngagementWeight,
			Recency:    cfg.Ranking.RecencyWeight,
			HalfLife:   cfg.Ranking.HalfLife,
		},
		Personal: scorer.PersonalWeights{
			View:              cfg.Ranking.ViewWeight,
			SubscriptionBoost: cfg.Ranking.SubscriptionBoost,
			TagBoost:          cfg.Ranking.TagBoost,
			AuthorBoost:       cfg.Ranking.AuthorBoost,
		},
		PoolLimit:    cfg.Ranking.PoolLimit,
		FetchTimeout: cfg.Ranking.FetchTimeout,
	}, logger.With().Str("component", "ranking").Logger())

	var feed domain.FeedService = engine
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		feed = ranking.NewCachedService(engine, cache.NewRedis(redisClient), cfg.Cache.PublicTTL, cfg.Cache.PersonalTTL, logger.With().Str("component", "feed_cache").Logger())
	}

	server := httpinfra.NewServer(logger)
	registerRoutes(server.Router, feed, cfg)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("api: graceful shutdown failed")
		}
	}()

	if err := server.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("api: сервер остановился с ошибкой")
	}
}

func registerRoutes(r chi.Router, feed domain.FeedService, cfg config.AppConfig) {
	r.Route("/api/v1/feed", func(r chi.Router) {
		r.Get("/home", func(w http.ResponseWriter, req *http.Request) {
			viewerID := req.Header.Get("X-Viewer-ID")
			if viewerID == "" {
				writeError(w, http.StatusUnauthorized, "viewer id is required")
				return
			}
			page := queryInt(req, "page", 0, 1<<20)
			pageSize := queryInt(req, "page_size", 0, cfg.Limits.MaxPageSize)
			result, err := feed.HomeFeed(req.Context(), viewerID, page, pageSize)
			if err != nil {
				writeFeedError(w, err)
				return
			}
			writeJSON(w, toPageResponse(result))
		})

		r.Get("/personalized", func(w http.ResponseWriter, req *http.Request) {
			viewerID := req.Header.Get("X-Viewer-ID")
			if viewerID == "" {
				writeError(w, http.StatusUnauthorized, "viewer id is required")
				return
			}
			limit := queryInt(req, "limit", 0, cfg.Limits.MaxLimit)
			result, err := feed.Personalized(req.Context(), viewerID, limit)
			if err != nil {
				writeFeedError(w, err)
				return
			}
			writeJSON(w, toPageResponse(result))
		})

		r.Get("/trending", func(w http.ResponseWriter, req *http.Request) {
			timeframe := domain.Timeframe(req.URL.Query().Get("timeframe"))
			switch timeframe {
			case domain.TimeframeHour, domain.TimeframeDay, domain.TimeframeWeek:
			case "":
				timeframe = domain.TimeframeDay
			default:
				writeError(w, http.StatusBadRequest, "timeframe must be hour, day or week")
				return
			}
			limit := queryInt(req, "limit", 0, cfg.Limits.MaxLimit)
			result, err := feed.Trending(req.Context(), timeframe, limit)
			if err != nil {
				writeFeedError(w, err)
				return
			}
			writeJSON(w, toPageResponse(result))
		})

		r.Get("/next/{id}", func(w http.ResponseWriter, req *http.Request) {
			contentID := chi.URLParam(req, "id")
			limit := queryInt(req, "limit", 0, cfg.Limits.MaxLimit)
			result, err := feed.UpNext(req.Context(), contentID, limit)
			if err != nil {
				writeFeedError(w, err)
				return
			}
			writeJSON(w, toPageResponse(result))
		})
	})
}

type feedItemResponse struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	AuthorID     string    `json:"author_id"`
	CreatedAt    time.Time `json:"created_at"`
	Tags         []string  `json:"tags,omitempty"`
	LikeCount    int64     `json:"like_count"`
	CommentCount int64     `json:"comment_count"`
	ViewCount    int64     `json:"view_count"`
	Score        float64   `json:"score"`
	Reason       string    `json:"reason"`
}

type feedPageResponse struct {
	Items   []feedItemResponse `json:"items"`
	Offset  int                `json:"offset"`
	HasMore bool               `json:"has_more"`
}

func toPageResponse(page domain.RankedPage) feedPageResponse {
	items := make([]feedItemResponse, 0, len(page.Items))
	for _, candidate := range page.Items {
		items = append(items, feedItemResponse{
			ID:           candidate.Item.ID,
			Kind:         string(candidate.Item.Kind),
			AuthorID:     candidate.Item.AuthorID,
			CreatedAt:    candidate.Item.CreatedAt,
			Tags:         candidate.Item.Tags,
			LikeCount:    candidate.Item.LikeCount,
			CommentCount: candidate.Item.CommentCount,
			ViewCount:    candidate.Item.ViewCount,
			Score:        candidate.Score,
			Reason:       string(candidate.SourceReason),
		})
	}
	return feedPageResponse{Items: items, Offset: page.Offset, HasMore: page.HasMore}
}

func queryInt(req *http.Request, name string, def, max int) int {
	raw := req.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return def
	}
	if max > 0 && value > max {
		return max
	}
	return value
}

func writeFeedError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ranking.ErrSeedNotFound):
		writeError(w, http.StatusNotFound, "content not found")
	case errors.Is(err, ranking.ErrServiceDegraded):
		writeError(w, http.StatusServiceUnavailable, "feed temporarily unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
