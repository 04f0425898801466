package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"feed-ranker/internal/infra/cache"
	"feed-ranker/internal/infra/config"
	logpkg "feed-ranker/internal/infra/log"
	"feed-ranker/internal/infra/metrics"
	"feed-ranker/internal/infra/queue"
	"feed-ranker/internal/usecase/ranking"
)

// Инвалидатор слушает события вовлечённости и сбрасывает
// затронутые страницы кэша. Сам движок читает из БД заново при
// каждом промахе, поэтому потеря события стоит лишь чуть более
// несвежей страницы до истечения TTL.
func main() {
	cfg := config.Load()
	logger := logpkg.NewLogger(cfg.AppEnv, "invalidator")

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, logger, fmt.Sprintf(":%d", cfg.Port))

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	pageCache := cache.NewRedis(redisClient)

	events, err := queue.NewAMQP(cfg.AMQPURL, cfg.Queues.Engagement)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalidator: нет подключения к очереди")
	}
	defer events.Close()

	patterns := []string{ranking.PatternPublic, ranking.PatternUpNext, ranking.PatternPersonal}

	logger.Info().Str("queue", cfg.Queues.Engagement).Msg("invalidator: слушаем события вовлечённости")
	for {
		event, err := events.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info().Msg("invalidator: остановка")
				return
			}
			logger.Error().Err(err).Msg("invalidator: ошибка чтения события")
			time.Sleep(time.Second)
			continue
		}

		for _, pattern := range patterns {
			if err := pageCache.DelPattern(pattern); err != nil {
				logger.Warn().Err(err).Str("pattern", pattern).Msg("invalidator: сброс кэша не удался")
			}
		}
		metrics.IncInvalidation()
		logger.Debug().
			Str("content_id", event.ContentID).
			Str("kind", string(event.Kind)).
			Str("event", event.Event).
			Msg("invalidator: кэш сброшен")
	}
}
