package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	Port   int    `envconfig:"PORT" default:"8080"`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	AMQPURL string `envconfig:"AMQP_URL"`

	// Веса ранжирования. Поверхности различаются конфигурацией,
	// а не дублированием формул.
	Ranking struct {
		HalfLife         time.Duration `envconfig:"RANK_HALF_LIFE" default:"24h"`
		LikeWeight       float64       `envconfig:"RANK_LIKE_WEIGHT" default:"2"`
		CommentWeight    float64       `envconfig:"RANK_COMMENT_WEIGHT" default:"3"`
		EngagementWeight float64       `envconfig:"RANK_ENGAGEMENT_WEIGHT" default:"0.7"`
		RecencyWeight    float64       `envconfig:"RANK_RECENCY_WEIGHT" default:"100"`

		ViewWeight        float64 `envconfig:"RANK_VIEW_WEIGHT" default:"0.1"`
		SubscriptionBoost float64 `envconfig:"RANK_SUBSCRIPTION_BOOST" default:"1.5"`
		TagBoost          float64 `envconfig:"RANK_TAG_BOOST" default:"0.2"`
		AuthorBoost       float64 `envconfig:"RANK_AUTHOR_BOOST" default:"1.3"`

		PoolLimit    int           `envconfig:"RANK_POOL_LIMIT" default:"200"`
		FetchTimeout time.Duration `envconfig:"RANK_FETCH_TIMEOUT" default:"3s"`
	} `envconfig:""`

	Limits struct {
		MaxPageSize int `envconfig:"MAX_PAGE_SIZE" default:"50"`
		MaxLimit    int `envconfig:"MAX_LIMIT" default:"100"`
	} `envconfig:""`

	Cache struct {
		PublicTTL   time.Duration `envconfig:"CACHE_PUBLIC_TTL" default:"1m"`
		PersonalTTL time.Duration `envconfig:"CACHE_PERSONAL_TTL" default:"30s"`
	} `envconfig:""`

	Queues struct {
		Engagement string `envconfig:"ENGAGEMENT_QUEUE" default:"engagement_events"`
	} `envconfig:""`

	DB struct {
		MaxConns int32 `envconfig:"PG_MAX_CONNS" default:"5"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
