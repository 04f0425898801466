package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	SurfaceRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_surface_requests_total",
		Help: "Запросы к поверхностям выдачи",
	}, []string{"surface"})

	SurfaceBuildSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "feed_surface_build_seconds",
		Help:    "Время построения страницы выдачи",
		Buckets: prometheus.DefBuckets,
	}, []string{"surface"})

	SourceErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_source_errors_total",
		Help: "Отказы источников контента по разделам",
	}, []string{"kind"})

	DegradedRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feed_degraded_requests_total",
		Help: "Запросы, завершившиеся полной деградацией источников",
	})

	CacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_cache_hits_total",
		Help: "Попадания в кэш страниц",
	}, []string{"surface"})

	CacheMissesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_cache_misses_total",
		Help: "Промахи кэша страниц",
	}, []string{"surface"})

	InvalidationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feed_cache_invalidations_total",
		Help: "Сбросы кэша по событиям вовлечённости",
	})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: prometheus.DefBuckets,
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		SurfaceRequestsTotal,
		SurfaceBuildSeconds,
		SourceErrorsTotal,
		DegradedRequestsTotal,
		CacheHitsTotal,
		CacheMissesTotal,
		InvalidationsTotal,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	shutdownCtx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-ctx.Done():
		case <-shutdownCtx.Done():
		}
		shutdownTimeout, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer timeoutCancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
		cancel()
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// IncSurfaceRequest увеличивает счётчик запросов поверхности.
func IncSurfaceRequest(surface string) {
	SurfaceRequestsTotal.WithLabelValues(surface).Inc()
}

// ObserveSurfaceBuild записывает время построения страницы.
func ObserveSurfaceBuild(surface string, d time.Duration) {
	SurfaceBuildSeconds.WithLabelValues(surface).Observe(d.Seconds())
}

// IncSourceError увеличивает счётчик отказов раздела.
func IncSourceError(kind string) {
	SourceErrorsTotal.WithLabelValues(kind).Inc()
}

// IncDegraded увеличивает счётчик полностью деградировавших запросов.
func IncDegraded() {
	DegradedRequestsTotal.Inc()
}

// IncCacheHit увеличивает счётчик попаданий в кэш.
func IncCacheHit(surface string) {
	CacheHitsTotal.WithLabelValues(surface).Inc()
}

// IncCacheMiss увеличивает счётчик промахов кэша.
func IncCacheMiss(surface string) {
	CacheMissesTotal.WithLabelValues(surface).Inc()
}

// IncInvalidation увеличивает счётчик сбросов кэша.
func IncInvalidation() {
	InvalidationsTotal.Inc()
}
