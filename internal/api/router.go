package api

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/castellan-ai/castellan/internal/api/handlers"
	mw "github.com/castellan-ai/castellan/internal/api/middleware"
	"github.com/castellan-ai/castellan/internal/config"
	"github.com/castellan-ai/castellan/internal/domain"
	"github.com/castellan-ai/castellan/internal/embedding"
	"github.com/castellan-ai/castellan/internal/forgetting"
	"github.com/castellan-ai/castellan/internal/semgraph"
	"github.com/castellan-ai/castellan/internal/service"
	"github.com/castellan-ai/castellan/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// App holds the router and background services for lifecycle management.
type App struct {
	Router        *chi.Mux
	Consolidation *service.ConsolidationService

	episodes     domain.EpisodeStore
	semantic     *service.SemanticService
	buffer       domain.ShortTermBuffer
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(db *pgxpool.Pool, rdb *redis.Client, logger *zap.Logger) *App {
	// Stores
	episodeStore := store.NewEpisodeStore(db)
	graphStore := store.NewGraphStore(db)
	sequenceStore := store.NewSequenceStore(db)
	buffer := store.NewShortTermBuffer(rdb)

	// External clients
	embeddingClient, err := embedding.NewClient(config.EmbeddingProvider(), config.OpenAIAPIKey())
	if err != nil {
		logger.Warn("embedding client initialization failed",
			zap.String("provider", config.EmbeddingProvider()), zap.Error(err))
	} else {
		logger.Info("embedding client initialized",
			zap.String("provider", config.EmbeddingProvider()))
	}

	// Services
	curve := forgetting.New()
	episodicSvc := service.NewEpisodicService(episodeStore, embeddingClient, curve, config.SimilarityBlendWeight(), logger)
	semanticSvc := service.NewSemanticService(semgraph.New(), graphStore, logger)
	proceduralSvc := service.NewProceduralService(sequenceStore, config.PatternMinSupport(), config.ParallelActionWindow(), logger)
	consolidationSvc := service.NewConsolidationService(
		buffer, episodicSvc, semanticSvc, episodeStore, curve,
		service.ConsolidationConfig{
			MinDwellTime:            config.MinDwellTime(),
			DecayFloor:              config.DecayFloor(),
			ImportanceOverrideFloor: config.ImportanceOverrideFloor(),
			Interval:                config.MaintenanceInterval(),
		},
		logger,
	)

	if err := semanticSvc.Rehydrate(context.Background()); err != nil {
		logger.Error("semantic graph rehydration failed, starting empty", zap.Error(err))
	}

	// Handlers
	decisionHandler := handlers.NewDecisionHandler(episodicSvc)
	graphHandler := handlers.NewGraphHandler(semanticSvc)
	workflowHandler := handlers.NewWorkflowHandler(proceduralSvc)
	maintenanceHandler := handlers.NewMaintenanceHandler(consolidationSvc, buffer)

	r := chi.NewRouter()

	app := &App{
		Router:        r,
		Consolidation: consolidationSvc,
		episodes:      episodeStore,
		semantic:      semanticSvc,
		buffer:        buffer,
		startTime:     time.Now(),
	}

	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	r.Get("/healthz", healthHandler(db, rdb))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/stats", app.statsHandler())

		r.Route("/decisions", func(r chi.Router) {
			r.Post("/", decisionHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", decisionHandler.GetByID)
				r.Post("/outcome", decisionHandler.RecordOutcome)
			})
		})

		r.Post("/recall", decisionHandler.Recall)

		r.Route("/graph", func(r chi.Router) {
			r.Post("/network", graphHandler.BuildNetwork)
			r.Post("/preferences", graphHandler.TrackPreferences)
			r.Post("/query", graphHandler.Query)
		})

		r.Route("/workflows", func(r chi.Router) {
			r.Post("/", workflowHandler.Record)
			r.Get("/patterns", workflowHandler.Patterns)
			r.Get("/patterns/concurrent", workflowHandler.ConcurrentPatterns)
			r.Post("/optimize", workflowHandler.Optimize)
			r.Post("/predict", workflowHandler.PredictNext)
		})

		r.Post("/buffer", maintenanceHandler.AppendBuffer)

		r.Route("/maintenance", func(r chi.Router) {
			r.Post("/run", maintenanceHandler.Run)
			r.Get("/load", maintenanceHandler.Load)
		})
	})

	return app
}

func healthHandler(db *pgxpool.Pool, rdb *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok"}
		code := http.StatusOK
		if err := db.Ping(r.Context()); err != nil {
			status["status"] = "degraded"
			status["database"] = err.Error()
			code = http.StatusServiceUnavailable
		}
		if err := rdb.Ping(r.Context()).Err(); err != nil {
			status["status"] = "degraded"
			status["redis"] = err.Error()
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(status)
	}
}

func (app *App) statsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)
		nodes, edges := app.semantic.Size()

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"graph": map[string]int{
				"nodes": nodes,
				"edges": edges,
			},
			"memory": map[string]any{
				"alloc_mb": float64(memStats.Alloc) / 1024 / 1024,
				"sys_mb":   float64(memStats.Sys) / 1024 / 1024,
				"num_gc":   memStats.NumGC,
			},
			"go_version": runtime.Version(),
		}

		if count, err := app.episodes.Count(r.Context()); err == nil {
			response["episode_count"] = count
		}
		if n, err := app.buffer.Len(r.Context()); err == nil {
			response["buffer_len"] = n
		}

		writeStatsJSON(w, response)
	}
}

func writeStatsJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}

// Ensure stores and clients satisfy interfaces at compile time.
var (
	_ domain.EpisodeStore    = (*store.EpisodeStore)(nil)
	_ domain.GraphStore      = (*store.GraphStore)(nil)
	_ domain.SequenceStore   = (*store.SequenceStore)(nil)
	_ domain.ShortTermBuffer = (*store.ShortTermBuffer)(nil)
	_ domain.EmbeddingClient = (*embedding.OpenAIClient)(nil)
	_ domain.EmbeddingClient = (*embedding.MockClient)(nil)
)
