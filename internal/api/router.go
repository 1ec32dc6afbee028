package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hearthside/companion/internal/api/handlers"
	mw "github.com/hearthside/companion/internal/api/middleware"
	"github.com/hearthside/companion/internal/alert"
	"github.com/hearthside/companion/internal/buildconfig"
	"github.com/hearthside/companion/internal/config"
	"github.com/hearthside/companion/internal/domain"
	"github.com/hearthside/companion/internal/embedding"
	"github.com/hearthside/companion/internal/llm"
	"github.com/hearthside/companion/internal/service"
	"github.com/hearthside/companion/internal/store"
	"github.com/hearthside/companion/internal/weather"
)

// App holds the router and background services for lifecycle management.
type App struct {
	Router    *chi.Mux
	Recompute *service.RecomputeService
	Rebuilder *service.BaselineRebuilder

	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(db *pgxpool.Pool, logger *zap.Logger) *App {
	// Stores
	userStore := store.NewUserStore(db)
	medStore := store.NewMedicationStore(db)
	mealStore := store.NewMealStore(db)
	symptomStore := store.NewSymptomStore(db)
	activityStore := store.NewActivityStore(db)
	baselineStore := store.NewBaselineStore(db)
	aliasStore := store.NewAliasStore(db)
	alertStore := store.NewAlertStore(db)
	convStore := store.NewConversationStore(db)
	memStore := store.NewVectorMemoryStore(db)

	// External clients via provider factories
	llmClient, err := llm.NewClient(config.LLMProvider(), config.LLMAPIKey(), config.LLMTimeout())
	if err != nil {
		logger.Warn("LLM client initialization failed, using mock",
			zap.String("provider", config.LLMProvider()), zap.Error(err))
		llmClient = llm.NewMockClient()
	}
	embeddingClient, err := embedding.NewClient(config.EmbeddingProvider(), config.EmbeddingAPIKey())
	if err != nil {
		logger.Warn("embedding client initialization failed, using mock",
			zap.String("provider", config.EmbeddingProvider()), zap.Error(err))
		embeddingClient = embedding.NewMockClient()
	}

	var weatherClient domain.WeatherClient
	if key := config.WeatherAPIKey(); key != "" {
		weatherClient = weather.NewOpenWeatherClient(key)
	}

	var sink domain.AlertSink = alert.NewLogSink(logger)
	if url := config.AlertWebhookURL(); url != "" {
		sink = alert.NewWebhookSink(url, logger)
	}

	// Services
	parserSvc := service.NewParserService(medStore, aliasStore, baselineStore, llmClient, logger)
	resolverSvc := service.NewResolverService(medStore, aliasStore, llmClient, logger)
	baselineSvc := service.NewBaselineService(userStore, mealStore, medStore, activityStore, baselineStore, logger)
	twinSvc := service.NewTwinService(userStore, baselineStore, medStore, mealStore, symptomStore, logger)
	guardSvc := service.NewGuardService(userStore, medStore, mealStore, symptomStore, baselineStore, alertStore, sink, llmClient, weatherClient, logger)
	recomputeSvc := service.NewRecomputeService(userStore, twinSvc, guardSvc, 64, logger)
	rebuilder := service.NewBaselineRebuilder(userStore, baselineSvc, 24*time.Hour, logger)
	companionSvc := service.NewCompanionService(
		userStore, medStore, mealStore, symptomStore, activityStore,
		baselineStore, convStore, memStore,
		parserSvc, resolverSvc, llmClient, embeddingClient, recomputeSvc,
		config.DefaultLanguage(), logger,
	)

	// Handlers
	userHandler := handlers.NewUserHandler(userStore, medStore)
	convHandler := handlers.NewConversationHandler(companionSvc, convStore)
	twinHandler := handlers.NewTwinHandler(twinSvc, baselineSvc)
	alertHandler := handlers.NewAlertHandler(alertStore)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		Recompute: recomputeSvc,
		Rebuilder: rebuilder,
		startTime: time.Now(),
	}

	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	// Health and metrics (no auth)
	r.Get("/health", healthHandler(db))
	r.Get("/metrics", app.metricsHandler())

	// User creation (no auth - bootstrap endpoint)
	r.Post("/v1/users", userHandler.Create)

	// Authenticated routes
	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(userStore))

		r.Route("/conversation", func(r chi.Router) {
			r.Post("/turns", convHandler.PostTurn)
			r.Get("/turns", convHandler.GetTranscript)
			r.Delete("/turns", convHandler.ClearTranscript)
		})

		r.Route("/twin", func(r chi.Router) {
			r.Get("/", twinHandler.GetState)
			r.Post("/baseline/rebuild", twinHandler.RebuildBaseline)
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", alertHandler.List)
			r.Post("/{id}/dismiss", alertHandler.Dismiss)
		})
	})

	return app
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"build":      buildconfig.VersionInfo(),
			"go_version": runtime.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores and clients satisfy interfaces at compile time.
var (
	_ domain.UserStore         = (*store.UserStore)(nil)
	_ domain.MedicationStore   = (*store.MedicationStore)(nil)
	_ domain.MealStore         = (*store.MealStore)(nil)
	_ domain.SymptomStore      = (*store.SymptomStore)(nil)
	_ domain.ActivityStore     = (*store.ActivityStore)(nil)
	_ domain.BaselineStore     = (*store.BaselineStore)(nil)
	_ domain.AliasStore        = (*store.AliasStore)(nil)
	_ domain.AlertStore        = (*store.AlertStore)(nil)
	_ domain.ConversationStore = (*store.ConversationStore)(nil)
	_ domain.VectorMemoryStore = (*store.VectorMemoryStore)(nil)
	_ domain.LLMClient         = (*llm.OpenAIClient)(nil)
	_ domain.LLMClient         = (*llm.AnthropicClient)(nil)
	_ domain.LLMClient         = (*llm.MockClient)(nil)
	_ domain.EmbeddingClient   = (*embedding.OpenAIClient)(nil)
	_ domain.EmbeddingClient   = (*embedding.MockClient)(nil)
	_ domain.WeatherClient     = (*weather.OpenWeatherClient)(nil)
	_ domain.WeatherClient     = (*weather.MockClient)(nil)
	_ domain.AlertSink         = (*alert.LogSink)(nil)
	_ domain.AlertSink         = (*alert.WebhookSink)(nil)
)
