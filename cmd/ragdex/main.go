package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/config"
	"github.com/kailas-cloud/ragdex/internal/db"
	dbMemory "github.com/kailas-cloud/ragdex/internal/db/memory"
	dbRedis "github.com/kailas-cloud/ragdex/internal/db/redis"
	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/chunk"
	"github.com/kailas-cloud/ragdex/internal/domain/confidence"
	"github.com/kailas-cloud/ragdex/internal/domain/language"
	"github.com/kailas-cloud/ragdex/internal/index/catalog"
	"github.com/kailas-cloud/ragdex/internal/index/lexical"
	"github.com/kailas-cloud/ragdex/internal/index/vector"
	logpkg "github.com/kailas-cloud/ragdex/internal/logger"
	"github.com/kailas-cloud/ragdex/internal/metrics"
	"github.com/kailas-cloud/ragdex/internal/repository/chunkstore"
	"github.com/kailas-cloud/ragdex/internal/repository/embcache"
	"github.com/kailas-cloud/ragdex/internal/repository/resultcache"
	chiTransport "github.com/kailas-cloud/ragdex/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/ragdex/internal/transport/openai"
	answeruc "github.com/kailas-cloud/ragdex/internal/usecase/answer"
	embeddinguc "github.com/kailas-cloud/ragdex/internal/usecase/embedding"
	"github.com/kailas-cloud/ragdex/internal/usecase/expand"
	healthuc "github.com/kailas-cloud/ragdex/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/ragdex/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/ragdex/internal/usecase/search"
	"github.com/kailas-cloud/ragdex/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting ragdex server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// Create the chunk store based on driver. Valkey speaks the same
	// protocol, rueidis serves both.
	var store db.Store
	switch cfg.Database.Driver {
	case "redis", "valkey":
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
	case "memory":
		store = dbMemory.NewStore()
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterEngineMetrics()
	metrics.RegisterEmbeddingMetrics()

	// Vectorizer settings missing from config fall back to the defaults.
	vecCfg := domain.VectorConfig{
		Model:               cfg.Embedding.Model,
		Dimensions:          cfg.Embedding.Dimensions,
		DocumentInstruction: cfg.Embedding.DocumentInstruction,
		QueryInstruction:    cfg.Embedding.QueryInstruction,
	}
	if vecCfg.Model == "" {
		vecCfg.Model = domain.DefaultVectorConfig().Model
	}
	if vecCfg.Dimensions <= 0 {
		vecCfg.Dimensions = domain.DefaultVectorConfig().Dimensions
	}

	// Base embedding provider. The hash provider keeps credential-less
	// deployments (ENV=test, CI) fully runnable.
	var base domain.Embedder
	var embChecker healthuc.ProviderChecker
	switch cfg.Embedding.Provider {
	case "stub":
		h := embeddinguc.NewHashEmbedder(vecCfg.Dimensions)
		base, embChecker = h, h
	default:
		e := openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      vecCfg.Model,
			Dimensions: vecCfg.Dimensions,
			Provider:   cfg.Embedding.Provider,
			Logger:     logger,
		})
		base, embChecker = e, e
	}
	docEmbedder := buildEmbedder(base, cfg.Embedding, vecCfg, vecCfg.DocumentInstruction, store, logger)
	queryEmbedder := buildEmbedder(base, cfg.Embedding, vecCfg, vecCfg.QueryInstruction, store, logger)
	logger.Info("Embedders created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", vecCfg.Model),
		zap.Int("dimensions", vecCfg.Dimensions),
	)

	generator := openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:      cfg.Generation.APIKey,
		BaseURL:     cfg.Generation.BaseURL,
		Model:       cfg.Generation.Model,
		Temperature: cfg.Generation.Temperature,
		MaxTokens:   cfg.Generation.MaxTokens,
		Provider:    cfg.Embedding.Provider,
		Logger:      logger,
	})

	// Stub deployments run retrieval only: no translation variant, no
	// generation health check. The generator stays wired so /v1/answers
	// fails with a clear 503 instead of a nil dereference.
	var translator expand.Translator
	var genChecker healthuc.ProviderChecker
	if cfg.Embedding.Provider != "stub" {
		translator = openaiTransport.NewTranslator(&openaiTransport.TranslatorConfig{
			APIKey:   cfg.Generation.APIKey,
			BaseURL:  cfg.Generation.BaseURL,
			Model:    cfg.Generation.Model,
			Provider: cfg.Embedding.Provider,
			Logger:   logger,
		})
		genChecker = generator
	}

	// Indexes and the persistence boundary. The vector index tag pins
	// vectors to the embedding model that produced them.
	vectors, err := vector.New(vecCfg.Dimensions, vecCfg.IndexTag())
	if err != nil {
		logger.Fatal("Failed to create vector index", zap.Error(err))
	}
	lexicon := lexical.New()
	cat := catalog.New()
	chunkRepo := chunkstore.New(store)

	splitter, err := chunk.NewSplitter(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		logger.Fatal("Invalid chunking geometry", zap.Error(err))
	}

	ingestSvc := ingestuc.New(splitter, docEmbedder, vectors, lexicon, cat, chunkRepo, logger)

	restored, err := ingestSvc.Rebuild(ctx)
	if err != nil {
		logger.Fatal("Failed to rebuild indexes from store", zap.Error(err))
	}
	logger.Info("Indexes rebuilt", zap.Int("documents", restored))

	expander := expand.New(expand.Config{
		Translator:     translator,
		CorpusLanguage: language.Language(cfg.Expansion.CorpusLanguage),
		MaxVariants:    cfg.Expansion.MaxVariants,
		Synonyms:       synonymRules(cfg.Expansion.Synonyms),
	}, logger)

	// Pass nil interface (not typed nil pointer!) when the cache is off.
	var cache searchuc.Cache
	if cfg.Cache.Enabled {
		cache = resultcache.New(store,
			time.Duration(cfg.Cache.TTLSec)*time.Second, metrics.ResultCacheTotal, logger)
	}

	searchSvc := searchuc.New(expander, queryEmbedder, vectors, lexicon, cat, cache, searchuc.Config{
		SemanticWeight: cfg.Search.SemanticWeight,
		RRFK:           cfg.Search.RRFK,
		AgreementBonus: cfg.Search.AgreementBonus,
		VariantTimeout: time.Duration(cfg.Search.VariantTimeoutMS) * time.Millisecond,
		Thresholds: confidence.Thresholds{
			High:   cfg.Confidence.High,
			Medium: cfg.Confidence.Medium,
			Low:    cfg.Confidence.Low,
		},
	}, logger)

	answerSvc := answeruc.New(searchSvc, generator, answeruc.Config{}, logger)
	healthSvc := healthuc.New(store, embChecker, genChecker)

	server := chiTransport.NewServer(ingestSvc, searchSvc, answerSvc, healthSvc, logger).
		WithSearchLimits(cfg.Search.TopK, cfg.Search.MaxTopK)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain: provider -> cached ->
// instrumented -> retry -> instruction. Retry sits above the cache so a
// second attempt serves already-cached vectors and re-embeds only the
// misses.
func buildEmbedder(
	base domain.Embedder,
	cfg config.EmbeddingConfig,
	vecCfg domain.VectorConfig,
	instruction string,
	store db.Store,
	logger *zap.Logger,
) domain.BatchEmbedder {
	cached := embcache.New(base, store, vecCfg.Model, metrics.EmbeddingCacheTotal, logger)
	instrumented := embeddinguc.NewInstrumentedEmbedder(cached, cfg.Provider, vecCfg.Model, logger)
	retried := embeddinguc.NewRetryEmbedder(instrumented, embeddinguc.RetryConfig{
		Attempts: uint(cfg.Retry.Attempts),
		Delay:    time.Duration(cfg.Retry.BackoffMS) * time.Millisecond,
	}, logger)
	if instruction == "" {
		return retried
	}
	// Instruction goes outermost so the cache keys on the prefixed text.
	return domain.NewInstructionEmbedder(retried, instruction)
}

// synonymRules converts the config synonym overlay into expansion rulesets.
func synonymRules(raw map[string]map[string][]string) map[language.Language]expand.Ruleset {
	if len(raw) == 0 {
		return nil
	}
	rules := make(map[language.Language]expand.Ruleset, len(raw))
	for lang, table := range raw {
		rules[language.Language(lang)] = expand.Ruleset(table)
	}
	return rules
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
