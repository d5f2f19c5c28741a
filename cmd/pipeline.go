package cmd

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/hiresense/internal/agents"
	"github.com/spigell/hiresense/internal/ai"
	"github.com/spigell/hiresense/internal/ai/cache"
	"github.com/spigell/hiresense/internal/ai/gemini"
	"github.com/spigell/hiresense/internal/ai/local"
	"github.com/spigell/hiresense/internal/logger"
	"github.com/spigell/hiresense/internal/memory"
	"github.com/spigell/hiresense/internal/notify"
	"github.com/spigell/hiresense/internal/secrets"
	"github.com/spigell/hiresense/internal/telemetry"
	"github.com/spigell/hiresense/internal/textproc"
)

const (
	providerGemini = "gemini"
	providerLocal  = "local"
)

// pipeline owns the supervisor and every resource it was built from.
type pipeline struct {
	supervisor *agents.Supervisor
	store      *memory.Store

	closers []func()
}

func (p *pipeline) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		p.closers[i]()
	}
}

func buildPipeline(ctx context.Context, config *Config, log *zap.Logger) (*pipeline, error) {
	p := &pipeline{}

	shutdownTracer, err := telemetry.InitTracer(ctx, config.Telemetry.ServiceName, version, config.Telemetry.CollectorURL, log)
	if err != nil {
		return nil, err
	}
	p.closers = append(p.closers, shutdownTracer)

	capabilities, closeAI, err := newAI(ctx, config.AI, log)
	if err != nil {
		p.Close()
		return nil, err
	}
	p.closers = append(p.closers, closeAI)

	store, err := memory.Open(ctx, &config.Memory, log)
	if err != nil {
		p.Close()
		return nil, err
	}
	p.store = store
	p.closers = append(p.closers, func() {
		if err := store.Close(); err != nil {
			log.Warn("closing memory store", zap.Error(err))
		}
	})

	publisher, err := notify.NewPublisher(&config.Notify, log)
	if err != nil {
		p.Close()
		return nil, err
	}
	p.closers = append(p.closers, publisher.Close)

	supervisor, err := agents.NewSupervisor(config.Pipeline, agents.Deps{
		Paraphraser: capabilities.paraphraser,
		Sentiment:   capabilities.sentiment,
		Embedder:    capabilities.embedder,
		Analyzer:    textproc.NewAnalyzer(),
		Store:       store,
		Publisher:   publisher,
		Logger:      log,
	})
	if err != nil {
		p.Close()
		return nil, err
	}
	p.supervisor = supervisor

	return p, nil
}

type capabilities struct {
	paraphraser ai.Paraphraser
	sentiment   ai.SentimentAnalyzer
	embedder    ai.Embedder
}

// newAI builds the model-backed capabilities and wraps the embedder with a cache.
func newAI(ctx context.Context, cfg *AIConfig, log *zap.Logger) (*capabilities, func(), error) {
	if cfg == nil {
		cfg = &AIConfig{}
	}

	var c *capabilities
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	switch provider {
	case providerGemini, "":
		var err error
		c, err = newGemini(ctx, cfg.Gemini, log)
		if err != nil {
			return nil, nil, err
		}
	case providerLocal:
		log.Warn("using local ai stand-ins", zap.String("hint", "set ai.provider to gemini for model-backed scoring"))
		c = &capabilities{
			paraphraser: local.Paraphraser{},
			sentiment:   local.SentimentAnalyzer{},
			embedder:    local.NewEmbedder(0),
		}
	default:
		return nil, nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	var (
		store cache.Store
		err   error
	)
	if url := strings.TrimSpace(cfg.Cache.RedisURL); url != "" {
		store, err = cache.NewRedisStore(ctx, url)
		if err != nil {
			return nil, nil, err
		}
		log.Debug("embedding cache in redis")
	} else {
		store = cache.NewMemoryStore()
	}

	c.embedder = cache.NewEmbedder(c.embedder, store, cfg.Cache.TTL, log)

	return c, func() {
		if err := store.Close(); err != nil {
			log.Warn("closing embedding cache", zap.Error(err))
		}
	}, nil
}

func newGemini(ctx context.Context, cfg *GeminiConfig, log *zap.Logger) (*capabilities, error) {
	if cfg == nil {
		cfg = &GeminiConfig{}
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.APIKey,
		File:  cfg.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE, or ai.provider: local)", err)
	}

	client, err := gemini.NewClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	genLogger := logger.WithAI(log, providerGemini, cfg.Model).With(
		zap.Int("ai_retry_attempts", cfg.MaxRetries),
	)

	generator, err := gemini.NewGenerator(client, cfg.Model, cfg.MaxRetries, genLogger)
	if err != nil {
		return nil, err
	}

	embedder, err := gemini.NewEmbedder(client, cfg.EmbeddingModel, logger.WithAI(log, providerGemini, cfg.EmbeddingModel))
	if err != nil {
		return nil, err
	}

	return &capabilities{
		paraphraser: gemini.NewParaphraser(generator, cfg.MaxLogLength, genLogger),
		sentiment:   gemini.NewSentimentAnalyzer(generator, cfg.MaxLogLength, genLogger),
		embedder:    embedder,
	}, nil
}
