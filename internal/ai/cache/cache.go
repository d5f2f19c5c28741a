// Package cache memoizes embedding vectors so repeated runs over the same
// job descriptions and CVs do not pay for the same model calls twice.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/hiresense/internal/ai"
)

const DefaultTTL = 24 * time.Hour

var (
	ErrNotFound = errors.New("key not found in cache")
	ErrInvalid  = errors.New("invalid cached value")
)

// Store keeps vectors under string keys.
type Store interface {
	Get(ctx context.Context, key string) ([]float32, error)
	Set(ctx context.Context, key string, vector []float32, ttl time.Duration) error
	Close() error
}

// Embedder wraps another Embedder and serves repeated texts from a Store.
// Store failures are logged and treated as misses.
type Embedder struct {
	next   ai.Embedder
	store  Store
	ttl    time.Duration
	logger *zap.Logger
}

func NewEmbedder(next ai.Embedder, store Store, ttl time.Duration, logger *zap.Logger) *Embedder {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{next: next, store: store, ttl: ttl, logger: logger}
}

func (e *Embedder) Model() string {
	return e.next.Model()
}

// Key is the cache key of text for the given model.
func Key(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return "hiresense:embedding:" + hex.EncodeToString(sum[:])
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	keys := make([]string, len(texts))

	var (
		missIdx   []int
		missTexts []string
	)

	for i, text := range texts {
		keys[i] = Key(e.next.Model(), text)

		vector, err := e.store.Get(ctx, keys[i])
		switch {
		case err == nil:
			vectors[i] = vector
			continue
		case !errors.Is(err, ErrNotFound):
			e.logger.Warn("reading embedding cache", zap.Error(err))
		}

		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	e.logger.Debug("embedding cache lookup",
		zap.Int("hits", len(texts)-len(missIdx)),
		zap.Int("misses", len(missIdx)),
	)

	if len(missTexts) == 0 {
		return vectors, nil
	}

	fresh, err := e.next.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missTexts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(fresh), len(missTexts))
	}

	for j, i := range missIdx {
		vectors[i] = fresh[j]
		if err := e.store.Set(ctx, keys[i], fresh[j], e.ttl); err != nil {
			e.logger.Warn("writing embedding cache", zap.Error(err))
		}
	}

	return vectors, nil
}
