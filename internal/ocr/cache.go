package ocr

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"mockpaper/internal/logger"
)

// EngineKey identifies one engine instance.
type EngineKey struct {
	Backend     string
	Languages   string // "+"-joined language codes
	Device      string
	StoragePath string // Model directory; empty for cloud backends
}

func (k EngineKey) String() string {
	return fmt.Sprintf("%s[%s/%s@%s]", k.Backend, k.Languages, k.Device, k.StoragePath)
}

// EngineFactory builds an engine for key.
type EngineFactory func(ctx context.Context, key EngineKey) (Engine, error)

type cacheEntry struct {
	once   sync.Once
	engine Engine
	err    error
}

// EngineCache memoizes engines per key. Construction runs at most once per key
// even under concurrent first use; a failed construction is evicted so a later
// call can try again.
type EngineCache struct {
	mu      sync.Mutex
	entries map[EngineKey]*cacheEntry
	factory EngineFactory
	log     zerolog.Logger
}

// NewEngineCache creates an empty cache around factory.
func NewEngineCache(factory EngineFactory) *EngineCache {
	return &EngineCache{
		entries: make(map[EngineKey]*cacheEntry),
		factory: factory,
		log:     logger.WithComponent("ocr-cache"),
	}
}

// Get returns the engine for key, constructing it on first use.
func (c *EngineCache) Get(ctx context.Context, key EngineKey) (Engine, error) {
	c.mu.Lock()
	entry, ok := c.entries[key]
	if !ok {
		entry = &cacheEntry{}
		c.entries[key] = entry
	}
	c.mu.Unlock()

	entry.once.Do(func() {
		c.log.Info().Str("key", key.String()).Msg("Initializing OCR engine")
		// The engine outlives the request that happened to build it.
		entry.engine, entry.err = c.factory(context.WithoutCancel(ctx), key)
		if entry.err != nil {
			c.log.Error().Err(entry.err).Str("key", key.String()).Msg("OCR engine initialization failed")
		}
	})

	if entry.err != nil {
		c.mu.Lock()
		if c.entries[key] == entry {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, entry.err
	}
	return entry.engine, nil
}

// Len reports the number of cached engines.
func (c *EngineCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close closes and forgets every cached engine.
func (c *EngineCache) Close() error {
	c.mu.Lock()
	entries := c.entries
	c.entries = make(map[EngineKey]*cacheEntry)
	c.mu.Unlock()

	var errs []error
	for _, entry := range entries {
		if entry.engine != nil {
			if err := entry.engine.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// DefaultFactory builds engines for the backends this package ships.
func DefaultFactory(cfg Config) EngineFactory {
	return func(ctx context.Context, key EngineKey) (Engine, error) {
		langs := ParseLanguages(key.Languages)
		switch key.Backend {
		case BackendTesseract:
			return NewTesseractEngine(TesseractConfig{
				ModelDir:   key.StoragePath,
				ScratchDir: cfg.ScratchDir,
				Languages:  langs,
			})
		case BackendVision:
			return NewVisionEngine(ctx, cfg.Google, langs)
		case BackendDocumentAI:
			return NewDocumentAIEngine(ctx, cfg.Google)
		default:
			return nil, NewOCRError("DefaultFactory", ErrUnknownBackend, key.Backend)
		}
	}
}
