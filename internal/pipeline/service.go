package pipeline

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"

	"go.uber.org/zap"

	"github.com/spigell/arie/internal/resume"
)

// Cache stores finished profiles by document digest.
type Cache interface {
	Get(ctx context.Context, key string) (*resume.Profile, bool, error)
	Put(ctx context.Context, key string, profile *resume.Profile) error
}

// Service extracts profiles from uploaded bytes on pooled pipelines, with an
// optional cache in front.
type Service struct {
	pool   *Pool
	cache  Cache
	logger *zap.Logger
}

// NewService wires a pool and an optional cache.
func NewService(pool *Pool, cache Cache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{pool: pool, cache: cache, logger: logger}
}

// Digest returns the cache key of a document.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Extract returns the profile of the PDF in data.
func (s *Service) Extract(ctx context.Context, data []byte) (*resume.Profile, error) {
	key := Digest(data)
	log := s.logger.With(zap.String("digest", key))

	if s.cache != nil {
		profile, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			log.Warn("cache lookup failed", zap.Error(err))
		} else if ok {
			log.Info("serving cached profile")
			return profile, nil
		}
	}

	p, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, newError(KindExtraction, PhaseInput, err)
	}
	profile, err := p.RunReader(ctx, bytes.NewReader(data))
	s.pool.Release(p)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Put(ctx, key, profile); err != nil {
			log.Warn("cache store failed", zap.Error(err))
		}
	}

	return profile, nil
}
