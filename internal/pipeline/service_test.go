package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/spigell/arie/internal/resume"
)

type memoryCache struct {
	mu       sync.Mutex
	profiles map[string]*resume.Profile
	getErr   error
	puts     int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{profiles: make(map[string]*resume.Profile)}
}

func (m *memoryCache) Get(_ context.Context, key string) (*resume.Profile, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	p, ok := m.profiles[key]
	return p, ok, nil
}

func (m *memoryCache) Put(_ context.Context, key string, p *resume.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	m.profiles[key] = p
	return nil
}

func newTestPool(t *testing.T, size int, parser *fakeParser) *Pool {
	t.Helper()
	pool, err := NewPool(size, func(int) (*Pipeline, error) {
		return New(&fakeDetector{boxes: testBoxes()}, &fakeExtractor{}, parser, nil), nil
	})
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	return pool
}

func TestServiceCachesByDigest(t *testing.T) {
	parser := &fakeParser{}
	cache := newMemoryCache()
	svc := NewService(newTestPool(t, 1, parser), cache, nil)

	for i := 0; i < 2; i++ {
		profile, err := svc.Extract(context.Background(), []byte(fakePDF))
		if err != nil {
			t.Fatalf("run %d: unexpected error: %v", i, err)
		}
		if profile.PersonalInfo.Name == nil || *profile.PersonalInfo.Name != "Jane Doe" {
			t.Fatalf("run %d: unexpected profile %+v", i, profile)
		}
	}

	if parser.calls != 1 {
		t.Fatalf("expected models to run once, ran %d times", parser.calls)
	}
	if cache.puts != 1 {
		t.Fatalf("expected one cache write, got %d", cache.puts)
	}
	if _, ok := cache.profiles[Digest([]byte(fakePDF))]; !ok {
		t.Fatalf("profile not stored under document digest")
	}
}

func TestServiceIgnoresCacheErrors(t *testing.T) {
	parser := &fakeParser{}
	cache := newMemoryCache()
	cache.getErr = errors.New("database is locked")

	svc := NewService(newTestPool(t, 1, parser), cache, nil)
	if _, err := svc.Extract(context.Background(), []byte(fakePDF)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parser.calls != 1 {
		t.Fatalf("expected pipeline to run on cache failure")
	}
}

func TestServiceDoesNotCacheFailures(t *testing.T) {
	cache := newMemoryCache()
	svc := NewService(newTestPool(t, 1, &fakeParser{}), cache, nil)

	if _, err := svc.Extract(context.Background(), []byte("not a pdf")); !IsInput(err) {
		t.Fatalf("expected input error, got %v", err)
	}
	if cache.puts != 0 {
		t.Fatalf("failures must not be cached")
	}
}

func TestPoolAcquireHonoursContext(t *testing.T) {
	pool := newTestPool(t, 1, &fakeParser{})

	held, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := pool.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	pool.Release(held)
	again, err := pool.Acquire(context.Background())
	if err != nil || again != held {
		t.Fatalf("expected released pipeline back, got %v (%v)", again, err)
	}
}

func TestNewPoolBuildFailure(t *testing.T) {
	_, err := NewPool(3, func(worker int) (*Pipeline, error) {
		if worker == 2 {
			return nil, errors.New("model offline")
		}
		return New(nil, nil, nil, nil), nil
	})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestNewPoolMinimumSize(t *testing.T) {
	pool := newTestPool(t, 0, &fakeParser{})
	if pool.Size() != 1 {
		t.Fatalf("expected size 1, got %d", pool.Size())
	}
}
