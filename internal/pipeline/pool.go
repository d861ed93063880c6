package pipeline

import (
	"context"
	"fmt"
)

// Pool hands out pipelines to concurrent callers. Each pipeline is used by
// at most one caller at a time.
type Pool struct {
	items chan *Pipeline
	size  int
}

// NewPool builds size pipelines with build.
func NewPool(size int, build func(worker int) (*Pipeline, error)) (*Pool, error) {
	if size <= 0 {
		size = 1
	}

	pool := &Pool{items: make(chan *Pipeline, size), size: size}
	for i := 0; i < size; i++ {
		p, err := build(i)
		if err != nil {
			return nil, fmt.Errorf("build pipeline %d: %w", i, err)
		}
		pool.items <- p
	}

	return pool, nil
}

func (p *Pool) Size() int { return p.size }

// Acquire blocks until a pipeline is free or ctx is done.
func (p *Pool) Acquire(ctx context.Context) (*Pipeline, error) {
	select {
	case item := <-p.items:
		return item, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns a pipeline obtained from Acquire.
func (p *Pool) Release(item *Pipeline) {
	p.items <- item
}
