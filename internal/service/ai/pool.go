package ai

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
)

var ErrPoolClosed = errors.New("detector pool is closed")

// Pool lends out one of several independently loaded detectors so that a
// detector is never used by two requests at once.
type Pool struct {
	idle      chan Detector
	all       []Detector
	closeOnce sync.Once
	closed    chan struct{}
}

// NewPool wraps already loaded detectors.
func NewPool(detectors ...Detector) (*Pool, error) {
	if len(detectors) == 0 {
		return nil, errors.New("detector pool needs at least one detector")
	}

	p := &Pool{
		idle:   make(chan Detector, len(detectors)),
		all:    detectors,
		closed: make(chan struct{}),
	}
	for _, d := range detectors {
		p.idle <- d
	}
	return p, nil
}

// NewPoolFromFactory loads size detectors with load.
func NewPoolFromFactory(size int, load func() (Detector, error)) (*Pool, error) {
	if size < 1 {
		size = 1
	}

	detectors := make([]Detector, 0, size)
	for i := 0; i < size; i++ {
		d, err := load()
		if err != nil {
			for _, loaded := range detectors {
				loaded.Close()
			}
			return nil, fmt.Errorf("failed to load detector %d: %w", i, err)
		}
		detectors = append(detectors, d)
	}
	return NewPool(detectors...)
}

// Size is the number of detectors in the pool.
func (p *Pool) Size() int { return len(p.all) }

// Predict waits for an idle detector, or for ctx to end.
func (p *Pool) Predict(ctx context.Context, frame image.Image, threshold float32) ([]Detection, error) {
	var d Detector
	select {
	case <-p.closed:
		return nil, ErrPoolClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	case d = <-p.idle:
	}
	defer func() { p.idle <- d }()

	// select picks at random when both are ready.
	select {
	case <-p.closed:
		return nil, ErrPoolClosed
	default:
	}

	return d.Predict(ctx, frame, threshold)
}

// Close closes every detector. Callers must not Predict afterwards.
func (p *Pool) Close() error {
	var firstErr error
	p.closeOnce.Do(func() {
		close(p.closed)
		for _, d := range p.all {
			if err := d.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	})
	return firstErr
}
