package ai

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
)

// Limits bounds the load the assistant can put on the provider.
type Limits struct {
	// MaxConcurrent is the number of calls allowed in flight at once.
	MaxConcurrent int
	// Timeout caps a single call, including the wait for a free slot.
	Timeout time.Duration
}

// DefaultLimits suits a single small instance on a pay-per-call API key.
func DefaultLimits() Limits {
	return Limits{
		MaxConcurrent: 3,
		Timeout:       60 * time.Second,
	}
}

// Limited wraps a Generator so that at most MaxConcurrent calls run at once.
// Callers over the limit block until a slot frees up or their context ends.
type Limited struct {
	next    Generator
	slots   *semaphore.Weighted
	size    int
	timeout time.Duration
}

// NewLimited wraps g. Non-positive limits fall back to DefaultLimits.
func NewLimited(g Generator, l Limits) *Limited {
	def := DefaultLimits()
	if l.MaxConcurrent <= 0 {
		l.MaxConcurrent = def.MaxConcurrent
	}
	if l.Timeout <= 0 {
		l.Timeout = def.Timeout
	}
	return &Limited{
		next:    g,
		slots:   semaphore.NewWeighted(int64(l.MaxConcurrent)),
		size:    l.MaxConcurrent,
		timeout: l.Timeout,
	}
}

// acquire returns a context bounded by the timeout and a release func, or an
// error when the slot wait outlives the context.
func (l *Limited) acquire(ctx context.Context) (context.Context, func(), error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)

	if err := l.slots.Acquire(ctx, 1); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("ai: waiting for a free slot: %w", err)
	}
	return ctx, func() {
		l.slots.Release(1)
		cancel()
	}, nil
}

func (l *Limited) Summarize(ctx context.Context, text string) (string, error) {
	ctx, release, err := l.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()
	return l.next.Summarize(ctx, text)
}

func (l *Limited) GeneratePost(ctx context.Context, topic string) (*GeneratedPost, error) {
	ctx, release, err := l.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return l.next.GeneratePost(ctx, topic)
}

func (l *Limited) GenerateImage(ctx context.Context, prompt string) (*Image, error) {
	ctx, release, err := l.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return l.next.GenerateImage(ctx, prompt)
}
