package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func failing() error { return errBoom }
func passing() error { return nil }

func TestBreaker_OpensAfterMaxFailures(t *testing.T) {
	b := NewBreaker(3, time.Minute)
	ctx := context.Background()

	for range 3 {
		if err := b.Do(ctx, failing); !errors.Is(err, errBoom) {
			t.Fatalf("expected boom, got %v", err)
		}
	}

	if err := b.Do(ctx, passing); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(3, time.Minute)
	ctx := context.Background()

	_ = b.Do(ctx, failing)
	_ = b.Do(ctx, failing)
	if err := b.Do(ctx, passing); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	_ = b.Do(ctx, failing)
	_ = b.Do(ctx, failing)
	if err := b.Do(ctx, passing); errors.Is(err, ErrCircuitOpen) {
		t.Fatal("circuit should still be closed after reset")
	}
}

func TestBreaker_HalfOpenProbeClosesOnSuccess(t *testing.T) {
	clock := time.Now()
	b := NewBreaker(1, time.Minute)
	b.now = func() time.Time { return clock }
	ctx := context.Background()

	_ = b.Do(ctx, failing)
	if err := b.Do(ctx, passing); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected open circuit, got %v", err)
	}

	clock = clock.Add(2 * time.Minute)
	if err := b.Do(ctx, passing); err != nil {
		t.Fatalf("half-open probe should pass: %v", err)
	}
	if err := b.Do(ctx, passing); err != nil {
		t.Fatalf("circuit should be closed again: %v", err)
	}
}

func TestBreaker_HalfOpenProbeFailureReopens(t *testing.T) {
	clock := time.Now()
	b := NewBreaker(1, time.Minute)
	b.now = func() time.Time { return clock }
	ctx := context.Background()

	_ = b.Do(ctx, failing)
	clock = clock.Add(2 * time.Minute)
	_ = b.Do(ctx, failing)

	if err := b.Do(ctx, passing); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected reopened circuit, got %v", err)
	}
}

func TestBreaker_ContextCancelled(t *testing.T) {
	b := NewBreaker(1, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := b.Do(ctx, passing); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}
