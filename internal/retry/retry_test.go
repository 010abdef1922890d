package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCalculateBackoffNoJitter(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{10, 30 * time.Second}, // capped
	}
	for _, c := range cases {
		got := CalculateBackoff(c.attempt, time.Second, 30*time.Second, 2.0, 0)
		if got != c.want {
			t.Errorf("attempt %d: got %v, want %v", c.attempt, got, c.want)
		}
	}
}

func TestCalculateBackoffJitterBounds(t *testing.T) {
	for i := 0; i < 50; i++ {
		d := CalculateBackoff(0, time.Second, 30*time.Second, 2.0, 0.1)
		if d < 900*time.Millisecond || d > 1100*time.Millisecond {
			t.Fatalf("jittered delay %v out of [900ms,1100ms]", d)
		}
	}
}

type fixedClassifier struct {
	decision Decision
}

func (f fixedClassifier) Classify(error) Decision { return f.decision }

func TestDoSucceedsFirstTry(t *testing.T) {
	cfg := DefaultConfig()
	calls := 0
	result, err := Do(context.Background(), cfg, fixedClassifier{}, func(ctx context.Context) (int, error) {
		calls++
		return 42, nil
	})
	if err != nil || result != 42 || calls != 1 {
		t.Fatalf("got result=%d err=%v calls=%d", result, err, calls)
	}
}

func TestDoNonRetryableAbortsImmediately(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialBackoff = time.Millisecond
	classifier := fixedClassifier{decision: Decision{ShouldRetry: false, Reason: "bad key"}}
	calls := 0
	wantErr := errors.New("auth failed")
	_, err := Do(context.Background(), cfg, classifier, func(ctx context.Context) (int, error) {
		calls++
		return 0, wantErr
	})
	if calls != 1 {
		t.Fatalf("expected exactly one attempt, got %d", calls)
	}
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected original error propagated unchanged, got %v", err)
	}
}

func TestDoRetriesUntilExhausted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRetries = 2
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = time.Millisecond
	classifier := fixedClassifier{decision: Decision{ShouldRetry: true, ErrorType: ErrorServerError}}
	calls := 0
	wantErr := errors.New("server error")
	_, err := Do(context.Background(), cfg, classifier, func(ctx context.Context) (int, error) {
		calls++
		return 0, wantErr
	})
	if calls != cfg.MaxRetries+1 {
		t.Fatalf("expected %d attempts, got %d", cfg.MaxRetries+1, calls)
	}
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected last error propagated, got %v", err)
	}
}

func TestDoRetriesThenSucceeds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = time.Millisecond
	classifier := fixedClassifier{decision: Decision{ShouldRetry: true, ErrorType: ErrorRateLimit}}
	calls := 0
	result, err := Do(context.Background(), cfg, classifier, func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("rate limited")
		}
		return 7, nil
	})
	if err != nil || result != 7 || calls != 3 {
		t.Fatalf("got result=%d err=%v calls=%d", result, err, calls)
	}
}

func TestDoDisabledCategorySkipsRetry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RetryOnRateLimit = false
	classifier := fixedClassifier{decision: Decision{ShouldRetry: true, ErrorType: ErrorRateLimit}}
	calls := 0
	_, err := Do(context.Background(), cfg, classifier, func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("rate limited")
	})
	if calls != 1 {
		t.Fatalf("expected single attempt when category disabled, got %d", calls)
	}
	if err == nil {
		t.Fatal("expected error")
	}
}
