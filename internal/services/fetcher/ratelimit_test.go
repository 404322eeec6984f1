package fetcher

import (
	"context"
	"testing"
	"time"
)

func TestHostLimiterEnforcesDelay(t *testing.T) {
	limiter := NewHostLimiter(80 * time.Millisecond)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "https://cob.go.ke/a"); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(ctx, "https://cob.go.ke/b"); err != nil {
		t.Fatalf("second wait failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 60*time.Millisecond {
		t.Errorf("same-host wait returned after %v, want >= ~80ms", elapsed)
	}
}

func TestHostLimiterDifferentHostsIndependent(t *testing.T) {
	limiter := NewHostLimiter(200 * time.Millisecond)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "https://cob.go.ke/a"); err != nil {
		t.Fatalf("wait failed: %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(ctx, "https://knbs.or.ke/b"); err != nil {
		t.Fatalf("wait failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("different host waited %v, want immediate", elapsed)
	}
}

func TestHostLimiterWWWSharesBucket(t *testing.T) {
	limiter := NewHostLimiter(80 * time.Millisecond)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "https://www.treasury.go.ke/a"); err != nil {
		t.Fatalf("wait failed: %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(ctx, "https://treasury.go.ke/b"); err != nil {
		t.Fatalf("wait failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 60*time.Millisecond {
		t.Errorf("www/apex pair returned after %v, want shared pacing", elapsed)
	}
}

func TestHostLimiterContextCancel(t *testing.T) {
	limiter := NewHostLimiter(5 * time.Second)

	if err := limiter.Wait(context.Background(), "https://cob.go.ke/a"); err != nil {
		t.Fatalf("wait failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx, "https://cob.go.ke/b"); err == nil {
		t.Error("expected context error while waiting out a long delay")
	}
}
