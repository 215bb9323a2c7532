package ratelimiter

import (
	"context"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		rate      float64
		burst     int
		unlimited bool
	}{
		{name: "standard rate", rate: 100, burst: 200},
		{name: "zero burst is raised", rate: 5, burst: 0},
		{name: "zero rate is unlimited", rate: 0, burst: 0, unlimited: true},
		{name: "negative rate is unlimited", rate: -1, burst: 10, unlimited: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(tt.rate, tt.burst)
			if l == nil || l.limiter == nil {
				t.Fatal("New() returned an unusable limiter")
			}
			if got := l.Unlimited(); got != tt.unlimited {
				t.Errorf("Unlimited() = %v, want %v", got, tt.unlimited)
			}
			if !tt.unlimited && l.limiter.Burst() < 1 {
				t.Errorf("burst = %d, want >= 1", l.limiter.Burst())
			}
		})
	}
}

func TestAllow(t *testing.T) {
	l := New(1, 3)

	for i := 0; i < 3; i++ {
		if !l.Allow() {
			t.Fatalf("query %d should be allowed within burst", i)
		}
	}
	if l.Allow() {
		t.Error("query beyond burst should be rejected")
	}
}

func TestUnlimitedNeverBlocks(t *testing.T) {
	l := New(0, 0)
	for i := 0; i < 10000; i++ {
		if !l.Allow() {
			t.Fatalf("unlimited limiter rejected query %d", i)
		}
	}
}

func TestWait(t *testing.T) {
	t.Run("returns once a token is available", func(t *testing.T) {
		l := New(100, 1)
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		for i := 0; i < 3; i++ {
			if err := l.Wait(ctx); err != nil {
				t.Fatalf("Wait() error = %v", err)
			}
		}
	})

	t.Run("honours cancellation", func(t *testing.T) {
		l := New(0.001, 1)
		l.Allow()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := l.Wait(ctx); err == nil {
			t.Error("Wait() on cancelled context should fail")
		}
	})
}

func TestNilLimiter(t *testing.T) {
	var l *Limiter
	if err := l.Wait(context.Background()); err != nil {
		t.Errorf("nil Wait() error = %v", err)
	}
	if !l.Allow() {
		t.Error("nil Allow() should be true")
	}
	if !l.Unlimited() {
		t.Error("nil limiter should be unlimited")
	}
	l.SetLimit(10)
}

func TestSetLimit(t *testing.T) {
	l := New(0, 0)
	l.SetLimit(2)
	if l.Unlimited() {
		t.Fatal("SetLimit(2) should enable limiting")
	}

	l.SetLimit(0)
	if !l.Unlimited() {
		t.Error("SetLimit(0) should disable limiting")
	}
}
