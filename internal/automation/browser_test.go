package automation

import (
	"context"
	"math/rand"
	"testing"
	"time"
)

func TestIsHidden(t *testing.T) {
	cases := map[string]bool{
		"display:none":              true,
		"DISPLAY : NONE;":           true,
		"color: red; display: none": true,
		"display:block":             false,
		"":                          false,
	}
	for style, want := range cases {
		if got := isHidden(style); got != want {
			t.Errorf("isHidden(%q) = %v, want %v", style, got, want)
		}
	}
}

func TestScrollPlanBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 50; run++ {
		plan := scrollPlan(rng)
		if len(plan) < 5 || len(plan) > 15 {
			t.Fatalf("plan has %d steps", len(plan))
		}
		for _, s := range plan {
			if s.amount < 200 || s.amount > 600 {
				t.Errorf("scroll amount %d out of range", s.amount)
			}
			if s.pause < 300*time.Millisecond || s.pause >= 1500*time.Millisecond {
				t.Errorf("pause %s out of range", s.pause)
			}
		}
	}
}

func TestSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if err := sleep(ctx, time.Minute); err == nil {
		t.Error("expected context error")
	}
	if time.Since(start) > time.Second {
		t.Error("sleep ignored cancellation")
	}
}
