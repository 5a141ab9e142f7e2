package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLoopSucceedsAfterRetries(t *testing.T) {
	l := &Loop{MaxAttempts: 5}
	calls := 0
	err := l.Do(context.Background(), func(attempt int) error {
		calls++
		if attempt < 3 {
			return errors.New("timeout")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestLoopExhaustsBudget(t *testing.T) {
	l := &Loop{MaxAttempts: 4}
	calls := 0
	sentinel := errors.New("still down")
	err := l.Do(context.Background(), func(int) error {
		calls++
		return sentinel
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, sentinel) {
		t.Errorf("exhaustion should wrap the last error, got %v", err)
	}
	if calls != 4 {
		t.Errorf("calls = %d, want 4", calls)
	}
}

func TestLoopPermanentStopsImmediately(t *testing.T) {
	l := &Loop{MaxAttempts: 10}
	calls := 0
	inner := errors.New("disk gone")
	err := l.Do(context.Background(), func(int) error {
		calls++
		return Permanent(inner)
	})
	if err != inner {
		t.Errorf("want unwrapped inner error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestLoopContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := &Loop{MaxAttempts: 3, Delay: time.Hour}
	err := l.Do(ctx, func(int) error { return errors.New("x") })
	if err == nil || !errors.Is(err, context.Canceled) {
		t.Errorf("want context.Canceled, got %v", err)
	}
}

func TestIsPermanent(t *testing.T) {
	if IsPermanent(errors.New("plain")) {
		t.Error("plain error classified permanent")
	}
	if !IsPermanent(Permanent(errors.New("x"))) {
		t.Error("Permanent not detected")
	}
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
}
