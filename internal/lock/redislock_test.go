package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newLocker(t *testing.T) (Locker, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return Locker{R: client, TTL: time.Minute}, mr
}

func TestTryRunsCallbackAndReleases(t *testing.T) {
	locker, mr := newLocker(t)
	ctx := context.Background()

	ran := false
	err := locker.Try(ctx, "checkout:abc", func(context.Context) error {
		ran = true
		if !mr.Exists("checkout:abc") {
			t.Fatal("expected lock key to exist while callback runs")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("try: %v", err)
	}
	if !ran {
		t.Fatal("callback did not run")
	}
	if mr.Exists("checkout:abc") {
		t.Fatal("expected lock key to be released")
	}
}

func TestTryRefusesHeldLock(t *testing.T) {
	locker, mr := newLocker(t)
	ctx := context.Background()

	mr.Set("checkout:abc", "other-token")
	err := locker.Try(ctx, "checkout:abc", func(context.Context) error {
		t.Fatal("callback must not run while the lock is held")
		return nil
	})
	if !errors.Is(err, ErrHeld) {
		t.Fatalf("expected ErrHeld, got %v", err)
	}
}

func TestTryReleasesOnCallbackError(t *testing.T) {
	locker, mr := newLocker(t)
	ctx := context.Background()

	sentinel := errors.New("boom")
	err := locker.Try(ctx, "checkout:abc", func(context.Context) error { return sentinel })
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if mr.Exists("checkout:abc") {
		t.Fatal("expected lock key to be released after error")
	}
}
