package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestReportCache_MissSetHit(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)
	cache := NewReportCache(client, time.Minute)

	if _, ok, err := cache.Get(ctx, "daily::"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	if err := cache.Set(ctx, "daily::", []byte(`{"rows":[]}`)); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, ok, err := cache.Get(ctx, "daily::")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if string(got) != `{"rows":[]}` {
		t.Errorf("unexpected cached value %s", got)
	}
}

func TestReportCache_InvalidateRetiresEntries(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)
	cache := NewReportCache(client, time.Minute)

	_ = cache.Set(ctx, "monthly:juan:", []byte("old"))
	if err := cache.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	if _, ok, _ := cache.Get(ctx, "monthly:juan:"); ok {
		t.Error("expected miss after invalidation")
	}

	_ = cache.Set(ctx, "monthly:juan:", []byte("new"))
	got, ok, _ := cache.Get(ctx, "monthly:juan:")
	if !ok || string(got) != "new" {
		t.Errorf("expected fresh entry, got %q ok=%v", got, ok)
	}
}

func TestReportCache_EntriesExpire(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestClient(t)
	cache := NewReportCache(client, time.Minute)

	_ = cache.Set(ctx, "daily::", []byte("x"))
	mr.FastForward(2 * time.Minute)

	if _, ok, _ := cache.Get(ctx, "daily::"); ok {
		t.Error("expected entry to expire")
	}
}

func TestLedgerLock_SingleHolder(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)

	first := NewLedgerLock(client, "data/users.txt", time.Minute)
	second := NewLedgerLock(client, "data/users.txt", time.Minute)

	ok, err := first.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}

	ok, err = second.Acquire(ctx)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if ok {
		t.Fatal("second instance must not acquire a held lock")
	}

	// A non-holder can neither refresh nor release.
	if ok, _ := second.Refresh(ctx); ok {
		t.Error("non-holder refresh should fail")
	}
	if err := second.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _ := first.Refresh(ctx); !ok {
		t.Error("holder should still own the lock")
	}

	if err := first.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	ok, err = second.Acquire(ctx)
	if err != nil || !ok {
		t.Errorf("expected lock free after release, ok=%v err=%v", ok, err)
	}
}

func TestLedgerLock_ExpiredLockIsLost(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestClient(t)

	lock := NewLedgerLock(client, "data/users.txt", time.Second)
	if ok, _ := lock.Acquire(ctx); !ok {
		t.Fatal("expected acquire")
	}

	mr.FastForward(2 * time.Second)

	if ok, _ := lock.Refresh(ctx); ok {
		t.Error("refresh after expiry should report loss")
	}
}
