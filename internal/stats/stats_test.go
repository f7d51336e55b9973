package stats

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestMemory_Record(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	ctx := context.Background()

	m.Record(ctx, Event{Outcome: Delivered})
	m.Record(ctx, Event{Outcome: Delivered})
	m.Record(ctx, Event{Outcome: Honeypot})

	if got := m.Count(Delivered); got != 2 {
		t.Errorf("Delivered: got %d, want 2", got)
	}
	if got := m.Count(Honeypot); got != 1 {
		t.Errorf("Honeypot: got %d, want 1", got)
	}
	if got := m.Count(AuthFailure); got != 0 {
		t.Errorf("AuthFailure: got %d, want 0", got)
	}
}

func TestMemory_Concurrent(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Record(context.Background(), Event{Outcome: RateLimited})
		}()
	}
	wg.Wait()

	if got := m.Count(RateLimited); got != 100 {
		t.Errorf("RateLimited: got %d, want 100", got)
	}
}

func TestMemory_SnapshotIsCopy(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	m.Record(context.Background(), Event{Outcome: Invalid})

	snap := m.Snapshot()
	snap[Invalid] = 99

	if got := m.Count(Invalid); got != 1 {
		t.Errorf("Invalid after mutating snapshot: got %d, want 1", got)
	}
}

func TestNop(t *testing.T) {
	t.Parallel()

	var r Recorder = Nop{}
	if err := r.Record(context.Background(), Event{Outcome: Delivered}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRedis_Keys(t *testing.T) {
	t.Parallel()

	r := NewRedis(nil, WithPrefix("site:stats:"))
	at := time.Date(2024, 3, 9, 17, 45, 0, 0, time.UTC)

	if got := r.TotalKey(); got != "site:stats:total" {
		t.Errorf("TotalKey: got %q, want %q", got, "site:stats:total")
	}
	if got := r.BucketKey(at); got != "site:stats:hour:2024030917" {
		t.Errorf("BucketKey: got %q, want %q", got, "site:stats:hour:2024030917")
	}
}

func TestRedis_NilClientIsNoop(t *testing.T) {
	t.Parallel()

	var r *Redis
	if err := r.Record(context.Background(), Event{Outcome: Delivered}); err != nil {
		t.Errorf("nil recorder: unexpected error: %v", err)
	}
	if err := NewRedis(nil).Record(context.Background(), Event{Outcome: Delivered}); err != nil {
		t.Errorf("nil client: unexpected error: %v", err)
	}
}

func TestRedis_Record(t *testing.T) {
	addr := os.Getenv("STATS_REDIS_ADDR")
	if addr == "" {
		t.Skip("STATS_REDIS_ADDR not set; skipping integration test")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("ping redis: %v", err)
	}

	prefix := fmt.Sprintf("test:contact:%d", time.Now().UnixNano())
	r := NewRedis(client, WithPrefix(prefix), WithTTL(time.Minute))
	at := time.Now()

	for i := 0; i < 3; i++ {
		if err := r.Record(ctx, Event{Outcome: Delivered, At: at}); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	t.Cleanup(func() { client.Del(ctx, r.TotalKey(), r.BucketKey(at)) })

	total, err := client.HGet(ctx, r.TotalKey(), string(Delivered)).Result()
	if err != nil {
		t.Fatalf("HGet total: %v", err)
	}
	if n, _ := strconv.Atoi(total); n != 3 {
		t.Errorf("total delivered: got %s, want 3", total)
	}

	ttl, err := client.TTL(ctx, r.BucketKey(at)).Result()
	if err != nil {
		t.Fatalf("TTL: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("bucket TTL: got %v, want within (0, 1m]", ttl)
	}
}
