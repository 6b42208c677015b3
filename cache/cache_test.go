package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestKey(t *testing.T) {
	if Key("duckduckgo", "whisky") == Key("google", "whisky") {
		t.Error("provider must be part of the key")
	}
	if Key("duckduckgo", "whisky") != Key("duckduckgo", "whisky") {
		t.Error("key is not deterministic")
	}
}

func TestMemoryGetSet(t *testing.T) {
	c := NewMemory(10, time.Hour)
	defer c.Close()
	ctx := context.Background()

	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("unexpected hit on empty cache")
	}
	in := []string{"https://a.example/1", "https://b.example/2"}
	c.Set(ctx, "k", in)
	in[0] = "mutated"

	got, ok := c.Get(ctx, "k")
	if !ok {
		t.Fatal("expected hit")
	}
	if len(got) != 2 || got[0] != "https://a.example/1" {
		t.Errorf("Get = %v", got)
	}
}

func TestMemoryExpiry(t *testing.T) {
	c := NewMemory(10, time.Minute)
	defer c.Close()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	c.Set(ctx, "k", []string{"https://a.example/"})
	now = now.Add(2 * time.Minute)
	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("expired entry returned")
	}
	c.evictExpired()
	if c.Len() != 0 {
		t.Errorf("Len after eviction = %d, want 0", c.Len())
	}
}

func TestMemoryCapacity(t *testing.T) {
	c := NewMemory(2, time.Hour)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "a", nil)
	c.Set(ctx, "b", nil)
	c.Set(ctx, "b", []string{"x"})
	if c.Len() != 2 {
		t.Fatalf("overwrite evicted: Len = %d", c.Len())
	}
	c.Set(ctx, "c", nil)
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
	if _, ok := c.Get(ctx, "c"); !ok {
		t.Error("newest entry missing")
	}
}

// fakeRedis implements the two commands the cache issues.
type fakeRedis struct {
	redis.Cmdable
	data   map[string]string
	ttl    time.Duration
	getErr error
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.data[key] = string(value.([]byte))
	f.ttl = expiration
	return redis.NewStatusResult("OK", nil)
}

func TestRedis(t *testing.T) {
	fake := &fakeRedis{data: map[string]string{}}
	c := &Redis{client: fake, ttl: time.Hour}
	ctx := context.Background()

	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("unexpected hit")
	}
	c.Set(ctx, "k", []string{"https://a.example/"})
	if _, stored := fake.data[keyPrefix+"k"]; !stored {
		t.Fatalf("key not prefixed: %v", fake.data)
	}
	if fake.ttl != time.Hour {
		t.Errorf("ttl = %v", fake.ttl)
	}
	got, ok := c.Get(ctx, "k")
	if !ok || len(got) != 1 || got[0] != "https://a.example/" {
		t.Errorf("Get = %v, %v", got, ok)
	}

	fake.data[keyPrefix+"bad"] = "{not json"
	if _, ok := c.Get(ctx, "bad"); ok {
		t.Error("corrupt entry returned")
	}

	fake.getErr = errors.New("connection refused")
	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("backend error reported as hit")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close = %v", err)
	}
}
