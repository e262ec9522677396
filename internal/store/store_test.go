package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"ekyc_capture/native/internal/logger"
)

func TestMemory_RoundTrip(t *testing.T) {
	m := NewMemory(0)
	ctx := context.Background()

	if _, ok, err := m.LoadDocument(ctx); ok || err != nil {
		t.Fatalf("expected empty store, got ok=%v err=%v", ok, err)
	}

	in := map[string]string{"nik": "3171", "nama": "Budi"}
	if err := m.SaveDocument(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	in["nama"] = "changed"

	got, ok, err := m.LoadDocument(ctx)
	if !ok || err != nil {
		t.Fatalf("expected stored result, got ok=%v err=%v", ok, err)
	}
	if got["nama"] != "Budi" || got["nik"] != "3171" {
		t.Errorf("unexpected result %v", got)
	}

	_ = m.Clear(ctx)
	if _, ok, _ := m.LoadDocument(ctx); ok {
		t.Error("expected result cleared")
	}
}

func TestMemory_Expiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory(30 * time.Minute)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	_ = m.SaveDocument(ctx, map[string]string{"nik": "1"})

	now = now.Add(30 * time.Minute)
	if _, ok, _ := m.LoadDocument(ctx); !ok {
		t.Error("result must survive until the ttl has elapsed")
	}

	now = now.Add(time.Second)
	if _, ok, _ := m.LoadDocument(ctx); ok {
		t.Error("result must expire after the ttl")
	}
}

// fakeKV mimics the redis commands the store issues.
type fakeKV struct {
	values map[string]string
	ttls   map[string]time.Duration
	err    error
}

func newFakeKV() *fakeKV {
	return &fakeKV{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeKV) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	switch v := value.(type) {
	case []byte:
		f.values[key] = string(v)
	case string:
		f.values[key] = v
	}
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeKV) Get(_ context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeKV) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.values[k]; ok {
			delete(f.values, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRedis_RoundTrip(t *testing.T) {
	kv := newFakeKV()
	r := newRedis(kv, RedisOptions{TTL: 30 * time.Minute, Prefix: "sess-1"}, logger.Discard())
	ctx := context.Background()

	if _, ok, err := r.LoadDocument(ctx); ok || err != nil {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}

	if err := r.SaveDocument(ctx, map[string]string{"nik": "3171", "nama": "Budi"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if kv.ttls["sess-1:ktpData"] != 30*time.Minute {
		t.Errorf("expected ttl on sess-1:ktpData, got %v", kv.ttls)
	}

	got, ok, err := r.LoadDocument(ctx)
	if !ok || err != nil {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if got["nama"] != "Budi" {
		t.Errorf("unexpected result %v", got)
	}

	if err := r.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := r.LoadDocument(ctx); ok {
		t.Error("expected result cleared")
	}
}

func TestRedis_DefaultPrefix(t *testing.T) {
	kv := newFakeKV()
	r := newRedis(kv, RedisOptions{}, logger.Discard())

	_ = r.SaveDocument(context.Background(), map[string]string{})
	if _, ok := kv.values["ekyc:ktpData"]; !ok {
		t.Errorf("expected default key, got %v", kv.values)
	}
}

func TestRedis_Errors(t *testing.T) {
	boom := errors.New("connection refused")
	kv := newFakeKV()
	kv.err = boom
	r := newRedis(kv, RedisOptions{}, logger.Discard())
	ctx := context.Background()

	if err := r.SaveDocument(ctx, map[string]string{"nik": "1"}); !errors.Is(err, boom) {
		t.Errorf("expected wrapped save error, got %v", err)
	}
	if _, _, err := r.LoadDocument(ctx); !errors.Is(err, boom) {
		t.Errorf("expected wrapped load error, got %v", err)
	}

	kv.err = nil
	kv.values["ekyc:ktpData"] = "{broken"
	if _, ok, err := r.LoadDocument(ctx); ok || err == nil {
		t.Error("expected decode error for corrupt value")
	}
}
