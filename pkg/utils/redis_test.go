package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeCmdable struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func newFakeCmdable() *fakeCmdable {
	return &fakeCmdable{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		f.values[key] = string(v)
	case string:
		f.values[key] = v
	}
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.values[k]; ok {
			delete(f.values, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

type cachedThing struct {
	Phone string `json:"phone"`
	Agent string `json:"agent"`
}

func TestGetJSONMissReturnsErrCacheMiss(t *testing.T) {
	rdb := newFakeCmdable()
	var out cachedThing
	err := GetJSON(context.Background(), rdb, "nope", &out)
	if !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
}

func TestSetJSONThenGetJSONRoundTrips(t *testing.T) {
	rdb := newFakeCmdable()
	in := cachedThing{Phone: "+15550100", Agent: "agt_1"}
	if err := SetJSON(context.Background(), rdb, "phone_info_+15550100", in, time.Hour); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if ttl := rdb.ttls["phone_info_+15550100"]; ttl != time.Hour {
		t.Fatalf("expected 1h ttl, got %v", ttl)
	}
	var out cachedThing
	if err := GetJSON(context.Background(), rdb, "phone_info_+15550100", &out); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if out != in {
		t.Fatalf("expected %+v, got %+v", in, out)
	}
}

func TestSetJSONRejectsZeroTTL(t *testing.T) {
	rdb := newFakeCmdable()
	if err := SetJSON(context.Background(), rdb, "k", cachedThing{}, 0); err == nil {
		t.Fatalf("expected error for zero ttl")
	}
}
