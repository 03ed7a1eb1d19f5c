package tiered_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Strob0t/ReplyForge/internal/adapter/tiered"
)

type memCache struct {
	data map[string][]byte
	err  error
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	if m.err != nil {
		return nil, false, m.err
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	if m.err != nil {
		return m.err
	}
	delete(m.data, key)
	return nil
}

func TestGet(t *testing.T) {
	tests := []struct {
		name      string
		l1, l2    map[string][]byte
		wantVal   string
		wantFound bool
	}{
		{"l1 hit", map[string][]byte{"k": []byte("one")}, map[string][]byte{"k": []byte("two")}, "one", true},
		{"l2 hit", nil, map[string][]byte{"k": []byte("two")}, "two", true},
		{"miss", nil, nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l1, l2 := newMemCache(), newMemCache()
			for k, v := range tt.l1 {
				l1.data[k] = v
			}
			for k, v := range tt.l2 {
				l2.data[k] = v
			}
			c := tiered.New(l1, l2, time.Minute)

			val, found, err := c.Get(context.Background(), "k")
			if err != nil {
				t.Fatal(err)
			}
			if found != tt.wantFound || string(val) != tt.wantVal {
				t.Fatalf("Get = %q, %v; want %q, %v", val, found, tt.wantVal, tt.wantFound)
			}
		})
	}
}

func TestGetBackfillsL1(t *testing.T) {
	l1, l2 := newMemCache(), newMemCache()
	l2.data["idem:POST:/api/v1/drafts:abc"] = []byte("resp")
	c := tiered.New(l1, l2, time.Minute)

	if _, _, err := c.Get(context.Background(), "idem:POST:/api/v1/drafts:abc"); err != nil {
		t.Fatal(err)
	}
	if string(l1.data["idem:POST:/api/v1/drafts:abc"]) != "resp" {
		t.Fatal("expected L1 backfill")
	}
}

func TestGetL2ErrorIsMiss(t *testing.T) {
	l1, l2 := newMemCache(), newMemCache()
	l2.err = errors.New("nats: timeout")
	c := tiered.New(l1, l2, time.Minute)

	_, found, err := c.Get(context.Background(), "k")
	if err != nil {
		t.Fatalf("err = %v, want nil", err)
	}
	if found {
		t.Fatal("expected miss")
	}
}

func TestSetWritesBoth(t *testing.T) {
	l1, l2 := newMemCache(), newMemCache()
	c := tiered.New(l1, l2, time.Minute)

	if err := c.Set(context.Background(), "k", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	if _, ok := l1.data["k"]; !ok {
		t.Error("expected k in L1")
	}
	if _, ok := l2.data["k"]; !ok {
		t.Error("expected k in L2")
	}
}

func TestSetReportsL2Error(t *testing.T) {
	l1, l2 := newMemCache(), newMemCache()
	l2.err = errors.New("down")
	c := tiered.New(l1, l2, time.Minute)

	if err := c.Set(context.Background(), "k", []byte("v"), time.Minute); err == nil {
		t.Fatal("expected L2 error")
	}
	if _, ok := l1.data["k"]; !ok {
		t.Error("L1 write should stand")
	}
}

func TestDeleteBoth(t *testing.T) {
	l1, l2 := newMemCache(), newMemCache()
	l1.data["k"] = []byte("v")
	l2.data["k"] = []byte("v")
	c := tiered.New(l1, l2, time.Minute)

	if err := c.Delete(context.Background(), "k"); err != nil {
		t.Fatal(err)
	}
	if len(l1.data) != 0 || len(l2.data) != 0 {
		t.Fatalf("expected both levels empty, got %v / %v", l1.data, l2.data)
	}
}
