package cache

import (
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantDB  int
		wantErr bool
	}{
		{"valid-redis", "redis://localhost:6379", 0, false},
		{"valid-with-db", "redis://localhost:6379/3", 3, false},
		{"wrong-scheme", "http://localhost:6379", 0, true},
		{"empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := ParseURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && opts.DB != tt.wantDB {
				t.Errorf("DB = %d, want %d", opts.DB, tt.wantDB)
			}
		})
	}
}

func TestNew_UnreachableHost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping unreachable host test in short mode")
	}

	_, err := New(t.Context(), "redis://localhost:59999")
	if err == nil {
		t.Fatal("New() should return error for unreachable host")
	}
}

func TestWithPrefix(t *testing.T) {
	base := &Cache{Client: redis.NewClient(&redis.Options{Addr: "localhost:59999"})}
	defer base.Close()

	tests := []struct {
		name string
		c    *Cache
		want string
	}{
		{"bare", base, "device:filge.progress.v1"},
		{"single", base.WithPrefix("filge:"), "filge:device:filge.progress.v1"},
		{"nested", base.WithPrefix("filge:").WithPrefix("test:"), "filge:test:device:filge.progress.v1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.Key("device:filge.progress.v1"); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
			if tt.c.Client != base.Client {
				t.Error("WithPrefix() should share the connection")
			}
		})
	}
}

func TestCache_Container(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := t.Context()
	ctr, err := testcontainers.Run(ctx, "redis:7-alpine",
		testcontainers.WithExposedPorts("6379/tcp"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("6379/tcp")),
	)
	defer func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("terminate container: %v", err)
		}
	}()
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}

	url, err := ctr.PortEndpoint(ctx, "6379/tcp", "redis")
	if err != nil {
		t.Fatalf("PortEndpoint() error = %v", err)
	}

	c, err := New(ctx, url)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()
	scoped := c.WithPrefix("filge:")

	if _, ok, err := scoped.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("Get() on missing key = ok %v, err %v", ok, err)
	}
	if err := scoped.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if v, ok, err := scoped.Get(ctx, "k"); err != nil || !ok || v != "v" {
		t.Fatalf("Get() = %q, %v, %v; want v", v, ok, err)
	}
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("unprefixed key should not exist")
	}
	if v, ok, _ := c.Get(ctx, "filge:k"); !ok || v != "v" {
		t.Errorf("raw Get(filge:k) = %q, %v", v, ok)
	}
	if err := scoped.Del(ctx, "k"); err != nil {
		t.Fatalf("Del() error = %v", err)
	}
	if err := scoped.Del(ctx, "k"); err != nil {
		t.Errorf("Del() on missing key error = %v", err)
	}
	if _, ok, _ := scoped.Get(ctx, "k"); ok {
		t.Error("key still present after Del()")
	}
}
