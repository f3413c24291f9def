package redis

import (
	"testing"

	"github.com/shoppulse/recsys-backend/pkg/config"
)

func TestOptionsFromConfigRequiresURL(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error when url is missing")
	}
}

func TestOptionsFromConfigParsesURL(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{
		URL:      "redis://localhost:6379/2",
		PoolSize: 8,
	})
	if err != nil {
		t.Fatalf("optionsFromConfig: %v", err)
	}
	if opts.Addr != "localhost:6379" {
		t.Fatalf("unexpected addr %q", opts.Addr)
	}
	if opts.DB != 2 {
		t.Fatalf("unexpected db %d", opts.DB)
	}
	if opts.PoolSize != 8 {
		t.Fatalf("unexpected pool size %d", opts.PoolSize)
	}
}

func TestLockKeyIsNamespaced(t *testing.T) {
	c := &Client{}
	if got := c.LockKey("sync-worker", "production"); got != "sp:sync-worker:production" {
		t.Fatalf("unexpected lock key %q", got)
	}
}
