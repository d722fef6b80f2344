package cache

import (
	"os"
	"testing"
	"time"

	"github.com/caarlos0/env/v10"
)

func TestConfigDefaults(t *testing.T) {
	// t.Setenv registers restoration, the unset makes the default apply.
	t.Setenv("REDIS_URL", "")
	os.Unsetenv("REDIS_URL")

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.URL != "redis://localhost:6379/0" {
		t.Errorf("URL = %q", cfg.URL)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://cache.internal:6380/2")

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.URL != "redis://cache.internal:6380/2" {
		t.Errorf("URL = %q", cfg.URL)
	}
}

func TestStoreKey(t *testing.T) {
	t.Parallel()

	s := NewStore[struct{}](nil, "users", time.Minute)
	if got := s.key("u1"); got != "users:u1" {
		t.Errorf("key = %q, want %q", got, "users:u1")
	}
}

func TestStoreTTLFallback(t *testing.T) {
	t.Parallel()

	s := NewStore[struct{}](nil, "users", 0)
	if s.ttl != DefaultTTL {
		t.Errorf("ttl = %v, want %v", s.ttl, DefaultTTL)
	}

	s = NewStore[struct{}](nil, "users", time.Minute)
	if s.ttl != time.Minute {
		t.Errorf("ttl = %v, want %v", s.ttl, time.Minute)
	}
}
