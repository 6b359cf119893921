package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoadDefaults(t *testing.T) {
	p := writeConfig(t, "environment: test\n")
	c, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Backend.Type != BackendNone || c.Server.Port != 8080 || c.Stream.Interval != time.Minute {
		t.Fatalf("defaults not applied: %+v", c)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		body string
		err  string
	}{
		{"missing env", "backend:\n  type: none\n", "environment is required"},
		{"unknown backend", "environment: test\nbackend:\n  type: mongo\n", "backend.type must be"},
		{"kafka without brokers", "environment: test\nbackend:\n  type: kafka\nkafka:\n  topic: calc\n", "kafka.brokers"},
		{"kafka without topic", "environment: test\nbackend:\n  type: kafka\nkafka:\n  brokers: [\"k:9092\"]\n", "kafka.topic"},
		{"postgres without dsn", "environment: test\nbackend:\n  type: postgres\n", "postgres.dsn"},
		{"clickhouse without host", "environment: test\nbackend:\n  type: clickhouse\n", "clickhouse.host"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, c.body))
			if err == nil || !strings.Contains(err.Error(), c.err) {
				t.Fatalf("expected error containing %q, got %v", c.err, err)
			}
		})
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	p := writeConfig(t, "environment: test\n")
	t.Setenv("BACKEND", "postgres")
	t.Setenv("POSTGRES_DSN", "postgres://u:p@localhost:5432/jyotish")
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("EPHEMERIS_URL", "http://ephem:9000")

	c, err := LoadWithEnv(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Backend.Type != BackendPostgres || c.Postgres.DSN == "" {
		t.Fatalf("backend override not applied: %+v", c.Backend)
	}
	if !c.Redis.Enabled || c.RedisAddr() != "cache:6380" {
		t.Fatalf("redis override not applied: %s", c.RedisAddr())
	}
	if c.Ephemeris.BaseURL != "http://ephem:9000" {
		t.Fatalf("ephemeris override not applied")
	}
}
