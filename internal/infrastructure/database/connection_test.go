package database

import (
	"testing"
	"time"
)

func TestDSN(t *testing.T) {
	cfg := Config{
		Host: "db.internal", Port: 5433, User: "bot",
		Password: "secret", DBName: "trustmebro", SSLMode: "require",
	}

	want := "host=db.internal port=5433 user=bot password=secret dbname=trustmebro sslmode=require"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN mismatch:\n got %q\nwant %q", got, want)
	}
}

func TestWithPoolDefaults(t *testing.T) {
	got := Config{}.withPoolDefaults()
	if got.MaxOpenConns != defaultMaxOpenConns ||
		got.MaxIdleConns != defaultMaxIdleConns ||
		got.ConnMaxLifetime != defaultConnMaxLifetime {
		t.Errorf("zero config must pick up defaults, got %+v", got)
	}

	explicit := Config{MaxOpenConns: 3, MaxIdleConns: 2, ConnMaxLifetime: time.Minute}.withPoolDefaults()
	if explicit.MaxOpenConns != 3 || explicit.MaxIdleConns != 2 || explicit.ConnMaxLifetime != time.Minute {
		t.Errorf("explicit values must be kept, got %+v", explicit)
	}
}
