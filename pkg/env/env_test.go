package env

import "testing"

func TestGetPrefersPrefixedValue(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	if got := Get("LOG_FORMAT", "x"); got != "json" {
		t.Fatalf("expected unprefixed value, got %q", got)
	}
	t.Setenv(Prefix+"LOG_FORMAT", "console")
	if got := Get("LOG_FORMAT", "x"); got != "console" {
		t.Fatalf("expected prefixed value, got %q", got)
	}
	t.Setenv(Prefix+"LOG_FORMAT", "   ")
	if got := Get("LOG_FORMAT", "x"); got != "json" {
		t.Fatalf("blank prefixed value should be skipped, got %q", got)
	}
}

func TestFirst(t *testing.T) {
	t.Setenv("DYNO", "")
	t.Setenv("WORKER_ID", "cron-2")
	if got := First("local", "DYNO", "WORKER_ID"); got != "cron-2" {
		t.Fatalf("expected WORKER_ID, got %q", got)
	}
	if got := First("local", "NOT_SET_ANYWHERE"); got != "local" {
		t.Fatalf("expected fallback, got %q", got)
	}
}
