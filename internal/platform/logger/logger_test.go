package logger

import (
	"strings"
	"testing"
)

func TestSanitizeKVsRedactsSecrets(t *testing.T) {
	out := sanitizeKVs([]interface{}{
		"duplication_id", "abc",
		"redis_password", "hunter2",
		"dsn", "postgres://app:pw@db:5432/episodes",
	})
	if got := out[1]; got != "abc" {
		t.Fatalf("duplication_id: want=abc got=%v", got)
	}
	if got := out[3]; got != "[REDACTED]" {
		t.Fatalf("redis_password: want=[REDACTED] got=%v", got)
	}
	dsn, _ := out[5].(string)
	if strings.Contains(dsn, ":pw@") || !strings.HasSuffix(dsn, "@db:5432/episodes") {
		t.Fatalf("dsn: got=%v", dsn)
	}
}

func TestSanitizeKVsOddLength(t *testing.T) {
	out := sanitizeKVs([]interface{}{"stage", "parts", "dangling"})
	if len(out) != 3 || out[2] != "dangling" {
		t.Fatalf("odd kv: got=%v", out)
	}
}
