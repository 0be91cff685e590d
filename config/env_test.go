package config

import (
	"testing"
	"time"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv(Prefix+"DEPTH", "7")
	t.Setenv(Prefix+"GAMES", "100000000000")
	t.Setenv(Prefix+"HEURISTIC", " weighted ")
	t.Setenv(Prefix+"FLUSH_EVERY", "90s")
	t.Setenv(Prefix+"TUI", "yes")
	t.Setenv(Prefix+"BAD_INT", "seven")
	t.Setenv(Prefix+"BAD_BOOL", "maybe")
	t.Setenv(Prefix+"BLANK", "  ")

	if got := EnvInt("DEPTH", 9); got != 7 {
		t.Fatalf("EnvInt=%d want=7", got)
	}
	if got := EnvInt64("GAMES", 0); got != 100000000000 {
		t.Fatalf("EnvInt64=%d", got)
	}
	if got := EnvOr("HEURISTIC", "squares"); got != "weighted" {
		t.Fatalf("EnvOr=%q want=weighted", got)
	}
	if got := EnvDuration("FLUSH_EVERY", time.Minute); got != 90*time.Second {
		t.Fatalf("EnvDuration=%s want=1m30s", got)
	}
	if !EnvBool("TUI", false) {
		t.Fatalf("EnvBool=false want=true")
	}

	// Unparseable, blank and unset values keep the default.
	if got := EnvInt("BAD_INT", 9); got != 9 {
		t.Fatalf("bad int=%d want=9", got)
	}
	if !EnvBool("BAD_BOOL", true) {
		t.Fatalf("bad bool overrode default")
	}
	if got := EnvOr("BLANK", "x"); got != "x" {
		t.Fatalf("blank=%q want=x", got)
	}
	if got := EnvOr("UNSET_FOR_TEST", "x"); got != "x" {
		t.Fatalf("unset=%q want=x", got)
	}
}
