package main

import (
	"testing"
	"time"
)

func TestResolveEscalationDelaysPadsShortLadder(t *testing.T) {
	configured := []time.Duration{0, 2 * time.Second}
	got := resolveEscalationDelays(configured, 4)

	want := []time.Duration{0, 2 * time.Second, 2 * time.Second, 2 * time.Second}
	if len(got) != len(want) {
		t.Fatalf("len(got) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestResolveEscalationDelaysTrimsLongLadder(t *testing.T) {
	configured := []time.Duration{0, time.Second, 2 * time.Second, 5 * time.Second}
	got := resolveEscalationDelays(configured, 2)

	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
	if got[0] != 0 || got[1] != time.Second {
		t.Errorf("got = %v, want [0 1s]", got)
	}
}

func TestResolveEscalationDelaysHandlesEmptyConfig(t *testing.T) {
	got := resolveEscalationDelays(nil, 3)
	for i, d := range got {
		if d != 0 {
			t.Errorf("got[%d] = %v, want 0", i, d)
		}
	}
}

func TestRootCmdRequiresExactlyOneURL(t *testing.T) {
	cmd := rootCmd()
	if err := cmd.Args(cmd, nil); err == nil {
		t.Error("expected an error when no URL argument is given")
	}
	if err := cmd.Args(cmd, []string{"https://example.com"}); err != nil {
		t.Errorf("expected a single URL argument to be accepted, got %v", err)
	}
	if err := cmd.Args(cmd, []string{"a", "b"}); err == nil {
		t.Error("expected an error when more than one URL argument is given")
	}
}
