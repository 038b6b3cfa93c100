package main

import (
	"testing"
	"time"
)

func TestPruneInterval(t *testing.T) {
	tests := []struct {
		ttl  time.Duration
		want time.Duration
	}{
		{time.Nanosecond, time.Minute},
		{3 * time.Nanosecond, time.Minute},
		{2 * time.Minute, time.Minute},
		{2 * time.Hour, 30 * time.Minute},
	}
	for _, tt := range tests {
		if got := pruneInterval(tt.ttl); got != tt.want {
			t.Errorf("pruneInterval(%v) = %v, want %v", tt.ttl, got, tt.want)
		}
	}
}
