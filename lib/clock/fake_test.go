// Copyright 2026 The BlockOps Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

func TestFakeClockStandsStill(t *testing.T) {
	t.Parallel()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := Fake(start)

	if got := fake.Now(); !got.Equal(start) {
		t.Errorf("Now: got %v, want %v", got, start)
	}
	if got := fake.Now(); !got.Equal(start) {
		t.Errorf("Now after a second read: got %v, want %v", got, start)
	}
}

func TestFakeClockAdvance(t *testing.T) {
	t.Parallel()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := Fake(start)

	fake.Advance(90 * time.Second)
	if got, want := fake.Now(), start.Add(90*time.Second); !got.Equal(want) {
		t.Errorf("Now after Advance: got %v, want %v", got, want)
	}

	// Negative advances are ignored.
	fake.Advance(-time.Hour)
	if got, want := fake.Now(), start.Add(90*time.Second); !got.Equal(want) {
		t.Errorf("Now after negative Advance: got %v, want %v", got, want)
	}
}

func TestFakeClockSleepAdvances(t *testing.T) {
	t.Parallel()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := Fake(start)

	done := make(chan struct{})
	go func() {
		fake.Sleep(5 * time.Minute)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Sleep on a fake clock blocked")
	}
	if got, want := fake.Now(), start.Add(5*time.Minute); !got.Equal(want) {
		t.Errorf("Now after Sleep: got %v, want %v", got, want)
	}
}
