package eventsub

import (
	"testing"
	"time"
)

func TestTTLSet_AddReturnsTrueOnlyOnce(t *testing.T) {
	clock := newTestClock(time.Unix(0, 0))
	set := NewTTLSet(clock, 10*time.Minute)

	if !set.Add("msg-1") {
		t.Fatalf("expected first Add to return true")
	}
	if set.Add("msg-1") {
		t.Fatalf("expected duplicate Add to return false")
	}
	if !set.Contains("msg-1") {
		t.Fatalf("expected Contains to report the inserted id")
	}
}

func TestTTLSet_EntriesExpireAfterTTL(t *testing.T) {
	clock := newTestClock(time.Unix(0, 0))
	set := NewTTLSet(clock, 10*time.Minute)

	set.Add("msg-1")
	clock.Advance(9 * time.Minute)
	if !set.Contains("msg-1") {
		t.Fatalf("expected id to still be tracked before ttl elapses")
	}

	clock.Advance(2 * time.Minute)
	set.Sweep()

	if set.Contains("msg-1") {
		t.Fatalf("expected id to have expired after ttl elapsed")
	}
	if !set.Add("msg-1") {
		t.Fatalf("expected Add to accept the id again once expired")
	}
}

func TestTTLSet_IndependentIDsDoNotInterfere(t *testing.T) {
	clock := newTestClock(time.Unix(0, 0))
	set := NewTTLSet(clock, time.Minute)

	set.Add("a")
	clock.Advance(30 * time.Second)
	set.Add("b")
	clock.Advance(45 * time.Second)

	if set.Contains("a") {
		t.Fatalf("expected a to have expired")
	}
	if !set.Contains("b") {
		t.Fatalf("expected b to still be live")
	}
}
