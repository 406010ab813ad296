package session

import (
	"testing"
	"time"
)

func TestRecordThoughtCreatesSession(t *testing.T) {
	tr := New(Config{MaxTrackedSessions: 100, RateWindow: time.Minute, SessionExpiry: time.Hour})
	defer tr.Shutdown()

	tr.RecordThought("s1")
	if got := tr.ActiveCount(); got != 1 {
		t.Fatalf("ActiveCount() = %d, want 1", got)
	}
}

func TestCheckAndRecordEnforcesLimit(t *testing.T) {
	tr := New(Config{MaxTrackedSessions: 100, RateWindow: time.Minute, SessionExpiry: time.Hour})
	defer tr.Shutdown()

	for i := 0; i < 3; i++ {
		if !tr.CheckAndRecord("s1", 3) {
			t.Fatalf("request %d should have been accepted", i)
		}
	}
	if tr.CheckAndRecord("s1", 3) {
		t.Fatal("4th request should have been rejected")
	}
}

func TestCheckAndRecordPrunesOldTimestamps(t *testing.T) {
	tr := New(Config{MaxTrackedSessions: 100, RateWindow: time.Millisecond, SessionExpiry: time.Hour})
	defer tr.Shutdown()

	if !tr.CheckAndRecord("s1", 1) {
		t.Fatal("first request should be accepted")
	}
	time.Sleep(5 * time.Millisecond)
	if !tr.CheckAndRecord("s1", 1) {
		t.Fatal("request after window expiry should be accepted once timestamp is pruned")
	}
}

func TestActiveCountExcludesExpiredSessions(t *testing.T) {
	tr := New(Config{MaxTrackedSessions: 100, RateWindow: time.Minute, SessionExpiry: time.Millisecond})
	defer tr.Shutdown()

	tr.RecordThought("s1")
	time.Sleep(5 * time.Millisecond)
	if got := tr.ActiveCount(); got != 0 {
		t.Fatalf("ActiveCount() = %d, want 0 after expiry", got)
	}
}

func TestCleanupEvictsExpiredSessions(t *testing.T) {
	tr := New(Config{MaxTrackedSessions: 100, RateWindow: time.Minute, SessionExpiry: time.Millisecond})
	defer tr.Shutdown()

	var evicted []string
	tr.OnEviction(func(id string) { evicted = append(evicted, id) })

	tr.RecordThought("s1")
	time.Sleep(5 * time.Millisecond)
	tr.Cleanup()

	if len(evicted) != 1 || evicted[0] != "s1" {
		t.Fatalf("evicted = %v, want [s1]", evicted)
	}
}

func TestCleanupIdempotentWhenNoTimePasses(t *testing.T) {
	tr := New(Config{MaxTrackedSessions: 100, RateWindow: time.Minute, SessionExpiry: time.Hour})
	defer tr.Shutdown()

	tr.RecordThought("s1")
	tr.Cleanup()
	firstCount := tr.ActiveCount()
	tr.Cleanup()
	if got := tr.ActiveCount(); got != firstCount {
		t.Fatalf("second Cleanup() changed ActiveCount(): %d -> %d", firstCount, got)
	}
}

func TestCleanupEvictsOldestWhenOverCapacity(t *testing.T) {
	tr := New(Config{MaxTrackedSessions: 20, RateWindow: time.Minute, SessionExpiry: time.Hour})
	defer tr.Shutdown()

	var evicted []string
	tr.OnEviction(func(id string) { evicted = append(evicted, id) })

	for i := 0; i < 21; i++ {
		tr.RecordThought(sessionName(i))
		time.Sleep(time.Millisecond)
	}
	tr.Cleanup()

	if got := tr.ActiveCount(); got > 20 {
		t.Fatalf("ActiveCount() = %d, want <= 20", got)
	}
	if len(evicted) == 0 || evicted[0] != sessionName(0) {
		t.Fatalf("evicted = %v, want the oldest session %q evicted first", evicted, sessionName(0))
	}
}

func TestOnPeriodicCleanupInvokedOnEverySweep(t *testing.T) {
	tr := New(Config{MaxTrackedSessions: 100, RateWindow: time.Minute, SessionExpiry: time.Hour})
	defer tr.Shutdown()

	calls := 0
	tr.OnPeriodicCleanup(func() { calls++ })

	tr.Cleanup()
	tr.Cleanup()

	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestSubscriberPanicIsRecovered(t *testing.T) {
	tr := New(Config{MaxTrackedSessions: 100, RateWindow: time.Minute, SessionExpiry: time.Millisecond})
	defer tr.Shutdown()

	tr.OnEviction(func(string) { panic("boom") })
	tr.RecordThought("s1")
	time.Sleep(5 * time.Millisecond)

	// Must not panic the test.
	tr.Cleanup()
}

func TestNewSessionIDUnique(t *testing.T) {
	a := NewSessionID()
	b := NewSessionID()
	if a == b {
		t.Fatalf("NewSessionID() returned duplicate IDs: %v", a)
	}
}

func TestShutdownStopsSweepAndClearsSubscribers(t *testing.T) {
	tr := New(Config{MaxTrackedSessions: 100, RateWindow: time.Minute, SessionExpiry: time.Hour, CleanupInterval: time.Millisecond})

	calls := 0
	tr.OnPeriodicCleanup(func() { calls++ })
	time.Sleep(10 * time.Millisecond)
	tr.Shutdown()

	if calls == 0 {
		t.Fatal("expected at least one periodic cleanup before shutdown")
	}

	snapshotCalls := calls
	time.Sleep(10 * time.Millisecond)
	if calls != snapshotCalls {
		t.Fatal("sweep kept running after Shutdown")
	}
}

func sessionName(i int) string {
	return string(rune('a'+i%26)) + string(rune('0'+i/26))
}
