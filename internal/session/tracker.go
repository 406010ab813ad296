// Package session tracks per-session access timestamps and enforces a
// sliding-window rate limit, evicting stale sessions under a periodic
// sweep.
package session

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Config configures a Tracker. New uses every field as given; zero
// values are not replaced by the defaults DefaultConfig returns.
type Config struct {
	MaxTrackedSessions int
	RateWindow         time.Duration
	SessionExpiry      time.Duration
	CleanupInterval    time.Duration
}

// DefaultConfig returns the configuration defaults from SPEC_FULL.md §6.
func DefaultConfig() Config {
	return Config{
		MaxTrackedSessions: 10000,
		RateWindow:         60 * time.Second,
		SessionExpiry:      time.Hour,
		CleanupInterval:    60 * time.Second,
	}
}

type sessionData struct {
	lastAccess        time.Time
	requestTimestamps []time.Time
}

// Tracker is a mutex-protected map of session_id to access state, with a
// background sweep that evicts expired and over-capacity entries.
type Tracker struct {
	mu       sync.Mutex
	sessions map[string]*sessionData
	config   Config

	onEviction        []func(sessionID string)
	onPeriodicCleanup []func()

	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates a Tracker. If config.CleanupInterval is positive, the
// periodic sweep starts immediately; call Shutdown to stop it.
func New(config Config) *Tracker {
	t := &Tracker{
		sessions: make(map[string]*sessionData),
		config:   config,
		stopChan: make(chan struct{}),
	}
	if config.CleanupInterval > 0 {
		t.startSweep()
	}
	return t
}

// NewSessionID generates an opaque session identifier for callers that
// omit session_id on their first request.
func NewSessionID() string {
	return uuid.NewString()
}

// OnEviction registers a callback invoked (best-effort, recovered) for
// every session removed by Cleanup, whether due to expiry or
// over-capacity eviction.
func (t *Tracker) OnEviction(fn func(sessionID string)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onEviction = append(t.onEviction, fn)
}

// OnPeriodicCleanup registers a callback invoked once per Cleanup sweep,
// after evictions have been applied.
func (t *Tracker) OnPeriodicCleanup(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onPeriodicCleanup = append(t.onPeriodicCleanup, fn)
}

// RecordThought updates last_access and appends a request timestamp for
// the session, creating it if absent. If the tracker is over 90% of its
// capacity afterward, it triggers a cleanup sweep.
func (t *Tracker) RecordThought(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	sd, ok := t.sessions[sessionID]
	if !ok {
		sd = &sessionData{}
		t.sessions[sessionID] = sd
	}
	sd.lastAccess = now
	sd.requestTimestamps = append(sd.requestTimestamps, now)

	if t.config.MaxTrackedSessions > 0 && len(t.sessions) > (9*t.config.MaxTrackedSessions)/10 {
		t.cleanupLocked()
	}
}

// CheckAndRecord atomically prunes timestamps outside the rate window,
// rejects if maxRequests would be exceeded, and otherwise records the
// new request. This closes the check-then-act race a separate
// check-and-append pair would have.
func (t *Tracker) CheckAndRecord(sessionID string, maxRequests int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	sd, ok := t.sessions[sessionID]
	if !ok {
		sd = &sessionData{}
		t.sessions[sessionID] = sd
	}

	sd.requestTimestamps = pruneOlderThan(sd.requestTimestamps, now.Add(-t.config.RateWindow))

	if maxRequests > 0 && len(sd.requestTimestamps) >= maxRequests {
		return false
	}

	sd.requestTimestamps = append(sd.requestTimestamps, now)
	sd.lastAccess = now
	return true
}

// pruneOlderThan trims the prefix of timestamps older than cutoff in one
// splice, rather than repeated pop-front.
func pruneOlderThan(timestamps []time.Time, cutoff time.Time) []time.Time {
	firstValid := 0
	for firstValid < len(timestamps) && timestamps[firstValid].Before(cutoff) {
		firstValid++
	}
	if firstValid == 0 {
		return timestamps
	}
	return append([]time.Time(nil), timestamps[firstValid:]...)
}

// ActiveCount returns the number of sessions whose last_access is within
// SessionExpiry of now.
func (t *Tracker) ActiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := time.Now().Add(-t.config.SessionExpiry)
	count := 0
	for _, sd := range t.sessions {
		if !sd.lastAccess.Before(cutoff) {
			count++
		}
	}
	return count
}

// Cleanup deletes expired sessions and, if the tracker is still at
// capacity, evicts the oldest-accessed sessions down to capacity minus a
// small headroom. Subscribers are notified; their errors never abort the
// sweep.
func (t *Tracker) Cleanup() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cleanupLocked()
}

func (t *Tracker) cleanupLocked() {
	now := time.Now()
	cutoff := now.Add(-t.config.SessionExpiry)

	var evicted []string
	for id, sd := range t.sessions {
		if sd.lastAccess.Before(cutoff) {
			delete(t.sessions, id)
			evicted = append(evicted, id)
		}
	}

	if t.config.MaxTrackedSessions > 0 && len(t.sessions) > t.config.MaxTrackedSessions {
		headroom := t.config.MaxTrackedSessions / 20 // 5% headroom
		if headroom < 1 {
			headroom = 1
		}
		target := t.config.MaxTrackedSessions - headroom

		type idAccess struct {
			id   string
			last time.Time
		}
		ordered := make([]idAccess, 0, len(t.sessions))
		for id, sd := range t.sessions {
			ordered = append(ordered, idAccess{id, sd.lastAccess})
		}
		sort.Slice(ordered, func(i, j int) bool { return ordered[i].last.Before(ordered[j].last) })

		for _, entry := range ordered {
			if len(t.sessions) <= target {
				break
			}
			delete(t.sessions, entry.id)
			evicted = append(evicted, entry.id)
		}
	}

	for _, id := range evicted {
		t.notifyEviction(id)
	}
	t.notifyPeriodicCleanup()
}

func (t *Tracker) notifyEviction(sessionID string) {
	for _, fn := range t.onEviction {
		safeCall(func() { fn(sessionID) })
	}
}

func (t *Tracker) notifyPeriodicCleanup() {
	for _, fn := range t.onPeriodicCleanup {
		safeCall(fn)
	}
}

func safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("session tracker: subscriber panicked: %v", r)
		}
	}()
	fn()
}

func (t *Tracker) startSweep() {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ticker := time.NewTicker(t.config.CleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				t.Cleanup()
			case <-t.stopChan:
				return
			}
		}
	}()
}

// Shutdown stops the background sweep and clears subscriber lists. Safe
// to call multiple times.
func (t *Tracker) Shutdown() {
	t.closeOnce.Do(func() {
		close(t.stopChan)
	})
	t.wg.Wait()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.onEviction = nil
	t.onPeriodicCleanup = nil
}
