// Package store holds the bounded, in-memory collection of thought
// records: a capped global history plus per-branch buckets that expire
// on their own schedule.
package store

import (
	"sync"
	"time"

	"unified-thinking/internal/types"
	"unified-thinking/pkg/ringbuffer"
)

// Config bounds the store's memory footprint.
type Config struct {
	MaxHistorySize       int
	MaxThoughtsPerBranch int
	MaxBranchAge         time.Duration
}

// DefaultConfig returns the bounds from SPEC_FULL.md §6.
func DefaultConfig() Config {
	return Config{
		MaxHistorySize:       100,
		MaxThoughtsPerBranch: 1000,
		MaxBranchAge:         time.Hour,
	}
}

type branchBucket struct {
	thoughts     []*types.ThoughtRecord
	lastAccessed time.Time
}

// Store is the bounded thought store (C3): a global history ring buffer
// plus a map of per-branch buckets.
type Store struct {
	mu       sync.RWMutex
	history  *ringbuffer.Buffer[*types.ThoughtRecord]
	branches map[string]*branchBucket
	config   Config
}

// New creates a Store with the given bounds.
func New(config Config) *Store {
	if config.MaxHistorySize < 1 {
		config.MaxHistorySize = 1
	}
	return &Store{
		history:  ringbuffer.New[*types.ThoughtRecord](config.MaxHistorySize),
		branches: make(map[string]*branchBucket),
		config:   config,
	}
}

// AddThought copies record, appends it to the global history, and — if
// it names a branch — appends it to that branch's bucket, trimming the
// bucket to MaxThoughtsPerBranch. The store never mutates the caller's
// record and never fails on a well-formed input; size limits are the
// validator's job.
func (s *Store) AddThought(record *types.ThoughtRecord) *types.ThoughtRecord {
	stored := record.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.history.Add(stored)

	if stored.BranchID != "" {
		bucket, ok := s.branches[stored.BranchID]
		if !ok {
			bucket = &branchBucket{}
			s.branches[stored.BranchID] = bucket
		}
		bucket.thoughts = append(bucket.thoughts, stored)
		bucket.lastAccessed = time.Now()

		if over := len(bucket.thoughts) - s.config.MaxThoughtsPerBranch; over > 0 {
			bucket.thoughts = bucket.thoughts[over:]
		}
	}

	return stored.Clone()
}

// History returns the retained global thought records, oldest-first.
// A positive limit returns only the oldest limit of them; limit <= 0
// means no limit.
func (s *Store) History(limit int) []*types.ThoughtRecord {
	records := s.history.GetAll(limit)
	out := make([]*types.ThoughtRecord, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}

// Branch returns a branch's thoughts, oldest-first, and updates its
// last-accessed time. Returns nil if the branch has no bucket.
func (s *Store) Branch(branchID string) []*types.ThoughtRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.branches[branchID]
	if !ok {
		return nil
	}
	bucket.lastAccessed = time.Now()

	out := make([]*types.ThoughtRecord, len(bucket.thoughts))
	for i, r := range bucket.thoughts {
		out[i] = r.Clone()
	}
	return out
}

// BranchIDs returns the IDs of all branches currently tracked.
func (s *Store) BranchIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.branches))
	for id := range s.branches {
		ids = append(ids, id)
	}
	return ids
}

// Cleanup drops branch buckets whose last-accessed time is older than
// MaxBranchAge. It never touches the global history, which is
// self-bounding via the ring buffer.
func (s *Store) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-s.config.MaxBranchAge)
	for id, bucket := range s.branches {
		if bucket.lastAccessed.Before(cutoff) {
			delete(s.branches, id)
		}
	}
}
