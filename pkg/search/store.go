package search

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// MemoryStore holds search sessions in process memory. Sessions older than
// the retention period are invisible to readers and removed by Sweep.
type MemoryStore struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	retention time.Duration
	now       func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewMemoryStore creates an empty store. A nil clock uses time.Now.
func NewMemoryStore(retention time.Duration, now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		sessions:  make(map[string]*Session),
		retention: retention,
		now:       now,
	}
}

// Put inserts or overwrites a session.
func (s *MemoryStore) Put(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *sess
	s.sessions[sess.Token] = &cp
}

// Get returns a copy of the session.
func (s *MemoryStore) Get(token string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[token]
	if !ok || s.expired(sess, s.now()) {
		return Session{}, false
	}
	return *sess, true
}

// Update applies fn to the stored session and returns a copy of the result.
// It reports false, without calling fn, when the session is gone.
func (s *MemoryStore) Update(token string, fn func(*Session)) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok || s.expired(sess, s.now()) {
		return Session{}, false
	}
	fn(sess)
	return *sess, true
}

// Delete removes a session.
func (s *MemoryStore) Delete(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, token)
}

// List returns copies of all live sessions.
func (s *MemoryStore) List() []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	result := make([]Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		if !s.expired(sess, now) {
			result = append(result, *sess)
		}
	}
	return result
}

// Len returns the number of stored sessions, including expired ones not yet swept.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.sessions)
}

// Sweep deletes every session whose age at now has reached the retention
// period, regardless of status. It returns how many were removed.
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) expired(sess *Session, now time.Time) bool {
	return now.Sub(sess.CreatedAt) >= s.retention
}

// StartSweeper starts a background goroutine that calls Sweep every
// interval. The goroutine is stopped when Close is called.
func (s *MemoryStore) StartSweeper(interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Sweep(s.now()); n > 0 {
					slog.Debug("search: swept expired sessions", "removed", n)
				}
			}
		}
	}()
}

// Close stops the sweeper goroutine and waits for it to exit.
// It is safe to call Close even if StartSweeper was never called.
func (s *MemoryStore) Close() error {
	if s.cancel != nil {
		s.cancel()
		<-s.done
		s.cancel = nil
	}
	return nil
}
