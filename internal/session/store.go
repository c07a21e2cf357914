package session

import (
	"net"
	"sync"
	"time"

	"golang.org/x/xerrors"
)

var errStoreFull = xerrors.New("session: store is at capacity")

// Store is a bounded table of sessions, capped at maxClients. Insertion
// order is irrelevant and iteration order is arbitrary (§4.5); removal
// compacts the backing slice using the same find-index/copy-down/truncate
// idiom the teacher's media.Flow.RemoveReceiver uses for its receiver
// list.
type Store struct {
	mu         sync.RWMutex
	maxClients int
	sessions   []*Session
}

// NewStore returns an empty Store capped at maxClients.
func NewStore(maxClients int) *Store {
	return &Store{maxClients: maxClients}
}

// Insert adds session to the table, rejecting it if the table is already
// at capacity.
func (s *Store) Insert(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sessions) >= s.maxClients {
		return errStoreFull
	}
	s.sessions = append(s.sessions, sess)
	return nil
}

// FindByConn returns the session whose Conn is conn, or nil if none
// matches. This is the server's "find_by_socket" (§4.5): Go sessions are
// keyed by their net.Conn rather than a raw file descriptor.
func (s *Store) FindByConn(conn net.Conn) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sess := range s.sessions {
		if sess.Conn == conn {
			return sess
		}
	}
	return nil
}

// FindByID returns the session with the given ID, or nil.
func (s *Store) FindByID(id string) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sess := range s.sessions {
		if sess.ID == id {
			return sess
		}
	}
	return nil
}

// Remove closes sess's connection (if any) and deletes it from the table.
func (s *Store) Remove(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.sessions {
		if s.sessions[i] == sess {
			if sess.Conn != nil {
				sess.Conn.Close()
			}

			n := len(s.sessions)
			copy(s.sessions[i:], s.sessions[i+1:])
			s.sessions[n-1] = nil
			s.sessions = s.sessions[:n-1]
			return
		}
	}
}

// SweepTimeouts removes every session whose LastActivity predates
// now-IdleTimeout, closing each one's connection. It returns the removed
// sessions so the caller can log or react to them.
func (s *Store) SweepTimeouts(now time.Time) []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []*Session
	kept := s.sessions[:0]
	for _, sess := range s.sessions {
		if now.Sub(sess.LastActivity) > IdleTimeout {
			if sess.Conn != nil {
				sess.Conn.Close()
			}
			expired = append(expired, sess)
			continue
		}
		kept = append(kept, sess)
	}
	s.sessions = kept
	return expired
}

// Snapshot returns the live session pointers currently in the table, in
// arbitrary order. Unlike PlayingSnapshot, these are not copies: callers
// (the protocol thread) are expected to mutate fields like State directly,
// consistent with the single-writer-per-session discipline in §5.
func (s *Store) Snapshot() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Session, len(s.sessions))
	copy(out, s.sessions)
	return out
}

// Len returns the current number of sessions in the table.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// CountPlaying returns the number of sessions currently in the Playing
// state, used to decide whether the media task should keep running.
func (s *Store) CountPlaying() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, sess := range s.sessions {
		if sess.State == Playing {
			n++
		}
	}
	return n
}

// PlayingSnapshot returns a copy of the session record for every session
// currently in the Playing state. The copy is taken under the
// store's lock, but stale reads after the snapshot is returned are
// acceptable per §7: a session torn down moments later simply causes one
// harmless spurious UDP send.
func (s *Store) PlayingSnapshot() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Session
	for _, sess := range s.sessions {
		if sess.State == Playing {
			cp := *sess
			out = append(out, &cp)
		}
	}
	return out
}
