package registry

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// uploadTTL is how long an upload session survives without activity
// before the Process Supervisor's sweep discards it, per spec.md §3.
const uploadTTL = 24 * time.Hour

// session is the Upload Session of spec.md §3: ephemeral, not durable
// across restarts, owned by the Process Supervisor's table.
type session struct {
	id         string
	repository string
	chunks     [][]byte
	offset     int64
	createdAt  time.Time
	expiresAt  time.Time
}

// SessionStore is the in-memory upload-session table. Guarded by a mutex
// held only across map operations, never across I/O, per spec.md §5.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
}

// NewSessionStore constructs an empty session table.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*session)}
}

// Create starts a new upload session for repository and returns its id.
func (s *SessionStore) Create(repository string) *session {
	id := uuid.NewString()
	now := time.Now()
	sess := &session{
		id:         id,
		repository: repository,
		createdAt:  now,
		expiresAt:  now.Add(uploadTTL),
	}
	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()
	return sess
}

// Get returns the session for id, or nil if it doesn't exist or has
// expired.
func (s *SessionStore) Get(id string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || time.Now().After(sess.expiresAt) {
		return nil
	}
	return sess
}

// Append records a chunk against a session and extends its expiry.
func (s *SessionStore) Append(id string, chunk []byte) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil
	}
	sess.chunks = append(sess.chunks, chunk)
	sess.offset += int64(len(chunk))
	sess.expiresAt = time.Now().Add(uploadTTL)
	return sess
}

// Discard removes a session, consumed by PUT or an explicit DELETE.
func (s *SessionStore) Discard(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Sweep removes every session past its TTL. Called periodically by the
// Process Supervisor (interval 5 min per spec.md §4.9).
func (s *SessionStore) Sweep() int {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		if now.After(sess.expiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// body concatenates every chunk recorded against the session.
func (sess *session) body() []byte {
	total := make([]byte, 0, sess.offset)
	for _, c := range sess.chunks {
		total = append(total, c...)
	}
	return total
}
