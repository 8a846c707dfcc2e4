package registry

import "testing"

func TestSessionStoreAppendAndBody(t *testing.T) {
	s := NewSessionStore()
	sess := s.Create("library/nginx")

	s.Append(sess.id, []byte("hello, "))
	sess = s.Append(sess.id, []byte("world"))
	if sess.offset != int64(len("hello, world")) {
		t.Errorf("offset = %d", sess.offset)
	}
	if string(sess.body()) != "hello, world" {
		t.Errorf("body = %q", sess.body())
	}
}

func TestSessionStoreDiscard(t *testing.T) {
	s := NewSessionStore()
	sess := s.Create("library/nginx")
	s.Discard(sess.id)
	if s.Get(sess.id) != nil {
		t.Error("expected session to be gone after discard")
	}
}

func TestSessionStoreUnknown(t *testing.T) {
	s := NewSessionStore()
	if s.Get("nonexistent") != nil {
		t.Error("expected nil for unknown session id")
	}
	if s.Append("nonexistent", []byte("x")) != nil {
		t.Error("expected nil appending to unknown session id")
	}
}

func TestSessionStoreSweep(t *testing.T) {
	s := NewSessionStore()
	sess := s.Create("library/nginx")
	sess.expiresAt = sess.expiresAt.Add(-2 * uploadTTL)
	if n := s.Sweep(); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}
	if s.Get(sess.id) != nil {
		t.Error("expected expired session to be removed")
	}
}
