package web

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thywilljoshua/notescan/internal/convert"
	"github.com/thywilljoshua/notescan/internal/outline"
	"github.com/thywilljoshua/notescan/internal/populate"
)

// Template is a user-supplied template for one output format.
type Template struct {
	Name string
	Data []byte
}

// Session is one uploaded document and everything derived from it. The API
// key entered in the form lives here and nowhere else.
type Session struct {
	ID        string
	Filename  string
	APIKey    string
	Format    populate.Format // preferred download
	Result    convert.Result
	Outline   outline.Outline
	Templates map[populate.Format]Template
	Created   time.Time
	LastUsed  time.Time
}

// Store keeps sessions in memory and forgets them after ttl without use.
type Store struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*Session
}

func NewStore(ttl time.Duration) *Store {
	return &Store{ttl: ttl, now: time.Now, sessions: make(map[string]*Session)}
}

// Create stores sess under a new id and returns it.
func (s *Store) Create(sess Session) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.ID = uuid.NewString()
	sess.Created = s.now()
	sess.LastUsed = sess.Created
	if sess.Templates == nil {
		sess.Templates = make(map[populate.Format]Template)
	}
	s.sessions[sess.ID] = &sess
	return sess.ID
}

// Get returns a copy of the session and marks it used.
func (s *Store) Get(id string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.live(id)
	if !ok {
		return Session{}, false
	}
	sess.LastUsed = s.now()
	cp := *sess
	cp.Templates = maps.Clone(sess.Templates)
	return cp, true
}

// Update runs fn on the stored session under the store lock. fn must not
// block.
func (s *Store) Update(id string, fn func(*Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.live(id)
	if !ok {
		return errSessionNotFound
	}
	if err := fn(sess); err != nil {
		return err
	}
	sess.LastUsed = s.now()
	return nil
}

func (s *Store) live(id string) (*Session, bool) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if s.ttl > 0 && s.now().Sub(sess.LastUsed) > s.ttl {
		delete(s.sessions, id)
		return nil, false
	}
	return sess, true
}

// Sweep drops expired sessions and reports how many went.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.sessions {
		if s.ttl > 0 && s.now().Sub(sess.LastUsed) > s.ttl {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Janitor sweeps every interval until ctx is done.
func (s *Store) Janitor(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.Sweep(); n > 0 {
				slog.Info("Expired idle sessions.", "count", n, "remaining", s.Len())
			}
		}
	}
}
