package web

import (
	"slices"
	"sync"
	"time"

	"github.com/CZERTAINLY/blastweb/internal/model"

	"github.com/google/uuid"
)

// Session is the state of one browser. All access goes through its methods.
type Session struct {
	ID string

	mx            sync.Mutex
	detected      bool
	installations []model.Installation
	selected      int
	deliverables  []model.Deliverable
	lastSeen      time.Time
	running       bool
}

// SessionView is a consistent copy of a session state
type SessionView struct {
	Detected      bool
	Installations []model.Installation
	Selected      int
	Deliverables  []model.Deliverable
	Running       bool
}

func (s *Session) View() SessionView {
	s.mx.Lock()
	defer s.mx.Unlock()
	return SessionView{
		Detected:      s.detected,
		Installations: slices.Clone(s.installations),
		Selected:      s.selected,
		Deliverables:  slices.Clone(s.deliverables),
		Running:       s.running,
	}
}

// SetInstallations replaces the detected installations and resets the
// selection to the first one
func (s *Session) SetInstallations(installs []model.Installation) {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.detected = true
	s.installations = slices.Clone(installs)
	s.selected = 0
}

// Select stores the chosen installation, it reports false for an index out
// of range
func (s *Session) Select(idx int) bool {
	s.mx.Lock()
	defer s.mx.Unlock()
	if idx < 0 || idx >= len(s.installations) {
		return false
	}
	s.selected = idx
	return true
}

// Installation returns the selected installation
func (s *Session) Installation() (model.Installation, error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if len(s.installations) == 0 {
		return model.Installation{}, model.ErrNoInstallation
	}
	return s.installations[s.selected].Clone(), nil
}

// Deliverable returns a stored deliverable by its file name
func (s *Session) Deliverable(name string) (model.Deliverable, bool) {
	s.mx.Lock()
	defer s.mx.Unlock()
	for _, d := range s.deliverables {
		if d.Filename == name {
			return d, true
		}
	}
	return model.Deliverable{}, false
}

// start marks a job as running, only one job runs per session
func (s *Session) start() error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.running {
		return model.ErrJobInProgress
	}
	s.running = true
	s.deliverables = nil
	return nil
}

func (s *Session) finish(deliverables []model.Deliverable) {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.running = false
	s.deliverables = deliverables
}

func (s *Session) touch(now time.Time) {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.lastSeen = now
}

func (s *Session) idle(now time.Time, maxIdle time.Duration) bool {
	s.mx.Lock()
	defer s.mx.Unlock()
	return !s.running && now.Sub(s.lastSeen) > maxIdle
}

// Store keeps the sessions in memory
type Store struct {
	mx       sync.Mutex
	sessions map[string]*Session
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// WithClock replaces the time source, used by tests
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Get(id string) (*Session, bool) {
	s.mx.Lock()
	defer s.mx.Unlock()
	sess, ok := s.sessions[id]
	if ok {
		sess.touch(s.now())
	}
	return sess, ok
}

func (s *Store) New() *Session {
	sess := &Session{ID: uuid.NewString()}
	sess.touch(s.now())
	s.mx.Lock()
	defer s.mx.Unlock()
	s.sessions[sess.ID] = sess
	return sess
}

func (s *Store) Len() int {
	s.mx.Lock()
	defer s.mx.Unlock()
	return len(s.sessions)
}

// Sweep drops sessions idle for longer than maxIdle, sessions running a job
// are kept. Returns the number of removed sessions.
func (s *Store) Sweep(maxIdle time.Duration) int {
	now := s.now()
	s.mx.Lock()
	defer s.mx.Unlock()
	var removed int
	for id, sess := range s.sessions {
		if sess.idle(now, maxIdle) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
