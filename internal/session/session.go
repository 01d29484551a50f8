// Package session keeps the per-visitor mesh and render configuration.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/soypat/stlview/internal/logger"
	"github.com/soypat/stlview/mesh"
	"github.com/soypat/stlview/scene"
	"go.uber.org/zap"
)

// Session is one visitor's viewer state. All access goes through its
// methods, which serialize interactions.
type Session struct {
	ID uuid.UUID

	mu       sync.Mutex
	config   scene.Config
	mesh     *mesh.Mesh
	uploaded bool
	lastSeen time.Time
}

// State is a snapshot of a session.
type State struct {
	Config   scene.Config
	Mesh     *mesh.Mesh
	Uploaded bool
}

// Snapshot returns the current configuration and mesh.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{Config: s.config, Mesh: s.mesh, Uploaded: s.uploaded}
}

// Apply changes a single control. On error the configuration is unchanged.
func (s *Session) Apply(control, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config.Set(control, value)
}

// Replace swaps the displayed mesh for an uploaded one.
func (s *Session) Replace(m *mesh.Mesh) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mesh = m
	s.uploaded = true
}

// Reset reverts to the default mesh, keeping the render configuration.
func (s *Session) Reset(defaultMesh *mesh.Mesh) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mesh = defaultMesh
	s.uploaded = false
}

// Render describes the current mesh with the current configuration.
func (s *Session) Render(layout scene.Layout) *scene.Scene {
	st := s.Snapshot()
	return scene.Build(st.Mesh, st.Config, layout)
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// Store holds live sessions keyed by ID.
type Store struct {
	defaultMesh *mesh.Mesh
	now         func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

// NewStore returns an empty store whose new sessions show defaultMesh.
func NewStore(defaultMesh *mesh.Mesh) *Store {
	return &Store{
		defaultMesh: defaultMesh,
		now:         time.Now,
		sessions:    make(map[uuid.UUID]*Session),
	}
}

// DefaultMesh returns the mesh shown when nothing has been uploaded.
func (st *Store) DefaultMesh() *mesh.Mesh { return st.defaultMesh }

// New starts a session with the default configuration and default mesh.
func (st *Store) New() *Session {
	s := &Session{
		ID:       uuid.New(),
		config:   scene.DefaultConfig(),
		mesh:     st.defaultMesh,
		lastSeen: st.now(),
	}
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	logger.Log.Debug("session started", zap.Stringer("session", s.ID))
	return s
}

// Get returns the session with the given ID and marks it as active.
func (st *Store) Get(id uuid.UUID) (*Session, bool) {
	st.mu.Lock()
	s, ok := st.sessions[id]
	st.mu.Unlock()
	if ok {
		s.touch(st.now())
	}
	return s, ok
}

// Delete ends a session.
func (st *Store) Delete(id uuid.UUID) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Expire ends sessions idle for longer than ttl and returns how many ended.
func (st *Store) Expire(ttl time.Duration) int {
	now := st.now()
	st.mu.Lock()
	defer st.mu.Unlock()
	n := 0
	for id, s := range st.sessions {
		if s.idleSince(now) > ttl {
			delete(st.sessions, id)
			n++
		}
	}
	return n
}

// Sweep calls Expire every interval until ctx is done.
func (st *Store) Sweep(ctx context.Context, ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := st.Expire(ttl); n > 0 {
				logger.Log.Debug("sessions expired", zap.Int("expired", n), zap.Int("live", st.Len()))
			}
		}
	}
}
