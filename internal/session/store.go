package session

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/KaramelBytes/tidyset-cli/internal/cleaning"
	"github.com/KaramelBytes/tidyset-cli/internal/loader"
)

// ErrSessionNotFound indicates a session id that is not the current one.
var ErrSessionNotFound = errors.New("session not found")

// Store keeps the single active session and serializes access to it.
// A new upload replaces the previous session wholesale.
type Store struct {
	mu      sync.Mutex
	current *Session
	engine  *cleaning.Engine
	logger  *zap.Logger
}

// NewStore returns an empty store whose sessions clean with eng.
func NewStore(eng *cleaning.Engine, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if eng == nil {
		eng = cleaning.NewEngine(logger)
	}
	return &Store{engine: eng, logger: logger}
}

// Open loads an uploaded file and makes it the current session. On failure
// the previous session is discarded too.
func (st *Store) Open(name string, data []byte, opt loader.Options) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.current = nil
	s, err := LoadBytes(name, data, opt, st.engine)
	if err != nil {
		st.logger.Warn("load failed", zap.String("file", name), zap.Error(err))
		return nil, err
	}
	st.current = s
	st.logger.Info("session opened",
		zap.String("session_id", s.ID),
		zap.String("file", s.FileName),
		zap.Int("rows", s.Before.Rows),
		zap.Int("columns", s.Before.Columns))
	return s, nil
}

// Do runs fn against the current session while holding the store lock.
// An empty id selects whatever session is current.
func (st *Store) Do(id string, fn func(*Session) error) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.current == nil {
		return ErrNoData
	}
	if id != "" && id != st.current.ID {
		return ErrSessionNotFound
	}
	return fn(st.current)
}

// Reset discards the current session.
func (st *Store) Reset() {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.current != nil {
		st.logger.Info("session reset", zap.String("session_id", st.current.ID))
	}
	st.current = nil
}

// Active reports whether a session is loaded.
func (st *Store) Active() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.current != nil
}
