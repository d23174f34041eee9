// Package credstore persists session tokens, one slot per role, in the
// device-shared storage medium.
package credstore

import (
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/lazytech/jjc-console/internal/config"
	"github.com/lazytech/jjc-console/internal/domain"
	"github.com/lazytech/jjc-console/internal/storage"
)

// Store reads and writes the two token slots plus the shared stored-at
// marker. Storage failures degrade to a no-op plus a log line; nothing in
// here ever propagates an error into login or logout control flow.
type Store struct {
	kv     storage.KV
	cfg    config.SessionConfig
	logger *zap.Logger
	now    func() time.Time
}

// New builds a store over one instance's storage view.
func New(kv storage.KV, cfg config.SessionConfig, logger *zap.Logger) *Store {
	return &Store{kv: kv, cfg: cfg, logger: logger, now: time.Now}
}

// Set writes the token under the role's slot and refreshes the shared
// stored-at marker.
func (s *Store) Set(role domain.Role, tok string) {
	if err := s.kv.Set(s.keyFor(role), tok); err != nil {
		s.logger.Warn("failed to persist token", zap.String("role", string(role)), zap.Error(err))
		return
	}
	if err := s.kv.Set(s.cfg.StoredAtKey, strconv.FormatInt(s.now().Unix(), 10)); err != nil {
		s.logger.Warn("failed to persist stored-at marker", zap.Error(err))
	}
}

// Get returns the token stored for the role, or "" when absent.
func (s *Store) Get(role domain.Role) string {
	val, err := s.kv.Get(s.keyFor(role))
	if err != nil {
		s.logger.Warn("failed to read token", zap.String("role", string(role)), zap.Error(err))
		return ""
	}
	return val
}

// Clear removes both role slots and the stored-at marker. Logout is
// always total; there is no role-scoped variant because the two sessions
// are two views of one identity.
func (s *Store) Clear() {
	if err := s.kv.Delete(s.cfg.AdminTokenKey, s.cfg.EmployeeTokenKey, s.cfg.StoredAtKey); err != nil {
		s.logger.Warn("failed to clear credentials", zap.Error(err))
	}
}

// Discard drops a single role's token. Only the startup path uses this,
// for tokens that no longer decode; user-initiated logout goes through
// Clear.
func (s *Store) Discard(role domain.Role) {
	if err := s.kv.Delete(s.keyFor(role)); err != nil {
		s.logger.Warn("failed to discard token", zap.String("role", string(role)), zap.Error(err))
	}
}

// StoredAt returns the shared marker written by the last Set, or the
// zero time when absent or unreadable.
func (s *Store) StoredAt() time.Time {
	val, err := s.kv.Get(s.cfg.StoredAtKey)
	if err != nil || val == "" {
		return time.Time{}
	}
	epoch, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(epoch, 0)
}

func (s *Store) keyFor(role domain.Role) string {
	if role == domain.RoleAdmin {
		return s.cfg.AdminTokenKey
	}
	return s.cfg.EmployeeTokenKey
}
