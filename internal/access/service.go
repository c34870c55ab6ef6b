package access

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/meridian-gov/meridian/internal/events"
	"github.com/meridian-gov/meridian/internal/shared"
)

// Recorder receives authorization telemetry. Satisfied by observability.Metrics.
type Recorder interface {
	AuthzDenied()
}

// Service owns the role table and user assignments. All methods are safe for
// concurrent use; the registries are guarded by a single RWMutex held only
// for map access, never across logging or event publication.
type Service struct {
	mu          sync.RWMutex
	roles       map[string]Role
	assignments map[string][]string

	logger   *slog.Logger
	bus      *events.Bus
	recorder Recorder
}

// NewService seeds the default role set. The bus and recorder may be nil.
func NewService(logger *slog.Logger, bus *events.Bus, recorder Recorder) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		roles:       make(map[string]Role),
		assignments: make(map[string][]string),
		logger:      logger,
		bus:         bus,
		recorder:    recorder,
	}
	for _, r := range defaultRoles() {
		s.roles[r.Name] = r
	}
	return s
}

// CreateRole registers a role. Idempotent: an existing role of the same name
// is left untouched.
func (s *Service) CreateRole(name string, permissions []string) {
	if name == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.roles[name]; exists {
		return
	}
	s.roles[name] = newRole(name, permissions)
}

// AssignRole adds roleName to the user's role set. An unknown role is logged
// and ignored; assigning an already-held role is a no-op.
func (s *Service) AssignRole(userID, roleName string) {
	if userID == "" || roleName == "" {
		return
	}
	s.mu.Lock()
	if _, ok := s.roles[roleName]; !ok {
		s.mu.Unlock()
		s.logger.Error("assign unknown role",
			slog.String("user", userID),
			slog.String("role", roleName))
		return
	}
	for _, held := range s.assignments[userID] {
		if held == roleName {
			s.mu.Unlock()
			return
		}
	}
	s.assignments[userID] = append(s.assignments[userID], roleName)
	s.mu.Unlock()

	events.Publish(s.bus, events.RoleAssigned{UserID: userID, Role: roleName})
}

// RemoveRole drops roleName from the user's role set. Missing user or
// assignment is a no-op.
func (s *Service) RemoveRole(userID, roleName string) {
	s.mu.Lock()
	held := s.assignments[userID]
	removed := false
	for i, name := range held {
		if name == roleName {
			s.assignments[userID] = append(held[:i:i], held[i+1:]...)
			if len(s.assignments[userID]) == 0 {
				delete(s.assignments, userID)
			}
			removed = true
			break
		}
	}
	s.mu.Unlock()

	if removed {
		events.Publish(s.bus, events.RoleRevoked{UserID: userID, Role: roleName})
	}
}

// HasPermission reports whether one of the user's still-existing roles grants
// the exact permission string. Unknown users resolve to false. Assignments
// pointing at deleted roles are skipped, never an error.
func (s *Service) HasPermission(userID, permission string) bool {
	s.mu.RLock()
	held, known := s.assignments[userID]
	if !known {
		s.mu.RUnlock()
		s.logger.Warn("permission check for unknown user",
			slog.String("user", userID),
			slog.String("permission", permission))
		return false
	}
	for _, name := range held {
		role, ok := s.roles[name]
		if !ok {
			continue
		}
		if role.Grants(permission) {
			s.mu.RUnlock()
			return true
		}
	}
	s.mu.RUnlock()
	return false
}

// GetUserRoles returns the user's role names in assignment order. The slice
// is a copy and is empty, never nil, for unknown users.
func (s *Service) GetUserRoles(userID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.assignments[userID]))
	return append(out, s.assignments[userID]...)
}

// GetRole looks up a role definition by name.
func (s *Service) GetRole(name string) (Role, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	role, ok := s.roles[name]
	return role, ok
}

// CanAccessResource checks the access:<resource> permission.
func (s *Service) CanAccessResource(userID, resource string) bool {
	return s.HasPermission(userID, joinPermission(verbAccess, resource))
}

// CanModifyResource checks modify:<resource>, with the blanket admin
// permission as an escape hatch that authorizes any modify check.
func (s *Service) CanModifyResource(userID, resource string) bool {
	return s.HasPermission(userID, joinPermission(verbModify, resource)) ||
		s.HasPermission(userID, PermAdmin)
}

// IsAdmin reports whether the user holds the literal Admin role. This is a
// role-name check, deliberately distinct from the permission checks.
func (s *Service) IsAdmin(userID string) bool {
	for _, name := range s.GetUserRoles(userID) {
		if name == RoleAdmin {
			return true
		}
	}
	return false
}

// RequirePermission is the assertive form of HasPermission.
func (s *Service) RequirePermission(userID, permission string) error {
	if s.HasPermission(userID, permission) {
		return nil
	}
	if s.recorder != nil {
		s.recorder.AuthzDenied()
	}
	return fmt.Errorf("user %s lacks permission %s: %w", userID, permission, shared.ErrForbidden)
}

// RequireRole is the assertive form of a role membership check.
func (s *Service) RequireRole(userID, roleName string) error {
	for _, name := range s.GetUserRoles(userID) {
		if name == roleName {
			return nil
		}
	}
	if s.recorder != nil {
		s.recorder.AuthzDenied()
	}
	return fmt.Errorf("user %s lacks role %s: %w", userID, roleName, shared.ErrForbidden)
}

func joinPermission(verb, resource string) string {
	return verb + ":" + resource
}
