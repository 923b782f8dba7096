package service

import (
	"fmt"

	"github.com/kingsleycodes247/poshlounge/internal/entity"
)

// requireRole is the capability check performed once at the boundary of
// every contract. Admin passes every check.
func requireRole(actor entity.ActorContext, allowed ...entity.Role) error {
	if actor.Role == entity.RoleAdmin {
		return nil
	}
	for _, r := range allowed {
		if actor.Role == r {
			return nil
		}
	}
	return fmt.Errorf("role %s not permitted: %w", actor.Role, entity.ErrAccessDenied)
}
