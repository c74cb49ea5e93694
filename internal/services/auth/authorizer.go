package auth

import (
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/shiftlog/internal/interfaces"
	"github.com/ternarybob/shiftlog/internal/models"
)

// Authorizer grants access to tracking history to the subject themself and to
// callers holding an elevated role.
type Authorizer struct {
	elevated map[models.Role]struct{}
	logger   arbor.ILogger
}

// NewAuthorizer creates an authorizer for the configured elevated roles.
// An empty list falls back to Owner and Administrator.
func NewAuthorizer(elevatedRoles []string, logger arbor.ILogger) *Authorizer {
	if len(elevatedRoles) == 0 {
		elevatedRoles = []string{string(models.RoleOwner), string(models.RoleAdministrator)}
	}

	elevated := make(map[models.Role]struct{}, len(elevatedRoles))
	for _, role := range elevatedRoles {
		if role = strings.TrimSpace(role); role != "" {
			elevated[models.Role(role)] = struct{}{}
		}
	}

	return &Authorizer{elevated: elevated, logger: logger}
}

// CanViewTracking returns ErrForbidden unless requester may read subjectID's events
func (a *Authorizer) CanViewTracking(requester models.Identity, subjectID string) error {
	if requester.IsZero() {
		return fmt.Errorf("%w: no authenticated identity", interfaces.ErrForbidden)
	}
	if requester.UserID == subjectID {
		return nil
	}
	if _, ok := a.elevated[requester.Role]; ok {
		return nil
	}

	a.logger.Debug().
		Str("user_id", requester.UserID).
		Str("role", string(requester.Role)).
		Str("subject_id", subjectID).
		Msg("Tracking access denied")

	return fmt.Errorf("%w: %s may not view tracking for %s", interfaces.ErrForbidden, requester.UserID, subjectID)
}
