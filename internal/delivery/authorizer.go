package delivery

import (
	"context"
	"fmt"

	"mentor-chat-service/internal/repositories"
)

// Authorizer answers whether a sender may message a recipient based on the
// mentor-student approval relation. It has no side effects.
type Authorizer struct {
	links repositories.LinkRepository
}

// NewAuthorizer constructs an Authorizer.
func NewAuthorizer(links repositories.LinkRepository) *Authorizer {
	return &Authorizer{links: links}
}

// Authorize returns nil when an approved link exists for the pair in the
// direction implied by the actor's role. A store failure is reported as
// ErrStoreUnavailable, never treated as authorized.
func (a *Authorizer) Authorize(ctx context.Context, actorID, actorRole, counterpartID string) error {
	var mentorID, studentID string
	switch actorRole {
	case "student":
		studentID, mentorID = actorID, counterpartID
	case "mentor", "university":
		mentorID, studentID = actorID, counterpartID
	default:
		return ErrForbidden
	}

	approved, err := a.links.Approved(ctx, mentorID, studentID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !approved {
		return ErrForbidden
	}
	return nil
}
