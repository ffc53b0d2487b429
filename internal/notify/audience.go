// Package notify implements the dispatch side of the delivery engine: the
// audience, content and preference resolvers, and the dispatcher that turns a
// business event into notification records and outbox entries.
package notify

import (
	"log/slog"

	"github.com/mohammed-alfattahi/ibb-city-sub001/internal/models"
	"github.com/mohammed-alfattahi/ibb-city-sub001/internal/store"
)

// AudienceResolver expands abstract audience criteria into concrete users.
type AudienceResolver struct {
	directory store.DirectoryRepo
}

// NewAudienceResolver creates a resolver backed by the given directory.
func NewAudienceResolver(directory store.DirectoryRepo) *AudienceResolver {
	return &AudienceResolver{directory: directory}
}

// Resolve returns the active users matching the criteria. Exactly one
// selector is honored, checked in order: broadcast, role, user_id. Empty or
// unrecognized criteria resolve to no recipients; store errors are logged and
// also resolve to no recipients — this method never fails the caller.
func (r *AudienceResolver) Resolve(criteria models.AudienceCriteria) []models.User {
	switch {
	case criteria.Broadcast:
		users, err := r.directory.ListActiveUsers()
		if err != nil {
			slog.Error("AudienceResolver.Resolve: broadcast lookup failed", "error", err)
			return nil
		}
		return users

	case criteria.Role != "":
		return r.resolveRole(criteria.Role)

	case criteria.UserID != "":
		user, err := r.directory.GetUser(criteria.UserID)
		if err != nil {
			if err != models.ErrUserNotFound {
				slog.Error("AudienceResolver.Resolve: user lookup failed", "user_id", criteria.UserID, "error", err)
			}
			return nil
		}
		if !user.Active {
			return nil
		}
		return []models.User{*user}
	}
	return nil
}

func (r *AudienceResolver) resolveRole(role models.AudienceRole) []models.User {
	var users []models.User
	var err error
	switch role {
	case models.AudienceAll:
		users, err = r.directory.ListActiveUsers()
	case models.AudiencePartner:
		// Approved partners only; a partner-tagged role alone is not enough.
		users, err = r.directory.ListApprovedPartners()
	case models.AudienceStaff:
		users, err = r.directory.ListActiveStaff()
	default:
		slog.Warn("AudienceResolver.resolveRole: unrecognized role selector", "role", role)
		return nil
	}
	if err != nil {
		slog.Error("AudienceResolver.resolveRole: lookup failed", "role", role, "error", err)
		return nil
	}
	return users
}
