package app

import (
	"fmt"
	"slices"
	"strings"

	"reputation_hub/internal/domain"
)

// Authorize decides whether user may read or write requestedPropertyID and
// returns the property filter the data query must apply. It is the only gate
// between request handlers and the review store.
func Authorize(user *domain.User, requestedPropertyID string) (domain.Scope, error) {
	if user == nil {
		return domain.Scope{}, domain.ErrUnauthorized
	}
	req := strings.TrimSpace(requestedPropertyID)
	if req == "" {
		req = domain.AllProperties
	}

	if user.Global() {
		if req == domain.AllProperties {
			return domain.Scope{All: true}, nil
		}
		return domain.Scope{PropertyIDs: []string{req}}, nil
	}

	if req == domain.AllProperties {
		// narrow "all" to exactly the assigned set
		return domain.Scope{PropertyIDs: assignedSet(user.AssignedProperties)}, nil
	}
	if slices.Contains(user.AssignedProperties, req) {
		return domain.Scope{PropertyIDs: []string{req}}, nil
	}
	return domain.Scope{}, fmt.Errorf("user %s on property %s: %w", user.ID, req, domain.ErrAccessDenied)
}

// RequireRole fails unless user holds one of roles.
func RequireRole(user *domain.User, roles ...domain.Role) error {
	if user == nil {
		return domain.ErrUnauthorized
	}
	if !slices.Contains(roles, user.Role) {
		return fmt.Errorf("role %q: %w", user.Role, domain.ErrAccessDenied)
	}
	return nil
}

func assignedSet(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		p = strings.TrimSpace(p)
		if p == "" || p == domain.AllProperties || slices.Contains(out, p) {
			continue
		}
		out = append(out, p)
	}
	return out
}
