package domain

import "slices"

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleEditor  Role = "editor"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleEditor:
		return true
	}
	return false
}

// AllProperties is the reserved property id meaning "every property the user may see".
const AllProperties = "ALL"

type User struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Email              string   `json:"email"`
	Role               Role     `json:"role"`
	AssignedProperties []string `json:"assigned_properties"`
}

// Global reports whether the user may see every property.
func (u User) Global() bool {
	return slices.Contains(u.AssignedProperties, AllProperties)
}

type Property struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Scope is the effective property filter produced by the access policy.
// All=true means no filter; otherwise only PropertyIDs are visible.
type Scope struct {
	All         bool
	PropertyIDs []string
}

func (s Scope) Includes(propertyID string) bool {
	return s.All || slices.Contains(s.PropertyIDs, propertyID)
}
