package app_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"reputation_hub/internal/app"
	"reputation_hub/internal/domain"
)

var (
	admin   = &domain.User{ID: "user-admin", Role: domain.RoleAdmin, AssignedProperties: []string{"ALL"}}
	manager = &domain.User{ID: "user-manager", Role: domain.RoleManager, AssignedProperties: []string{"prop-1", "prop-2"}}
	editor  = &domain.User{ID: "user-editor", Role: domain.RoleEditor, AssignedProperties: []string{"prop-1"}}
)

func TestAuthorize_NilUser(t *testing.T) {
	_, err := app.Authorize(nil, "prop-1")
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestAuthorize_Matrix(t *testing.T) {
	cases := []struct {
		name    string
		user    *domain.User
		prop    string
		wantErr error
		want    domain.Scope
	}{
		{"global all", admin, "ALL", nil, domain.Scope{All: true}},
		{"global empty means all", admin, "", nil, domain.Scope{All: true}},
		{"global single", admin, "prop-3", nil, domain.Scope{PropertyIDs: []string{"prop-3"}}},
		{"assigned single", manager, "prop-2", nil, domain.Scope{PropertyIDs: []string{"prop-2"}}},
		{"unassigned single", manager, "prop-3", domain.ErrAccessDenied, domain.Scope{}},
		{"non-global all narrows", manager, "ALL", nil, domain.Scope{PropertyIDs: []string{"prop-1", "prop-2"}}},
		{"editor all narrows", editor, "ALL", nil, domain.Scope{PropertyIDs: []string{"prop-1"}}},
		{"editor other", editor, "prop-2", domain.ErrAccessDenied, domain.Scope{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := app.Authorize(tc.user, tc.prop)
			if tc.wantErr != nil {
				require.True(t, errors.Is(err, tc.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestAuthorize_NarrowedScopeNeverExceedsAssignment(t *testing.T) {
	u := &domain.User{ID: "u", Role: domain.RoleEditor, AssignedProperties: []string{"p-2", "p-1", "p-2", " "}}
	got, err := app.Authorize(u, "ALL")
	require.NoError(t, err)
	require.False(t, got.All)
	require.Equal(t, []string{"p-2", "p-1"}, got.PropertyIDs)
	for _, p := range got.PropertyIDs {
		require.Contains(t, u.AssignedProperties, p)
	}
}

func TestAuthorize_NoAssignmentsAllIsEmpty(t *testing.T) {
	u := &domain.User{ID: "u", Role: domain.RoleEditor}
	got, err := app.Authorize(u, "ALL")
	require.NoError(t, err)
	require.False(t, got.All)
	require.Empty(t, got.PropertyIDs)
}

func TestRequireRole(t *testing.T) {
	require.NoError(t, app.RequireRole(admin, domain.RoleAdmin, domain.RoleManager))
	require.NoError(t, app.RequireRole(manager, domain.RoleAdmin, domain.RoleManager))
	require.ErrorIs(t, app.RequireRole(editor, domain.RoleAdmin, domain.RoleManager), domain.ErrAccessDenied)
	require.ErrorIs(t, app.RequireRole(nil, domain.RoleAdmin), domain.ErrUnauthorized)
}
