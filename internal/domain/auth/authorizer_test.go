package auth

import (
	"context"
	"testing"
)

func TestAuthorizerRoleGrants(t *testing.T) {
	authz, err := NewAuthorizer()
	if err != nil {
		t.Fatalf("new authorizer: %v", err)
	}

	tests := []struct {
		name  string
		role  string
		perm  string
		allow bool
	}{
		{name: "user applies", role: RoleUser, perm: PermApplicationsApply, allow: true},
		{name: "user cannot post gigs", role: RoleUser, perm: PermGigsWrite},
		{name: "employer posts gigs", role: RoleEmployer, perm: PermGigsWrite, allow: true},
		{name: "employer cannot manage payments", role: RoleEmployer, perm: PermPaymentsManage},
		{name: "admin manages payments", role: AdminRoleStandard, perm: PermPaymentsManage, allow: true},
		{name: "admin cannot manage admins", role: AdminRoleStandard, perm: PermAdminsManage},
		{name: "super admin manages admins", role: AdminRoleSuper, perm: PermAdminsManage, allow: true},
		{name: "super admin inherits admin", role: AdminRoleSuper, perm: PermDashboardRead, allow: true},
		{name: "anonymous denied", role: "", perm: PermNotificationsRead},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := authz.HasPermission(context.Background(), tc.role, tc.perm)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.allow {
				t.Fatalf("HasPermission(%q, %q) = %v, want %v", tc.role, tc.perm, got, tc.allow)
			}
		})
	}
}

func TestAuthorizerRejectsMalformedPermission(t *testing.T) {
	authz, err := NewAuthorizer()
	if err != nil {
		t.Fatalf("new authorizer: %v", err)
	}
	if _, err := authz.HasPermission(context.Background(), RoleUser, "gigs"); err == nil {
		t.Fatal("expected error for malformed permission")
	}
}

func TestUserContextSubject(t *testing.T) {
	if got := (UserContext{Role: RoleAdmin}).Subject(); got != AdminRoleStandard {
		t.Fatalf("expected admin subject, got %s", got)
	}
	if got := (UserContext{Role: RoleAdmin, AdminRole: AdminRoleSuper}).Subject(); got != AdminRoleSuper {
		t.Fatalf("expected super_admin subject, got %s", got)
	}
	if got := (UserContext{Role: RoleEmployer, AdminRole: AdminRoleSuper}).Subject(); got != RoleEmployer {
		t.Fatalf("expected employer subject, got %s", got)
	}
}
