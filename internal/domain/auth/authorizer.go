package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

// Authorizer answers permission checks from an in-memory casbin enforcer seeded with RolePermissions.
type Authorizer struct {
	enforcer *casbin.Enforcer
}

func NewAuthorizer() (*Authorizer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("authz model: %w", err)
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("authz enforcer: %w", err)
	}
	for role, perms := range RolePermissions {
		for _, perm := range perms {
			obj, act := splitPermission(perm)
			if _, err := enforcer.AddPolicy(SubjectFromRole(role), obj, act); err != nil {
				return nil, fmt.Errorf("authz policy %s %s: %w", role, perm, err)
			}
		}
	}
	if _, err := enforcer.AddGroupingPolicy(SubjectFromRole(AdminRoleSuper), SubjectFromRole(AdminRoleStandard)); err != nil {
		return nil, fmt.Errorf("authz grouping: %w", err)
	}
	return &Authorizer{enforcer: enforcer}, nil
}

func SubjectFromRole(role string) string {
	role = strings.TrimSpace(strings.ToLower(role))
	if role == "" {
		role = "anonymous"
	}
	return "role:" + role
}

// HasPermission reports whether the subject role holds permission ("area.action").
func (a *Authorizer) HasPermission(_ context.Context, role, permission string) (bool, error) {
	obj, act := splitPermission(permission)
	if obj == "" || act == "" {
		return false, fmt.Errorf("malformed permission %q", permission)
	}
	return a.enforcer.Enforce(SubjectFromRole(role), obj, act)
}

func splitPermission(permission string) (string, string) {
	idx := strings.LastIndex(permission, ".")
	if idx <= 0 || idx == len(permission)-1 {
		return "", ""
	}
	return permission[:idx], permission[idx+1:]
}
