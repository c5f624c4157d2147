package rbac

import "testing"

func TestHasPermission(t *testing.T) {
	tests := []struct {
		role       string
		permission string
		expected   bool
	}{
		{RoleOwner, PermTransferOwnership, true},
		{RoleOwner, PermManageRoles, true},
		{RoleAdmin, PermResolveRequest, true},
		{RoleAdmin, PermPause, true},
		{RoleAdmin, PermManageRoles, false},
		{RoleAdmin, PermTransferOwnership, false},
		{RoleOperator, PermTriggerSettlement, true},
		{RoleOperator, PermDepositRent, false},
		{"nonexistent", PermPause, false},
	}

	for _, tt := range tests {
		t.Run(tt.role+"/"+tt.permission, func(t *testing.T) {
			if got := HasPermission(tt.role, tt.permission); got != tt.expected {
				t.Errorf("HasPermission(%q, %q) = %v, want %v", tt.role, tt.permission, got, tt.expected)
			}
		})
	}
}

func TestAnyHasPermission(t *testing.T) {
	if !AnyHasPermission([]string{RoleOperator, RoleAdmin}, PermDelist) {
		t.Error("admin in role list should grant delist")
	}
	if AnyHasPermission(nil, PermDelist) {
		t.Error("empty role list must grant nothing")
	}
}

func TestOwnerOnlyPermissions(t *testing.T) {
	for role, perms := range RolePermissions {
		if role == RoleOwner {
			continue
		}
		for _, p := range perms {
			if IsOwnerOperation(p) {
				t.Errorf("role %q must not carry owner-only permission %q", role, p)
			}
		}
	}
	if IsGrantable(RoleOwner) {
		t.Error("owner role must not be grantable")
	}
}
