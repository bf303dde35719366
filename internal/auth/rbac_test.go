package auth

import (
	"testing"

	"github.com/xscan/xscan/internal/model"
)

func TestEnforcer_Allowed(t *testing.T) {
	t.Parallel()

	e, err := NewEnforcer()
	if err != nil {
		t.Fatalf("NewEnforcer failed: %v", err)
	}

	tests := []struct {
		role     model.Role
		resource string
		action   string
		want     bool
	}{
		{model.RoleUser, ResourceProfile, "read", true},
		{model.RoleUser, ResourceDonations, "create", true},
		{model.RoleUser, ResourceNotifications, "read", true},
		{model.RoleUser, ResourceWithdrawals, "create", false},
		{model.RoleUser, ResourceOBS, "read", false},
		{model.RoleUser, ResourceProfile, "followers", false},
		{model.RoleUser, ResourceAdmin, "read", false},
		{model.RoleStreamer, ResourceWithdrawals, "create", true},
		{model.RoleStreamer, ResourceOBS, "update", true},
		{model.RoleStreamer, ResourceDonations, "create", true},
		{model.RoleStreamer, ResourceSecurity, "encrypt", false},
		{model.RoleStreamer, ResourceWithdrawals, "review", false},
		{model.RoleAdmin, ResourceAdmin, "read", true},
		{model.RoleAdmin, ResourceSecurity, "decrypt", true},
		{model.RoleAdmin, ResourceWithdrawals, "review", true},
		{model.RoleAdmin, ResourceOBS, "read", true},
		{model.RoleAdmin, ResourceWallet, "deposit", true},
		{model.Role("root"), ResourceAdmin, "read", false},
	}

	for _, tt := range tests {
		if got := e.Allowed(tt.role, tt.resource, tt.action); got != tt.want {
			t.Errorf("Allowed(%s, %s, %s) = %v, want %v", tt.role, tt.resource, tt.action, got, tt.want)
		}
	}
}
