package types

import (
	"fmt"
	"strings"
)

// Role is a capability a principal may hold. Roles do not form a hierarchy.
type Role uint8

const (
	RoleDefaultAdmin    Role = 1
	RoleAdmin           Role = 2
	RoleTreasuryManager Role = 3
	RoleProposer        Role = 4
)

var AllRoles = []Role{RoleDefaultAdmin, RoleAdmin, RoleTreasuryManager, RoleProposer}

func (r Role) Valid() bool {
	return r >= RoleDefaultAdmin && r <= RoleProposer
}

func (r Role) String() string {
	switch r {
	case RoleDefaultAdmin:
		return "default_admin"
	case RoleAdmin:
		return "admin"
	case RoleTreasuryManager:
		return "treasury_manager"
	case RoleProposer:
		return "proposer"
	}
	return fmt.Sprintf("role(%d)", uint8(r))
}

func ParseRole(s string) (Role, error) {
	for _, r := range AllRoles {
		if strings.EqualFold(r.String(), s) {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}
