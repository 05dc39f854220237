package state

import (
	"sort"

	"github.com/calehh/treasury-app/types"
	"github.com/ethereum/go-ethereum/common"
)

// AccessControl maps (role, principal) to membership.
type AccessControl struct {
	members map[types.Role]map[common.Address]struct{}
	dirty   bool
}

func NewAccessControl() *AccessControl {
	return &AccessControl{
		members: make(map[types.Role]map[common.Address]struct{}),
	}
}

func (a *AccessControl) HasRole(role types.Role, account common.Address) bool {
	set, ok := a.members[role]
	if !ok {
		return false
	}
	_, ok = set[account]
	return ok
}

// CanAdminister reports whether admin may grant or revoke role.
// DefaultAdmin administers every role, Admin administers all but DefaultAdmin.
func (a *AccessControl) CanAdminister(role types.Role, admin common.Address) bool {
	if a.HasRole(types.RoleDefaultAdmin, admin) {
		return true
	}
	return role != types.RoleDefaultAdmin && a.HasRole(types.RoleAdmin, admin)
}

// grant returns false when account already held role.
func (a *AccessControl) grant(role types.Role, account common.Address) bool {
	if a.HasRole(role, account) {
		return false
	}
	set, ok := a.members[role]
	if !ok {
		set = make(map[common.Address]struct{})
		a.members[role] = set
	}
	set[account] = struct{}{}
	a.dirty = true
	return true
}

// revoke returns false when account did not hold role.
func (a *AccessControl) revoke(role types.Role, account common.Address) bool {
	if !a.HasRole(role, account) {
		return false
	}
	delete(a.members[role], account)
	a.dirty = true
	return true
}

func (a *AccessControl) RolesOf(account common.Address) []types.Role {
	roles := make([]types.Role, 0)
	for _, r := range types.AllRoles {
		if a.HasRole(r, account) {
			roles = append(roles, r)
		}
	}
	return roles
}

// Members returns the holders of role sorted by address.
func (a *AccessControl) Members(role types.Role) []common.Address {
	set := a.members[role]
	res := make([]common.Address, 0, len(set))
	for m := range set {
		res = append(res, m)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Cmp(res[j]) < 0
	})
	return res
}

func (a *AccessControl) Clone() *AccessControl {
	n := &AccessControl{
		members: make(map[types.Role]map[common.Address]struct{}, len(a.members)),
		dirty:   a.dirty,
	}
	for r, set := range a.members {
		n.members[r] = deepCopyMap(set)
	}
	return n
}
