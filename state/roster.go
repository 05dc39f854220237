package state

import (
	"github.com/calehh/treasury-app/types"
	"github.com/ethereum/go-ethereum/common"
)

// ManagerRoster is the ordered set of treasury managers. Invariant:
// managers[index[m]] == m for every manager m.
type ManagerRoster struct {
	managers []common.Address
	index    map[common.Address]int
	min      int
	dirty    bool
}

func NewManagerRoster(min int) *ManagerRoster {
	return &ManagerRoster{
		managers: make([]common.Address, 0),
		index:    make(map[common.Address]int),
		min:      min,
	}
}

func (r *ManagerRoster) IsManager(account common.Address) bool {
	_, ok := r.index[account]
	return ok
}

func (r *ManagerRoster) Count() int {
	return len(r.managers)
}

func (r *ManagerRoster) Min() int {
	return r.min
}

// List returns a copy of the roster. Order changes when a manager other than
// the last one is removed.
func (r *ManagerRoster) List() []common.Address {
	return deepCopySlice(r.managers)
}

// Add appends account and grants it the manager and proposer roles.
func (r *ManagerRoster) Add(account common.Address, acl *AccessControl) error {
	if account == (common.Address{}) {
		return ErrInvalidAddress
	}
	if r.IsManager(account) {
		return ErrAlreadyManager
	}
	r.index[account] = len(r.managers)
	r.managers = append(r.managers, account)
	acl.grant(types.RoleTreasuryManager, account)
	acl.grant(types.RoleProposer, account)
	r.dirty = true
	return nil
}

// Remove swaps account with the last manager, shrinks the roster and revokes
// both roles.
func (r *ManagerRoster) Remove(account common.Address, acl *AccessControl) error {
	i, ok := r.index[account]
	if !ok {
		return ErrNotManager
	}
	if len(r.managers)-1 < r.min {
		return ErrBelowMinimum
	}
	last := len(r.managers) - 1
	if i != last {
		moved := r.managers[last]
		r.managers[i] = moved
		r.index[moved] = i
	}
	r.managers = r.managers[:last]
	delete(r.index, account)
	acl.revoke(types.RoleTreasuryManager, account)
	acl.revoke(types.RoleProposer, account)
	r.dirty = true
	return nil
}

func (r *ManagerRoster) setList(managers []common.Address) {
	r.managers = deepCopySlice(managers)
	r.index = make(map[common.Address]int, len(managers))
	for i, m := range r.managers {
		r.index[m] = i
	}
}

func (r *ManagerRoster) Clone() *ManagerRoster {
	return &ManagerRoster{
		managers: deepCopySlice(r.managers),
		index:    deepCopyMap(r.index),
		min:      r.min,
		dirty:    r.dirty,
	}
}
