package state

import (
	"fmt"

	"github.com/calehh/treasury-app/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func (s *State) onlyAdmin(caller common.Address) error {
	if !s.isAdmin(caller) {
		return fmt.Errorf("%w: %v is not admin", ErrUnauthorized, caller)
	}
	return nil
}

// GrantRole reports whether the grant changed anything.
func (s *State) GrantRole(caller common.Address, role types.Role, account common.Address) (changed bool, err error) {
	err = s.atomic(func() error {
		if !role.Valid() {
			return fmt.Errorf("%w: %d", ErrInvalidRole, role)
		}
		if !s.acl.CanAdminister(role, caller) {
			return fmt.Errorf("%w: %v cannot administer %v", ErrUnauthorized, caller, role)
		}
		if account == (common.Address{}) {
			return ErrInvalidAddress
		}
		changed = s.acl.grant(role, account)
		return nil
	})
	return
}

// RevokeRole reports whether the revocation changed anything. The manager and
// proposer roles of a roster member only go away through RemoveManager.
func (s *State) RevokeRole(caller common.Address, role types.Role, account common.Address) (changed bool, err error) {
	err = s.atomic(func() error {
		if !role.Valid() {
			return fmt.Errorf("%w: %d", ErrInvalidRole, role)
		}
		if !s.acl.CanAdminister(role, caller) {
			return fmt.Errorf("%w: %v cannot administer %v", ErrUnauthorized, caller, role)
		}
		if (role == types.RoleTreasuryManager || role == types.RoleProposer) && s.roster.IsManager(account) {
			return fmt.Errorf("%w: %v is a manager, use RemoveManager", ErrRosterRole, account)
		}
		changed = s.acl.revoke(role, account)
		return nil
	})
	return
}

func (s *State) AddManager(caller, account common.Address) error {
	return s.atomic(func() error {
		if err := s.onlyAdmin(caller); err != nil {
			return err
		}
		return s.roster.Add(account, s.acl)
	})
}

// RemoveManager drops account from the roster. Votes it already cast stay
// counted. When the roster shrinks below the threshold the threshold follows
// it down; thresholdChanged reports that.
func (s *State) RemoveManager(caller, account common.Address) (thresholdChanged bool, err error) {
	err = s.atomic(func() error {
		if err := s.onlyAdmin(caller); err != nil {
			return err
		}
		if err := s.roster.Remove(account, s.acl); err != nil {
			return err
		}
		if size := uint64(s.roster.Count()); s.required > size {
			s.required = size
			thresholdChanged = true
		}
		return nil
	})
	return
}

func (s *State) UpdateRequiredConfirmations(caller common.Address, required uint64) error {
	return s.atomic(func() error {
		if err := s.onlyAdmin(caller); err != nil {
			return err
		}
		return s.setRequired(required)
	})
}

func (s *State) setRequired(required uint64) error {
	if required < uint64(s.roster.Min()) || required > uint64(s.roster.Count()) {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidConfirmationCount, required, s.roster.Min(), s.roster.Count())
	}
	s.required = required
	return nil
}

func (s *State) UpdateDailyLimit(caller common.Address, limit *uint256.Int) error {
	return s.atomic(func() error {
		if err := s.onlyAdmin(caller); err != nil {
			return err
		}
		if limit == nil {
			return ErrInvalidAmount
		}
		return s.limiter.SetLimit(limit, types.MaxDailyLimit)
	})
}

func (s *State) Pause(caller common.Address) error {
	return s.atomic(func() error {
		if err := s.onlyAdmin(caller); err != nil {
			return err
		}
		return s.pause.Pause()
	})
}

func (s *State) Unpause(caller common.Address) error {
	return s.atomic(func() error {
		if err := s.onlyAdmin(caller); err != nil {
			return err
		}
		return s.pause.Unpause()
	})
}

// InitGenesis applies the construction-time configuration. It fails when the
// state was initialized before.
func (s *State) InitGenesis(gen *types.TreasuryGenesis) error {
	return s.atomic(func() error {
		if s.header.Initialized {
			return ErrGenesisApplied
		}
		if err := gen.ValidateBasic(); err != nil {
			return err
		}
		s.acl.grant(types.RoleDefaultAdmin, gen.Admin)
		s.acl.grant(types.RoleAdmin, gen.Admin)
		for _, m := range gen.Managers {
			if err := s.roster.Add(m, s.acl); err != nil {
				return err
			}
		}
		if err := s.setRequired(gen.RequiredConfirmations); err != nil {
			return err
		}
		limit := gen.DailyLimit
		if limit == nil {
			limit = new(uint256.Int)
		}
		if err := s.limiter.SetLimit(limit, types.MaxDailyLimit); err != nil {
			return err
		}
		s.limiter.windowStart = s.header.Height
		if gen.Holdings != nil {
			s.holdings = gen.Holdings.Clone()
		}
		for _, ga := range gen.Accounts {
			if ga.Balance == nil {
				continue
			}
			if err := s.Credit(ga.Address, ga.Balance); err != nil {
				return err
			}
		}
		s.header.Initialized = true
		return nil
	})
}
