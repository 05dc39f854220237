package state

import (
	"fmt"

	"github.com/calehh/treasury-app/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ExecutionResult describes the outcome of confirm and execute.
type ExecutionResult struct {
	Index             uint64
	ConfirmationCount uint64
	Executed          bool
	Target            common.Address
	Value             *uint256.Int
}

func (s *State) isProposer(account common.Address) bool {
	return s.acl.HasRole(types.RoleProposer, account) || s.acl.HasRole(types.RoleTreasuryManager, account)
}

func (s *State) isAdmin(account common.Address) bool {
	return s.acl.HasRole(types.RoleAdmin, account)
}

// CreateProposal opens a new proposal and returns it. Ids are dense and never
// reused.
func (s *State) CreateProposal(proposer, target common.Address, value *uint256.Int, payload []byte, description string) (p *types.Proposal, err error) {
	err = s.atomic(func() error {
		if !s.isProposer(proposer) {
			return fmt.Errorf("%w: %v is not a proposer", ErrUnauthorized, proposer)
		}
		if err := s.pause.whenActive(); err != nil {
			return err
		}
		if target == (common.Address{}) {
			return fmt.Errorf("%w: null target", ErrInvalidAddress)
		}
		if value == nil {
			value = new(uint256.Int)
		}
		if value.Gt(s.holdings) {
			return fmt.Errorf("%w: %v > %v", ErrInsufficientBalance, value.Dec(), s.holdings.Dec())
		}
		if description == "" {
			return ErrEmptyDescription
		}
		now := s.header.Height
		p = types.NewProposal(s.header.ProposalCount, proposer, target, value, payload, description, now, now+types.ProposalExpiryBlocks)
		s.header.ProposalCount += 1
		s.markProposal(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("proposal created", "index", p.Index, "proposer", proposer, "target", target, "value", p.Value.Dec())
	return p.Clone(), nil
}

// checkActionable returns the proposal idx if voter may act on it.
func (s *State) checkActionable(voter common.Address, idx uint64) (*types.Proposal, error) {
	if !s.roster.IsManager(voter) {
		return nil, fmt.Errorf("%w: %v is not a manager", ErrUnauthorized, voter)
	}
	if err := s.pause.whenActive(); err != nil {
		return nil, err
	}
	p, err := s.getProposal(idx)
	if err != nil {
		return nil, err
	}
	if p.Executed {
		return nil, ErrAlreadyExecuted
	}
	if p.Cancelled {
		return nil, ErrProposalCancelled
	}
	if p.Expired(s.header.Height) {
		return nil, fmt.Errorf("%w: deadline %d", ErrProposalExpired, p.Deadline)
	}
	return p, nil
}

// Confirm records the vote of voter and executes the proposal in the same
// operation once the threshold is reached. A failed execution fails the vote.
func (s *State) Confirm(voter common.Address, idx uint64) (res *ExecutionResult, err error) {
	release, err := s.guard.Enter()
	if err != nil {
		return nil, err
	}
	defer release()
	err = s.atomic(func() error {
		p, err := s.checkActionable(voter, idx)
		if err != nil {
			return err
		}
		if p.HasConfirmed(voter) {
			return ErrAlreadyConfirmed
		}
		count := p.AddConfirmation(voter)
		s.markProposal(p)
		res = &ExecutionResult{
			Index:             p.Index,
			ConfirmationCount: count,
			Target:            p.Target,
			Value:             p.Value.Clone(),
		}
		if count >= s.required {
			if err = s.execute(p); err != nil {
				return err
			}
			res.Executed = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("proposal confirmed", "index", idx, "voter", voter, "count", res.ConfirmationCount, "executed", res.Executed)
	return
}

// Execute runs a proposal that already reached the threshold.
func (s *State) Execute(caller common.Address, idx uint64) (res *ExecutionResult, err error) {
	release, err := s.guard.Enter()
	if err != nil {
		return nil, err
	}
	defer release()
	err = s.atomic(func() error {
		p, err := s.checkActionable(caller, idx)
		if err != nil {
			return err
		}
		if p.ConfirmationCount < s.required {
			return fmt.Errorf("%w: %d < %d", ErrNotEnoughConfirmations, p.ConfirmationCount, s.required)
		}
		if err = s.execute(p); err != nil {
			return err
		}
		res = &ExecutionResult{
			Index:             p.Index,
			ConfirmationCount: p.ConfirmationCount,
			Executed:          true,
			Target:            p.Target,
			Value:             p.Value.Clone(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("proposal executed", "index", idx, "caller", caller)
	return
}

// execute must run inside the guard and inside atomic. The proposal is
// finalized before the executor is called.
func (s *State) execute(p *types.Proposal) error {
	p.Executed = true
	s.markProposal(p)
	if !p.Value.IsZero() {
		if err := s.limiter.CheckAndConsume(s.header.Height, p.Value); err != nil {
			return err
		}
	}
	return s.transferOut(p.Target, p.Value, p.Payload)
}

func (s *State) transferOut(to common.Address, value *uint256.Int, payload []byte) error {
	if s.holdings.Lt(value) {
		return fmt.Errorf("%w: %v > %v", ErrInsufficientBalance, value.Dec(), s.holdings.Dec())
	}
	s.holdings = new(uint256.Int).Sub(s.holdings, value)
	if s.executor == nil {
		return nil
	}
	if err := s.executor.Call(s, to, value, payload); err != nil {
		return fmt.Errorf("%w: %v", ErrExecutionFailed, err)
	}
	return nil
}

// Cancel is not gated by the pause switch.
func (s *State) Cancel(caller common.Address, idx uint64) error {
	return s.atomic(func() error {
		if !s.isAdmin(caller) {
			return fmt.Errorf("%w: %v is not admin", ErrUnauthorized, caller)
		}
		p, err := s.getProposal(idx)
		if err != nil {
			return err
		}
		if p.Executed {
			return ErrAlreadyExecuted
		}
		if p.Cancelled {
			return ErrAlreadyCancelled
		}
		p.Cancelled = true
		s.markProposal(p)
		return nil
	})
}

// EmergencyWithdraw moves amount out of the treasury without a proposal. It
// bypasses both the confirmation threshold and the daily limit.
func (s *State) EmergencyWithdraw(caller, to common.Address, amount *uint256.Int) error {
	release, err := s.guard.Enter()
	if err != nil {
		return err
	}
	defer release()
	err = s.atomic(func() error {
		if !s.isAdmin(caller) {
			return fmt.Errorf("%w: %v is not admin", ErrUnauthorized, caller)
		}
		if to == (common.Address{}) {
			return fmt.Errorf("%w: null recipient", ErrInvalidAddress)
		}
		if !s.roster.IsManager(to) && !s.isAdmin(to) {
			return fmt.Errorf("%w: %v is neither manager nor admin", ErrInvalidAddress, to)
		}
		if amount == nil || amount.IsZero() {
			return ErrInvalidAmount
		}
		return s.transferOut(to, amount, nil)
	})
	if err != nil {
		return err
	}
	s.logger.Info("emergency withdraw", "caller", caller, "to", to, "amount", amount.Dec())
	return nil
}

// Deposit moves amount from the account of from into the treasury. Any
// principal may deposit.
func (s *State) Deposit(from common.Address, amount *uint256.Int) error {
	return s.atomic(func() error {
		if amount == nil || amount.IsZero() {
			return ErrInvalidAmount
		}
		a, err := s.GetAccount(from)
		if err != nil {
			return err
		}
		if err = a.debit(amount); err != nil {
			return err
		}
		s.markAccount(a)
		sum, overflow := new(uint256.Int).AddOverflow(s.holdings, amount)
		if overflow {
			return fmt.Errorf("%w: holdings overflow", ErrInvalidAmount)
		}
		s.holdings = sum
		return nil
	})
}

func (s *State) Balance() *uint256.Int {
	return s.holdings.Clone()
}

// Proposal returns a copy of the proposal idx.
func (s *State) Proposal(idx uint64) (*types.Proposal, error) {
	p, err := s.readProposal(idx)
	if err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

func (s *State) ProposalCount() uint64 {
	return s.header.ProposalCount
}

func (s *State) ProposalStatus(idx uint64) (types.ProposalStatus, error) {
	p, err := s.readProposal(idx)
	if err != nil {
		return 0, err
	}
	return p.Status(s.header.Height, s.required), nil
}

func (s *State) HasConfirmed(idx uint64, account common.Address) (bool, error) {
	p, err := s.readProposal(idx)
	if err != nil {
		return false, err
	}
	return p.HasConfirmed(account), nil
}

func (s *State) Managers() []common.Address {
	return s.roster.List()
}

func (s *State) IsManager(account common.Address) bool {
	return s.roster.IsManager(account)
}

func (s *State) RemainingDailyWithdrawal() *uint256.Int {
	return s.limiter.Remaining(s.header.Height)
}

func (s *State) DailyLimit() *uint256.Int {
	return s.limiter.Limit()
}

func (s *State) RequiredConfirmations() uint64 {
	return s.required
}

func (s *State) Paused() bool {
	return s.pause.Paused()
}

func (s *State) HasRole(role types.Role, account common.Address) bool {
	return s.acl.HasRole(role, account)
}

func (s *State) RolesOf(account common.Address) []types.Role {
	return s.acl.RolesOf(account)
}

// Account returns a copy of the account of addr, or an empty one.
func (s *State) Account(addr common.Address) (*Account, error) {
	a, err := s.readAccount(addr)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return NewAccount(addr), nil
	}
	return a.Clone(), nil
}
