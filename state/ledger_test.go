package state

import (
	"errors"
	"testing"

	"github.com/calehh/treasury-app/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmAutoExecutes(t *testing.T) {
	st := newTestState(t)
	p, err := st.CreateProposal(managerA, target, eth(5), nil, "grant")
	require.NoError(t, err)
	status, err := st.ProposalStatus(p.Index)
	require.NoError(t, err)
	assert.Equal(t, types.ProposalStatusOpen, status)

	res, err := st.Confirm(managerA, p.Index)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.ConfirmationCount)
	assert.False(t, res.Executed)
	status, _ = st.ProposalStatus(p.Index)
	assert.Equal(t, types.ProposalStatusOpen, status)

	res, err = st.Confirm(managerB, p.Index)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.ConfirmationCount)
	assert.True(t, res.Executed)
	assert.Equal(t, eth(95), st.Balance())
	assert.Equal(t, eth(5), st.RemainingDailyWithdrawal())
	acnt, err := st.Account(target)
	require.NoError(t, err)
	assert.Equal(t, eth(5), acnt.Balance)

	got, err := st.Proposal(p.Index)
	require.NoError(t, err)
	assert.True(t, got.Executed)
	assert.Equal(t, []common.Address{managerA, managerB}, got.Confirmers())

	_, err = st.Confirm(managerC, p.Index)
	assert.ErrorIs(t, err, ErrAlreadyExecuted)
	_, err = st.Execute(managerC, p.Index)
	assert.ErrorIs(t, err, ErrAlreadyExecuted)
	assert.ErrorIs(t, st.Cancel(admin, p.Index), ErrAlreadyExecuted)
}

func TestDailyLimitExceeded(t *testing.T) {
	st := newTestState(t)
	p, err := st.CreateProposal(managerA, target, eth(8), nil, "first")
	require.NoError(t, err)
	_, err = st.Confirm(managerA, p.Index)
	require.NoError(t, err)
	res, err := st.Confirm(managerB, p.Index)
	require.NoError(t, err)
	require.True(t, res.Executed)
	assert.Equal(t, eth(2), st.RemainingDailyWithdrawal())

	p2, err := st.CreateProposal(managerA, target, eth(5), nil, "second")
	require.NoError(t, err)
	_, err = st.Confirm(managerA, p2.Index)
	require.NoError(t, err)
	_, err = st.Confirm(managerB, p2.Index)
	assert.ErrorIs(t, err, ErrDailyLimitExceeded)

	got, err := st.Proposal(p2.Index)
	require.NoError(t, err)
	assert.False(t, got.Executed)
	assert.Equal(t, uint64(1), got.ConfirmationCount)
	assert.Equal(t, eth(92), st.Balance())
	assert.Equal(t, eth(2), st.RemainingDailyWithdrawal())

	st.SetHeight(st.Height() + types.WithdrawalWindowBlocks)
	assert.Equal(t, eth(10), st.RemainingDailyWithdrawal())
	res, err = st.Confirm(managerB, p2.Index)
	require.NoError(t, err)
	assert.True(t, res.Executed)
	assert.Equal(t, eth(5), st.RemainingDailyWithdrawal())
}

func TestExplicitExecute(t *testing.T) {
	st := newTestState(t)
	p, err := st.CreateProposal(managerA, target, eth(1), nil, "explicit")
	require.NoError(t, err)
	_, err = st.Confirm(managerA, p.Index)
	require.NoError(t, err)

	_, err = st.Execute(managerA, p.Index)
	assert.ErrorIs(t, err, ErrNotEnoughConfirmations)

	require.NoError(t, st.UpdateRequiredConfirmations(admin, 3))
	_, err = st.Confirm(managerB, p.Index)
	require.NoError(t, err)
	require.NoError(t, st.UpdateRequiredConfirmations(admin, 2))

	_, err = st.Execute(outsider, p.Index)
	assert.ErrorIs(t, err, ErrUnauthorized)
	res, err := st.Execute(managerC, p.Index)
	require.NoError(t, err)
	assert.True(t, res.Executed)
	assert.Equal(t, eth(99), st.Balance())
}

func TestCancel(t *testing.T) {
	st := newTestState(t)
	p, err := st.CreateProposal(managerA, target, eth(1), nil, "cancel me")
	require.NoError(t, err)

	assert.ErrorIs(t, st.Cancel(managerA, p.Index), ErrUnauthorized)
	require.NoError(t, st.Pause(admin))
	require.NoError(t, st.Cancel(admin, p.Index))
	require.NoError(t, st.Unpause(admin))

	_, err = st.Confirm(managerA, p.Index)
	assert.ErrorIs(t, err, ErrProposalCancelled)
	_, err = st.Execute(managerA, p.Index)
	assert.ErrorIs(t, err, ErrProposalCancelled)
	assert.ErrorIs(t, st.Cancel(admin, p.Index), ErrAlreadyCancelled)
	assert.ErrorIs(t, st.Cancel(admin, 42), ErrProposalNotFound)

	status, err := st.ProposalStatus(p.Index)
	require.NoError(t, err)
	assert.Equal(t, types.ProposalStatusCancelled, status)
}

func TestExpiry(t *testing.T) {
	st := newTestState(t)
	p, err := st.CreateProposal(managerA, target, eth(1), nil, "slow")
	require.NoError(t, err)
	assert.Equal(t, st.Height()+types.ProposalExpiryBlocks, p.Deadline)

	st.SetHeight(p.Deadline)
	_, err = st.Confirm(managerA, p.Index)
	require.NoError(t, err)

	st.SetHeight(p.Deadline + 1)
	_, err = st.Confirm(managerB, p.Index)
	assert.ErrorIs(t, err, ErrProposalExpired)
	_, err = st.Execute(managerB, p.Index)
	assert.ErrorIs(t, err, ErrProposalExpired)
	status, _ := st.ProposalStatus(p.Index)
	assert.Equal(t, types.ProposalStatusExpired, status)
}

func TestCreateProposalValidation(t *testing.T) {
	st := newTestState(t)
	_, err := st.CreateProposal(outsider, target, eth(1), nil, "x")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = st.CreateProposal(managerA, common.Address{}, eth(1), nil, "x")
	assert.ErrorIs(t, err, ErrInvalidAddress)
	_, err = st.CreateProposal(managerA, target, eth(101), nil, "x")
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	_, err = st.CreateProposal(managerA, target, eth(1), nil, "")
	assert.ErrorIs(t, err, ErrEmptyDescription)
	assert.Equal(t, uint64(0), st.ProposalCount())

	_, err = st.GrantRole(admin, types.RoleProposer, outsider)
	require.NoError(t, err)
	p, err := st.CreateProposal(outsider, target, nil, nil, "zero value call")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), p.Index)
	assert.True(t, p.Value.IsZero())

	_, err = st.Confirm(outsider, p.Index)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = st.Confirm(managerA, 7)
	assert.ErrorIs(t, err, ErrProposalNotFound)
}

func TestConfirmTwice(t *testing.T) {
	st := newTestState(t)
	require.NoError(t, st.UpdateRequiredConfirmations(admin, 3))
	p, err := st.CreateProposal(managerA, target, eth(1), nil, "x")
	require.NoError(t, err)
	_, err = st.Confirm(managerA, p.Index)
	require.NoError(t, err)
	_, err = st.Confirm(managerA, p.Index)
	assert.ErrorIs(t, err, ErrAlreadyConfirmed)

	got, _ := st.Proposal(p.Index)
	assert.Equal(t, uint64(1), got.ConfirmationCount)
	assert.Len(t, got.Confirmers(), 1)
}

func TestPauseGatesLedger(t *testing.T) {
	st := newTestState(t)
	p, err := st.CreateProposal(managerA, target, eth(1), nil, "x")
	require.NoError(t, err)
	require.NoError(t, st.Pause(admin))
	assert.ErrorIs(t, st.Pause(admin), ErrAlreadyPaused)

	_, err = st.CreateProposal(managerA, target, eth(1), nil, "y")
	assert.ErrorIs(t, err, ErrContractPaused)
	_, err = st.Confirm(managerA, p.Index)
	assert.ErrorIs(t, err, ErrContractPaused)
	_, err = st.Execute(managerA, p.Index)
	assert.ErrorIs(t, err, ErrContractPaused)

	require.NoError(t, st.Unpause(admin))
	assert.ErrorIs(t, st.Unpause(admin), ErrNotPaused)
	_, err = st.Confirm(managerA, p.Index)
	require.NoError(t, err)
}

func TestRemovedManagerKeepsVote(t *testing.T) {
	st := newTestState(t)
	require.NoError(t, st.UpdateRequiredConfirmations(admin, 3))
	p, err := st.CreateProposal(managerA, target, eth(1), nil, "x")
	require.NoError(t, err)
	_, err = st.Confirm(managerA, p.Index)
	require.NoError(t, err)

	changed, err := st.RemoveManager(admin, managerA)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, uint64(2), st.RequiredConfirmations())
	assert.False(t, st.HasRole(types.RoleTreasuryManager, managerA))

	_, err = st.Confirm(managerA, 0)
	assert.ErrorIs(t, err, ErrUnauthorized)

	res, err := st.Confirm(managerB, p.Index)
	require.NoError(t, err)
	assert.True(t, res.Executed)
	assert.Equal(t, uint64(2), res.ConfirmationCount)
}

func TestExecutorFailureRollsBack(t *testing.T) {
	st := newTestState(t)
	st.SetExecutor(ExecutorFunc(func(st *State, target common.Address, value *uint256.Int, payload []byte) error {
		return errors.New("call reverted")
	}))
	p, err := st.CreateProposal(managerA, target, eth(4), nil, "x")
	require.NoError(t, err)
	_, err = st.Confirm(managerA, p.Index)
	require.NoError(t, err)

	_, err = st.Confirm(managerB, p.Index)
	assert.ErrorIs(t, err, ErrExecutionFailed)
	got, _ := st.Proposal(p.Index)
	assert.False(t, got.Executed)
	assert.Equal(t, uint64(1), got.ConfirmationCount)
	assert.Equal(t, eth(100), st.Balance())
	assert.Equal(t, eth(10), st.RemainingDailyWithdrawal())
	assert.False(t, st.guard.Busy())
}

func TestReentrantExecution(t *testing.T) {
	st := newTestState(t)
	var inner error
	st.SetExecutor(ExecutorFunc(func(st *State, target common.Address, value *uint256.Int, payload []byte) error {
		_, inner = st.Execute(managerC, 0)
		return inner
	}))
	p, err := st.CreateProposal(managerA, target, eth(4), nil, "x")
	require.NoError(t, err)
	_, err = st.Confirm(managerA, p.Index)
	require.NoError(t, err)

	_, err = st.Confirm(managerB, p.Index)
	assert.ErrorIs(t, inner, ErrReentrantCall)
	assert.ErrorIs(t, err, ErrExecutionFailed)
	got, _ := st.Proposal(p.Index)
	assert.False(t, got.Executed)
	assert.Equal(t, eth(100), st.Balance())
	assert.False(t, st.guard.Busy())

	st.SetExecutor(TransferExecutor{})
	res, err := st.Confirm(managerB, p.Index)
	require.NoError(t, err)
	assert.True(t, res.Executed)
}

func TestReentrantEntryPoints(t *testing.T) {
	inners := map[string]func(st *State, idx uint64) error{
		"confirm": func(st *State, idx uint64) error {
			_, err := st.Confirm(managerC, idx)
			return err
		},
		"execute": func(st *State, idx uint64) error {
			_, err := st.Execute(managerC, idx)
			return err
		},
		"emergency": func(st *State, idx uint64) error {
			return st.EmergencyWithdraw(admin, managerC, eth(1))
		},
	}
	outers := map[string]func(st *State, idx uint64) error{
		"confirm": func(st *State, idx uint64) error {
			_, err := st.Confirm(managerB, idx)
			return err
		},
		"emergency": func(st *State, idx uint64) error {
			return st.EmergencyWithdraw(admin, managerA, eth(5))
		},
	}
	for outerName, outer := range outers {
		for innerName, inner := range inners {
			t.Run(outerName+"/"+innerName, func(t *testing.T) {
				st := newTestState(t)
				p, err := st.CreateProposal(managerA, target, eth(4), nil, "x")
				require.NoError(t, err)
				_, err = st.Confirm(managerA, p.Index)
				require.NoError(t, err)

				var innerErr error
				st.SetExecutor(ExecutorFunc(func(st *State, target common.Address, value *uint256.Int, payload []byte) error {
					innerErr = inner(st, p.Index)
					return innerErr
				}))
				err = outer(st, p.Index)
				assert.ErrorIs(t, innerErr, ErrReentrantCall)
				assert.ErrorIs(t, err, ErrExecutionFailed)

				got, err := st.Proposal(p.Index)
				require.NoError(t, err)
				assert.False(t, got.Executed)
				assert.Equal(t, uint64(1), got.ConfirmationCount)
				assert.False(t, got.HasConfirmed(managerB))
				assert.False(t, got.HasConfirmed(managerC))
				assert.Equal(t, eth(100), st.Balance())
				assert.Equal(t, eth(10), st.RemainingDailyWithdrawal())
				for _, addr := range []common.Address{managerA, managerC, target} {
					a, err := st.Account(addr)
					require.NoError(t, err)
					assert.True(t, a.Balance.IsZero(), addr.Hex())
				}
				assert.False(t, st.guard.Busy())
			})
		}
	}
}

func TestEmergencyWithdraw(t *testing.T) {
	st := newTestState(t)
	assert.ErrorIs(t, st.EmergencyWithdraw(managerA, managerA, eth(1)), ErrUnauthorized)
	assert.ErrorIs(t, st.EmergencyWithdraw(admin, outsider, eth(1)), ErrInvalidAddress)
	assert.ErrorIs(t, st.EmergencyWithdraw(admin, common.Address{}, eth(1)), ErrInvalidAddress)
	assert.ErrorIs(t, st.EmergencyWithdraw(admin, managerA, nil), ErrInvalidAmount)
	assert.ErrorIs(t, st.EmergencyWithdraw(admin, managerA, eth(101)), ErrInsufficientBalance)

	require.NoError(t, st.Pause(admin))
	require.NoError(t, st.EmergencyWithdraw(admin, managerA, eth(50)))
	assert.Equal(t, eth(50), st.Balance())
	assert.Equal(t, eth(10), st.RemainingDailyWithdrawal())
	a, _ := st.Account(managerA)
	assert.Equal(t, eth(50), a.Balance)
}

func TestDeposit(t *testing.T) {
	st := newTestState(t)
	assert.ErrorIs(t, st.Deposit(outsider, eth(4)), ErrInsufficientFunds)
	assert.ErrorIs(t, st.Deposit(outsider, new(uint256.Int)), ErrInvalidAmount)
	require.NoError(t, st.Deposit(outsider, eth(2)))
	assert.Equal(t, eth(102), st.Balance())
	a, _ := st.Account(outsider)
	assert.Equal(t, eth(1), a.Balance)
}
