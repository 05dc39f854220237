package handler

import (
	"context"
	"testing"

	"github.com/calehh/treasury-app/state"
	"github.com/calehh/treasury-app/tx"
	"github.com/calehh/treasury-app/types"
	"github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin    = common.HexToAddress("0x00000000000000000000000000000000000000ad")
	managerA = common.HexToAddress("0x000000000000000000000000000000000000000a")
	managerB = common.HexToAddress("0x000000000000000000000000000000000000000b")
	donor    = common.HexToAddress("0x00000000000000000000000000000000000000d0")
)

func newTestState(t *testing.T) *state.State {
	db, err := state.NewMemStateDB(log.NewNopLogger())
	require.NoError(t, err)
	st := db.NewState()
	gen := types.DefaultTreasuryGenesis(admin, []common.Address{managerA, managerB})
	gen.Holdings = uint256.NewInt(100)
	gen.Accounts = []types.GenesisAccount{{Address: donor, Balance: uint256.NewInt(50)}}
	require.NoError(t, st.InitGenesis(gen))
	return st
}

func TestHandlersCoverEveryType(t *testing.T) {
	hdlrs := Handlers()
	for tp := tx.TxTypeDeposit; tp <= tx.TxTypeRevokeRole; tp++ {
		_, ok := hdlrs[tp]
		assert.True(t, ok, tp.String())
	}
}

func TestDepositHandler(t *testing.T) {
	st := newTestState(t)
	h := NewDepositTxHandler()
	btx := tx.NewTx(tx.TxTypeDeposit, donor, 0, &tx.DepositTx{Amount: uint256.NewInt(20)})

	_, err := h.Check(context.Background(), st, btx)
	require.NoError(t, err)
	assert.Equal(t, uint256.NewInt(100), st.Balance())

	res, err := h.Process(context.Background(), st, btx)
	require.NoError(t, err)
	require.Len(t, res.Events, 1)
	ev := types.DecodeEventDeposit(res.Events[0])
	require.NotNil(t, ev)
	assert.Equal(t, donor, ev.From)
	assert.Equal(t, uint256.NewInt(120), st.Balance())

	wrong := tx.NewTx(tx.TxTypeDeposit, donor, 0, &tx.PauseTx{})
	_, err = h.Process(context.Background(), st, wrong)
	assert.ErrorIs(t, err, tx.ErrUnmatchedTxType)
}

func TestVoteHandler(t *testing.T) {
	st := newTestState(t)
	ctx := context.Background()
	res, err := NewProposalTxHandler().Process(ctx, st, tx.NewTx(tx.TxTypePropose, managerA, 0,
		&tx.ProposeTx{Target: donor, Value: uint256.NewInt(10), Description: "refund"}))
	require.NoError(t, err)
	created := types.DecodeEventProposalCreated(res.Events[0])
	require.NotNil(t, created)

	h := NewVoteTxHandler()
	res, err = h.Process(ctx, st, tx.NewTx(tx.TxTypeConfirm, managerA, 1, &tx.ConfirmTx{Proposal: created.ProposalIndex}))
	require.NoError(t, err)
	assert.Len(t, res.Events, 1)

	res, err = h.Process(ctx, st, tx.NewTx(tx.TxTypeConfirm, managerB, 0, &tx.ConfirmTx{Proposal: created.ProposalIndex}))
	require.NoError(t, err)
	require.Len(t, res.Events, 2)
	confirmed := types.DecodeEventProposalConfirmed(res.Events[0])
	require.NotNil(t, confirmed)
	assert.Equal(t, uint64(2), confirmed.Count)
	assert.Equal(t, types.EventProposalExecutedType, res.Events[1].Type)
	assert.Equal(t, uint256.NewInt(90), st.Balance())
}

func TestAdminHandlerRoleNoop(t *testing.T) {
	st := newTestState(t)
	h := NewAdminTxHandler()
	grant := tx.NewTx(tx.TxTypeGrantRole, admin, 0, &tx.RoleTx{Role: types.RoleProposer, Account: donor})

	res, err := h.Process(context.Background(), st, grant)
	require.NoError(t, err)
	require.Len(t, res.Events, 1)
	assert.Equal(t, types.EventRoleGrantedType, res.Events[0].Type)

	res, err = h.Process(context.Background(), st, grant)
	require.NoError(t, err)
	assert.Empty(t, res.Events)

	_, err = h.Process(context.Background(), st, tx.NewTx(tx.TxTypePause, managerA, 0, &tx.PauseTx{}))
	assert.ErrorIs(t, err, state.ErrUnauthorized)
}

func TestEmergencyWithdrawHandler(t *testing.T) {
	st := newTestState(t)
	h := NewEmergencyWithdrawTxHandler()
	res, err := h.Process(context.Background(), st, tx.NewTx(tx.TxTypeEmergencyWithdraw, admin, 0,
		&tx.EmergencyWithdrawTx{To: managerA, Amount: uint256.NewInt(60)}))
	require.NoError(t, err)
	ev := types.DecodeEventEmergencyWithdraw(res.Events[0])
	require.NotNil(t, ev)
	assert.Equal(t, uint256.NewInt(60), ev.Amount)
	assert.Equal(t, uint256.NewInt(40), st.Balance())
}
