package app

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"testing"

	"github.com/calehh/treasury-app/config"
	"github.com/calehh/treasury-app/state"
	"github.com/calehh/treasury-app/tx"
	"github.com/calehh/treasury-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	"github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChainId = "treasury-test"

type signer struct {
	key   *ecdsa.PrivateKey
	addr  common.Address
	nonce uint64
}

func newSigner(t *testing.T) *signer {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return &signer{key: key, addr: crypto.PubkeyToAddress(key.PublicKey)}
}

func (s *signer) tx(t *testing.T, tp tx.TreasuryTxType, payload any) []byte {
	btx := tx.NewTx(tp, s.addr, s.nonce, payload)
	require.NoError(t, btx.Sign(s.key, testChainId))
	dat, err := tx.MarshalTreasuryTx(btx)
	require.NoError(t, err)
	s.nonce++
	return dat
}

type testChain struct {
	app      *TreasuryApp
	admin    *signer
	managers []*signer
	height   int64
}

func newTestChain(t *testing.T) *testChain {
	db, err := state.NewMemStateDB(log.NewNopLogger())
	require.NoError(t, err)
	c := &testChain{
		app:   newTreasuryApp(&config.TreasuryAppConfig{Home: t.TempDir()}, db, log.NewNopLogger()),
		admin: newSigner(t),
	}
	managers := make([]common.Address, 0, 3)
	for i := 0; i < 3; i++ {
		s := newSigner(t)
		c.managers = append(c.managers, s)
		managers = append(managers, s.addr)
	}
	gen := types.DefaultTreasuryGenesis(c.admin.addr, managers)
	gen.DailyLimit = uint256.NewInt(1000)
	gen.Holdings = uint256.NewInt(5000)
	appState, err := json.Marshal(gen)
	require.NoError(t, err)

	res, err := c.app.InitChain(context.Background(), &abcitypes.RequestInitChain{
		ChainId:       testChainId,
		InitialHeight: 1,
		AppStateBytes: appState,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.AppHash)
	return c
}

func (c *testChain) block(t *testing.T, txs ...[]byte) []*abcitypes.ExecTxResult {
	results := c.finalize(t, txs...)
	c.commit(t)
	return results
}

// finalize runs a block up to FinalizeBlock and leaves it uncommitted.
func (c *testChain) finalize(t *testing.T, txs ...[]byte) []*abcitypes.ExecTxResult {
	c.height++
	ctx := context.Background()
	prep, err := c.app.PrepareProposal(ctx, &abcitypes.RequestPrepareProposal{Txs: txs, Height: c.height})
	require.NoError(t, err)
	require.Len(t, prep.Txs, len(txs))
	proc, err := c.app.ProcessProposal(ctx, &abcitypes.RequestProcessProposal{Txs: txs, Height: c.height})
	require.NoError(t, err)
	require.Equal(t, abcitypes.ResponseProcessProposal_ACCEPT, proc.Status)

	res, err := c.app.FinalizeBlock(ctx, &abcitypes.RequestFinalizeBlock{Txs: txs, Height: c.height})
	require.NoError(t, err)
	return res.TxResults
}

func (c *testChain) commit(t *testing.T) {
	_, err := c.app.Commit(context.Background(), &abcitypes.RequestCommit{})
	require.NoError(t, err)
}

func (c *testChain) query(t *testing.T, path string, qr QueryRequest, v any) *abcitypes.ResponseQuery {
	dat, err := json.Marshal(qr)
	require.NoError(t, err)
	res, err := c.app.Query(context.Background(), &abcitypes.RequestQuery{Path: path, Data: dat})
	require.NoError(t, err)
	if res.Code == 0 && v != nil {
		require.NoError(t, json.Unmarshal(res.Value, v))
	}
	return res
}

func TestProposalFlow(t *testing.T) {
	c := newTestChain(t)
	a, b, m3 := c.managers[0], c.managers[1], c.managers[2]
	recipient := common.HexToAddress("0x0000000000000000000000000000000000000071")

	results := c.block(t,
		a.tx(t, tx.TxTypePropose, &tx.ProposeTx{Target: recipient, Value: uint256.NewInt(400), Description: "grant"}),
		a.tx(t, tx.TxTypeConfirm, &tx.ConfirmTx{Proposal: 0}),
		b.tx(t, tx.TxTypeConfirm, &tx.ConfirmTx{Proposal: 0}),
		m3.tx(t, tx.TxTypeConfirm, &tx.ConfirmTx{Proposal: 0}),
	)
	require.Len(t, results, 4)
	for _, r := range results[:3] {
		assert.Equal(t, uint32(0), r.Code, r.Log)
	}
	assert.Equal(t, state.Code(state.ErrAlreadyExecuted), results[3].Code)
	assert.Equal(t, string(state.CategoryState), results[3].Codespace)

	require.Len(t, results[2].Events, 2)
	executed := types.DecodeEventProposalExecuted(results[2].Events[1])
	require.NotNil(t, executed)
	assert.Equal(t, recipient, executed.Target)
	assert.Equal(t, uint256.NewInt(400), executed.Value)

	var bal BalanceResponse
	c.query(t, PathBalance, QueryRequest{}, &bal)
	assert.Equal(t, uint256.NewInt(4600), bal.Balance)

	var pr ProposalResponse
	c.query(t, PathProposal, QueryRequest{Proposal: 0}, &pr)
	assert.Equal(t, types.ProposalStatusExecuted.String(), pr.Status)
	assert.Equal(t, []common.Address{a.addr, b.addr}, pr.Proposal.Confirmers())

	var rem RemainingResponse
	c.query(t, PathRemaining, QueryRequest{}, &rem)
	assert.Equal(t, uint256.NewInt(600), rem.Remaining)

	var acnt state.Account
	c.query(t, PathAccount, QueryRequest{Account: m3.addr}, &acnt)
	assert.Equal(t, uint64(1), acnt.Nonce)
	c.query(t, PathAccount, QueryRequest{Account: recipient}, &acnt)
	assert.Equal(t, uint256.NewInt(400), acnt.Balance)

	var conf ConfirmedResponse
	c.query(t, PathConfirmed, QueryRequest{Proposal: 0, Account: m3.addr}, &conf)
	assert.False(t, conf.Confirmed)

	res := c.query(t, PathProposal, QueryRequest{Proposal: 9}, nil)
	assert.Equal(t, state.Code(state.ErrProposalNotFound), res.Code)
	res = c.query(t, "/nope/", QueryRequest{}, nil)
	assert.Equal(t, CodeQueryNotFound, res.Code)
}

func TestQueryBeforeCommit(t *testing.T) {
	c := newTestChain(t)
	a, b := c.managers[0], c.managers[1]
	recipient := common.HexToAddress("0x0000000000000000000000000000000000000072")

	results := c.block(t,
		a.tx(t, tx.TxTypePropose, &tx.ProposeTx{Target: recipient, Value: uint256.NewInt(100), Description: "grant"}),
		a.tx(t, tx.TxTypeConfirm, &tx.ConfirmTx{Proposal: 0}),
	)
	for _, r := range results {
		require.Equal(t, uint32(0), r.Code, r.Log)
	}
	c.block(t)

	results = c.finalize(t, b.tx(t, tx.TxTypeConfirm, &tx.ConfirmTx{Proposal: 0}))
	require.Equal(t, uint32(0), results[0].Code, results[0].Log)

	var pr ProposalResponse
	c.query(t, PathProposal, QueryRequest{Proposal: 0}, &pr)
	assert.Equal(t, types.ProposalStatusOpen.String(), pr.Status)
	var bal BalanceResponse
	c.query(t, PathBalance, QueryRequest{}, &bal)
	assert.Equal(t, uint256.NewInt(5000), bal.Balance)
	var acnt state.Account
	c.query(t, PathAccount, QueryRequest{Account: recipient}, &acnt)
	assert.True(t, acnt.Balance.IsZero())
	c.query(t, PathAccount, QueryRequest{Account: b.addr}, &acnt)
	assert.Equal(t, uint64(0), acnt.Nonce)

	c.commit(t)
	c.query(t, PathProposal, QueryRequest{Proposal: 0}, &pr)
	assert.Equal(t, types.ProposalStatusExecuted.String(), pr.Status)
	c.query(t, PathBalance, QueryRequest{}, &bal)
	assert.Equal(t, uint256.NewInt(4900), bal.Balance)
	c.query(t, PathAccount, QueryRequest{Account: recipient}, &acnt)
	assert.Equal(t, uint256.NewInt(100), acnt.Balance)
	c.query(t, PathAccount, QueryRequest{Account: b.addr}, &acnt)
	assert.Equal(t, uint64(1), acnt.Nonce)
}

func TestAdminFlow(t *testing.T) {
	c := newTestChain(t)
	newcomer := newSigner(t)

	results := c.block(t,
		c.admin.tx(t, tx.TxTypeAddManager, &tx.ManagerTx{Manager: newcomer.addr}),
		c.admin.tx(t, tx.TxTypeUpdateConfirmations, &tx.UpdateConfirmationsTx{Required: 4}),
		c.admin.tx(t, tx.TxTypeGrantRole, &tx.RoleTx{Role: types.RoleProposer, Account: common.HexToAddress("0x0e")}),
		c.admin.tx(t, tx.TxTypePause, &tx.PauseTx{}),
		c.managers[0].tx(t, tx.TxTypePropose, &tx.ProposeTx{Target: newcomer.addr, Value: uint256.NewInt(1), Description: "x"}),
	)
	for _, r := range results[:4] {
		assert.Equal(t, uint32(0), r.Code, r.Log)
	}
	assert.Equal(t, state.Code(state.ErrContractPaused), results[4].Code)

	var mr ManagersResponse
	c.query(t, PathManagers, QueryRequest{}, &mr)
	assert.Len(t, mr.Managers, 4)
	assert.Equal(t, uint64(4), mr.Required)

	var cfg ConfigResponse
	c.query(t, PathConfig, QueryRequest{}, &cfg)
	assert.True(t, cfg.Paused)
	assert.Equal(t, testChainId, cfg.ChainId)

	var roles RolesResponse
	c.query(t, PathRoles, QueryRequest{Account: newcomer.addr}, &roles)
	assert.Equal(t, []string{"treasury_manager", "proposer"}, roles.Roles)

	results = c.block(t,
		c.admin.tx(t, tx.TxTypeRemoveManager, &tx.ManagerTx{Manager: newcomer.addr}),
	)
	require.Equal(t, uint32(0), results[0].Code, results[0].Log)
	require.Len(t, results[0].Events, 2)
	assert.Equal(t, types.EventThresholdUpdatedType, results[0].Events[1].Type)
}

func TestCheckTx(t *testing.T) {
	c := newTestChain(t)
	a, b := c.managers[0], c.managers[1]
	ctx := context.Background()

	good := a.tx(t, tx.TxTypePropose, &tx.ProposeTx{Target: b.addr, Value: uint256.NewInt(1), Description: "x"})
	res, err := c.app.CheckTx(ctx, &abcitypes.RequestCheckTx{Tx: good})
	require.NoError(t, err)
	assert.Equal(t, uint32(0), res.Code, res.Log)

	empty := b.tx(t, tx.TxTypePropose, &tx.ProposeTx{Target: b.addr, Value: uint256.NewInt(1)})
	res, err = c.app.CheckTx(ctx, &abcitypes.RequestCheckTx{Tx: empty})
	require.NoError(t, err)
	assert.Equal(t, state.Code(state.ErrEmptyDescription), res.Code)

	forged := tx.NewTx(tx.TxTypePause, c.admin.addr, 0, &tx.PauseTx{})
	require.NoError(t, forged.Sign(a.key, testChainId))
	dat, err := tx.MarshalTreasuryTx(forged)
	require.NoError(t, err)
	res, err = c.app.CheckTx(ctx, &abcitypes.RequestCheckTx{Tx: dat})
	require.NoError(t, err)
	assert.Equal(t, state.Code(state.ErrTxSenderMismatch), res.Code)
	assert.Equal(t, string(state.CategoryAuthorization), res.Codespace)

	assert.False(t, c.app.db.State().Paused())
}

func TestFinalizeBlockHeightMismatch(t *testing.T) {
	c := newTestChain(t)
	_, err := c.app.FinalizeBlock(context.Background(), &abcitypes.RequestFinalizeBlock{Height: 5})
	assert.ErrorIs(t, err, state.ErrStateHeightUnmatched)
}
