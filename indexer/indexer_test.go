package indexer

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/calehh/treasury-app/types"
	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin     = common.HexToAddress("0x00000000000000000000000000000000000000ad")
	managerA  = common.HexToAddress("0x000000000000000000000000000000000000000a")
	managerB  = common.HexToAddress("0x000000000000000000000000000000000000000b")
	recipient = common.HexToAddress("0x0000000000000000000000000000000000000071")
)

func newTestIndexer(t *testing.T) *ChainIndexer {
	c, err := NewChainIndexer(log.NewNopLogger(), filepath.Join(t.TempDir(), "indexer.db"), "http://127.0.0.1:26657")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func txResult(events ...types.Event) *abci.ExecTxResult {
	res := &abci.ExecTxResult{}
	for _, e := range events {
		res.Events = append(res.Events, e.Encode())
	}
	return res
}

func indexSample(t *testing.T, c *ChainIndexer) {
	require.NoError(t, c.IndexBlock(1, []*abci.ExecTxResult{
		txResult(&types.EventDeposit{From: managerA, Amount: uint256.NewInt(70)}),
		txResult(&types.EventProposalCreated{ProposalIndex: 0, Proposer: managerA, Target: recipient, Value: uint256.NewInt(5), Deadline: 100801, Description: "grant"}),
		txResult(&types.EventProposalCreated{ProposalIndex: 1, Proposer: managerB, Target: recipient, Value: uint256.NewInt(6), Deadline: 100801, Description: "other"}),
		{Code: 31, Events: []abci.Event{(&types.EventPause{Paused: true, Sender: admin}).Encode()}},
	}))
	require.NoError(t, c.IndexBlock(2, []*abci.ExecTxResult{
		txResult(&types.EventProposalConfirmed{ProposalIndex: 0, Voter: managerA, Count: 1}),
		txResult(
			&types.EventProposalConfirmed{ProposalIndex: 0, Voter: managerB, Count: 2},
			&types.EventProposalExecuted{ProposalIndex: 0, Executor: managerB, Target: recipient, Value: uint256.NewInt(5), Success: true},
		),
		txResult(&types.EventProposalCancelled{ProposalIndex: 1, Admin: admin}),
		txResult(&types.EventEmergencyWithdraw{Admin: admin, To: managerA, Amount: uint256.NewInt(9)}),
		txResult(&types.EventManager{Manager: recipient, Sender: admin, Added: true}),
	}))
}

func TestIndexBlock(t *testing.T) {
	c := newTestIndexer(t)
	indexSample(t, c)
	assert.Equal(t, int64(3), c.Height)

	p, err := c.getProposalById(0)
	require.NoError(t, err)
	assert.Equal(t, types.ProposalStatusExecuted.String(), p.Status)
	assert.Equal(t, uint64(2), p.ConfirmationCount)
	assert.Equal(t, uint64(2), p.SettleHeight)
	assert.Equal(t, recipient.Hex(), p.Target)

	p, err = c.getProposalById(1)
	require.NoError(t, err)
	assert.Equal(t, types.ProposalStatusCancelled.String(), p.Status)

	confirmations, err := c.getConfirmationsByProposal(0)
	require.NoError(t, err)
	require.Len(t, confirmations, 2)
	assert.Equal(t, managerA.Hex(), confirmations[0].Voter)

	withdrawals, total, err := c.getWithdrawals(recipient.Hex(), 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), total)
	assert.Equal(t, WithdrawalKindProposal, withdrawals[0].Kind)

	withdrawals, total, err = c.getWithdrawals("", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), total)
	assert.Equal(t, WithdrawalKindEmergency, withdrawals[0].Kind)

	actions, total, err := c.getAdminActions(0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), total)
	assert.Equal(t, types.EventManagerAddedType, actions[0].Kind)
}

func TestIndexerResumesFromCursor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "indexer.db")
	c, err := NewChainIndexer(log.NewNopLogger(), path, "")
	require.NoError(t, err)
	require.NoError(t, c.IndexBlock(7, nil))
	require.NoError(t, c.Close())

	c, err = NewChainIndexer(log.NewNopLogger(), path, "")
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, int64(8), c.Height)
}

func TestIndexerConnectReusesClient(t *testing.T) {
	c := newTestIndexer(t)
	require.NoError(t, c.connect())
	cli := c.cli
	require.NotNil(t, cli)
	require.NoError(t, c.connect())
	assert.Same(t, cli, c.cli)

	c.cli = nil
	require.NoError(t, c.connect())
	assert.NotNil(t, c.cli)
	assert.NotSame(t, cli, c.cli)
}

func TestIndexBlockRollsBack(t *testing.T) {
	c := newTestIndexer(t)
	bad := abci.Event{Type: types.EventDepositType, Attributes: []abci.EventAttribute{{Key: "amount", Value: "nan"}}}
	err := c.IndexBlock(1, []*abci.ExecTxResult{
		txResult(&types.EventDeposit{From: managerA, Amount: uint256.NewInt(1)}),
		{Events: []abci.Event{bad}},
	})
	require.Error(t, err)
	_, total, err := c.getDeposits("", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), total)
	assert.Equal(t, int64(1), c.Height)
}

func post(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	dat, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(dat))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestService(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := newTestIndexer(t)
	indexSample(t, c)
	h := NewService("127.0.0.1:0", c, 0, 0).Handler()

	w := post(t, h, "/getProposals", GetProposalsReq{Status: "executed"})
	require.Equal(t, http.StatusOK, w.Code)
	var proposals GetProposalResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &proposals))
	assert.Equal(t, uint64(1), proposals.Total)
	require.Len(t, proposals.Proposals, 1)
	assert.Len(t, proposals.Proposals[0].Confirmations, 2)

	id := uint64(1)
	w = post(t, h, "/getProposals", GetProposalsReq{ProposalId: &id})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &proposals))
	assert.Equal(t, "other", proposals.Proposals[0].Proposal.Description)

	id = 42
	w = post(t, h, "/getProposals", GetProposalsReq{ProposalId: &id})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = post(t, h, "/getDeposits", GetDepositsReq{Depositor: managerA.Hex()})
	require.Equal(t, http.StatusOK, w.Code)
	var deposits GetDepositsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &deposits))
	require.Len(t, deposits.Deposits, 1)
	assert.Equal(t, "70", deposits.Deposits[0].Amount)

	w = post(t, h, "/getConfirmations", GetConfirmationsReq{ProposalId: 1})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"confirmations":[]}`, w.Body.String())

	req := httptest.NewRequest(http.MethodPost, "/getWithdrawals", bytes.NewReader([]byte("{")))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServiceRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := newTestIndexer(t)
	h := NewService("127.0.0.1:0", c, 1, 2).Handler()

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, post(t, h, "/getAdminActions", PageReq{}).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
