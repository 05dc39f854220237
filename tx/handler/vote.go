package handler

import (
	"context"

	"github.com/calehh/treasury-app/state"
	"github.com/calehh/treasury-app/tx"
	"github.com/calehh/treasury-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
)

// VoteTxHandler handles confirmations and explicit execution.
type VoteTxHandler struct{}

func NewVoteTxHandler() *VoteTxHandler {
	return &VoteTxHandler{}
}

func (h *VoteTxHandler) Check(ctx context.Context, st *state.State, btx *tx.TreasuryTx) (res *abcitypes.ResponseCheckTx, err error) {
	return checkOnClone(ctx, st, btx, h.Process)
}

func (h *VoteTxHandler) Process(ctx context.Context, st *state.State, btx *tx.TreasuryTx) (res *abcitypes.ExecTxResult, err error) {
	var r *state.ExecutionResult
	events := make([]types.Event, 0, 2)
	switch wtx := btx.Tx.(type) {
	case *tx.ConfirmTx:
		r, err = st.Confirm(btx.From, wtx.Proposal)
		if err != nil {
			return nil, err
		}
		events = append(events, &types.EventProposalConfirmed{
			ProposalIndex: r.Index,
			Voter:         btx.From,
			Count:         r.ConfirmationCount,
		})
	case *tx.ExecuteTx:
		r, err = st.Execute(btx.From, wtx.Proposal)
		if err != nil {
			return nil, err
		}
	default:
		return nil, tx.ErrUnmatchedTxType
	}
	if r.Executed {
		events = append(events, &types.EventProposalExecuted{
			ProposalIndex: r.Index,
			Executor:      btx.From,
			Target:        r.Target,
			Value:         r.Value,
			Success:       true,
		})
	}
	res = result(events...)
	return
}
