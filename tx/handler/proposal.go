package handler

import (
	"context"

	"github.com/calehh/treasury-app/state"
	"github.com/calehh/treasury-app/tx"
	"github.com/calehh/treasury-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
)

// ProposalTxHandler opens and cancels proposals.
type ProposalTxHandler struct{}

func NewProposalTxHandler() *ProposalTxHandler {
	return &ProposalTxHandler{}
}

func (h *ProposalTxHandler) Check(ctx context.Context, st *state.State, btx *tx.TreasuryTx) (res *abcitypes.ResponseCheckTx, err error) {
	return checkOnClone(ctx, st, btx, h.Process)
}

func (h *ProposalTxHandler) Process(ctx context.Context, st *state.State, btx *tx.TreasuryTx) (res *abcitypes.ExecTxResult, err error) {
	switch wtx := btx.Tx.(type) {
	case *tx.ProposeTx:
		p, err := st.CreateProposal(btx.From, wtx.Target, wtx.Value, wtx.Payload, wtx.Description)
		if err != nil {
			return nil, err
		}
		return result(&types.EventProposalCreated{
			ProposalIndex: p.Index,
			Proposer:      p.Proposer,
			Target:        p.Target,
			Value:         p.Value,
			Deadline:      p.Deadline,
			Description:   p.Description,
		}), nil
	case *tx.CancelTx:
		if err = st.Cancel(btx.From, wtx.Proposal); err != nil {
			return nil, err
		}
		return result(&types.EventProposalCancelled{ProposalIndex: wtx.Proposal, Admin: btx.From}), nil
	}
	return nil, tx.ErrUnmatchedTxType
}
