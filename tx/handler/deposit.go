package handler

import (
	"context"

	"github.com/calehh/treasury-app/state"
	"github.com/calehh/treasury-app/tx"
	"github.com/calehh/treasury-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
)

type DepositTxHandler struct{}

func NewDepositTxHandler() *DepositTxHandler {
	return &DepositTxHandler{}
}

func (h *DepositTxHandler) Check(ctx context.Context, st *state.State, btx *tx.TreasuryTx) (res *abcitypes.ResponseCheckTx, err error) {
	return checkOnClone(ctx, st, btx, h.Process)
}

func (h *DepositTxHandler) Process(ctx context.Context, st *state.State, btx *tx.TreasuryTx) (res *abcitypes.ExecTxResult, err error) {
	dtx, ok := btx.Tx.(*tx.DepositTx)
	if !ok {
		return nil, tx.ErrUnmatchedTxType
	}
	if err = st.Deposit(btx.From, dtx.Amount); err != nil {
		return nil, err
	}
	res = result(&types.EventDeposit{From: btx.From, Amount: dtx.Amount})
	return
}
