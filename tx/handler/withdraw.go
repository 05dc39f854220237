package handler

import (
	"context"

	"github.com/calehh/treasury-app/state"
	"github.com/calehh/treasury-app/tx"
	"github.com/calehh/treasury-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
)

type EmergencyWithdrawTxHandler struct{}

func NewEmergencyWithdrawTxHandler() *EmergencyWithdrawTxHandler {
	return &EmergencyWithdrawTxHandler{}
}

func (h *EmergencyWithdrawTxHandler) Check(ctx context.Context, st *state.State, btx *tx.TreasuryTx) (res *abcitypes.ResponseCheckTx, err error) {
	return checkOnClone(ctx, st, btx, h.Process)
}

func (h *EmergencyWithdrawTxHandler) Process(ctx context.Context, st *state.State, btx *tx.TreasuryTx) (res *abcitypes.ExecTxResult, err error) {
	wtx, ok := btx.Tx.(*tx.EmergencyWithdrawTx)
	if !ok {
		return nil, tx.ErrUnmatchedTxType
	}
	if err = st.EmergencyWithdraw(btx.From, wtx.To, wtx.Amount); err != nil {
		return nil, err
	}
	res = result(&types.EventEmergencyWithdraw{Admin: btx.From, To: wtx.To, Amount: wtx.Amount})
	return
}
