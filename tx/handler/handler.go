package handler

import (
	"context"

	"github.com/calehh/treasury-app/state"
	"github.com/calehh/treasury-app/tx"
	"github.com/calehh/treasury-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
)

type TxHandler interface {
	Check(ctx context.Context, st *state.State, btx *tx.TreasuryTx) (res *abcitypes.ResponseCheckTx, err error)
	Process(ctx context.Context, st *state.State, btx *tx.TreasuryTx) (res *abcitypes.ExecTxResult, err error)
}

type processFunc func(ctx context.Context, st *state.State, btx *tx.TreasuryTx) (*abcitypes.ExecTxResult, error)

// checkOnClone dry-runs process against a throwaway copy of st.
func checkOnClone(ctx context.Context, st *state.State, btx *tx.TreasuryTx, process processFunc) (res *abcitypes.ResponseCheckTx, err error) {
	res = &abcitypes.ResponseCheckTx{Code: 0}
	_, err = process(ctx, st.Clone(), btx)
	return
}

func encodeEvents(events ...types.Event) []abcitypes.Event {
	res := make([]abcitypes.Event, 0, len(events))
	for _, e := range events {
		res = append(res, e.Encode())
	}
	return res
}

func result(events ...types.Event) *abcitypes.ExecTxResult {
	return &abcitypes.ExecTxResult{Events: encodeEvents(events...)}
}

// Handlers returns the handler of every supported tx type.
func Handlers() map[tx.TreasuryTxType]TxHandler {
	deposit := NewDepositTxHandler()
	proposal := NewProposalTxHandler()
	vote := NewVoteTxHandler()
	withdraw := NewEmergencyWithdrawTxHandler()
	admin := NewAdminTxHandler()
	return map[tx.TreasuryTxType]TxHandler{
		tx.TxTypeDeposit:             deposit,
		tx.TxTypePropose:             proposal,
		tx.TxTypeCancel:              proposal,
		tx.TxTypeConfirm:             vote,
		tx.TxTypeExecute:             vote,
		tx.TxTypeEmergencyWithdraw:   withdraw,
		tx.TxTypeAddManager:          admin,
		tx.TxTypeRemoveManager:       admin,
		tx.TxTypeUpdateConfirmations: admin,
		tx.TxTypeUpdateDailyLimit:    admin,
		tx.TxTypePause:               admin,
		tx.TxTypeUnpause:             admin,
		tx.TxTypeGrantRole:           admin,
		tx.TxTypeRevokeRole:          admin,
	}
}
