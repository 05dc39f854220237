package handler

import (
	"context"

	"github.com/calehh/treasury-app/state"
	"github.com/calehh/treasury-app/tx"
	"github.com/calehh/treasury-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
)

// AdminTxHandler covers roster, role, threshold, limit and pause changes.
type AdminTxHandler struct{}

func NewAdminTxHandler() *AdminTxHandler {
	return &AdminTxHandler{}
}

func (h *AdminTxHandler) Check(ctx context.Context, st *state.State, btx *tx.TreasuryTx) (res *abcitypes.ResponseCheckTx, err error) {
	return checkOnClone(ctx, st, btx, h.Process)
}

func (h *AdminTxHandler) Process(ctx context.Context, st *state.State, btx *tx.TreasuryTx) (res *abcitypes.ExecTxResult, err error) {
	events, err := h.apply(st, btx)
	if err != nil {
		return nil, err
	}
	res = result(events...)
	return
}

func (h *AdminTxHandler) apply(st *state.State, btx *tx.TreasuryTx) ([]types.Event, error) {
	sender := btx.From
	switch btx.Type {
	case tx.TxTypeAddManager, tx.TxTypeRemoveManager:
		wtx, ok := btx.Tx.(*tx.ManagerTx)
		if !ok {
			return nil, tx.ErrUnmatchedTxType
		}
		if btx.Type == tx.TxTypeAddManager {
			if err := st.AddManager(sender, wtx.Manager); err != nil {
				return nil, err
			}
			return []types.Event{&types.EventManager{Manager: wtx.Manager, Sender: sender, Added: true}}, nil
		}
		old := st.RequiredConfirmations()
		changed, err := st.RemoveManager(sender, wtx.Manager)
		if err != nil {
			return nil, err
		}
		events := []types.Event{&types.EventManager{Manager: wtx.Manager, Sender: sender, Added: false}}
		if changed {
			events = append(events, &types.EventThresholdUpdated{Old: old, New: st.RequiredConfirmations()})
		}
		return events, nil
	case tx.TxTypeUpdateConfirmations:
		wtx, ok := btx.Tx.(*tx.UpdateConfirmationsTx)
		if !ok {
			return nil, tx.ErrUnmatchedTxType
		}
		old := st.RequiredConfirmations()
		if err := st.UpdateRequiredConfirmations(sender, wtx.Required); err != nil {
			return nil, err
		}
		return []types.Event{&types.EventThresholdUpdated{Old: old, New: wtx.Required}}, nil
	case tx.TxTypeUpdateDailyLimit:
		wtx, ok := btx.Tx.(*tx.UpdateDailyLimitTx)
		if !ok {
			return nil, tx.ErrUnmatchedTxType
		}
		old := st.DailyLimit()
		if err := st.UpdateDailyLimit(sender, wtx.Limit); err != nil {
			return nil, err
		}
		return []types.Event{&types.EventDailyLimitUpdated{Old: old, New: wtx.Limit}}, nil
	case tx.TxTypePause:
		if err := st.Pause(sender); err != nil {
			return nil, err
		}
		return []types.Event{&types.EventPause{Paused: true, Sender: sender}}, nil
	case tx.TxTypeUnpause:
		if err := st.Unpause(sender); err != nil {
			return nil, err
		}
		return []types.Event{&types.EventPause{Paused: false, Sender: sender}}, nil
	case tx.TxTypeGrantRole, tx.TxTypeRevokeRole:
		wtx, ok := btx.Tx.(*tx.RoleTx)
		if !ok {
			return nil, tx.ErrUnmatchedTxType
		}
		var changed bool
		var err error
		granted := btx.Type == tx.TxTypeGrantRole
		if granted {
			changed, err = st.GrantRole(sender, wtx.Role, wtx.Account)
		} else {
			changed, err = st.RevokeRole(sender, wtx.Role, wtx.Account)
		}
		if err != nil {
			return nil, err
		}
		if !changed {
			return nil, nil
		}
		return []types.Event{&types.EventRole{Role: wtx.Role, Account: wtx.Account, Sender: sender, Granted: granted}}, nil
	}
	return nil, tx.ErrUnsupportedTxType
}
