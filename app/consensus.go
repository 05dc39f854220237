package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/calehh/treasury-app/state"
	"github.com/calehh/treasury-app/tx"
	abcitypes "github.com/cometbft/cometbft/abci/types"
)

var (
	ErrUnexpectedTxProcess = errors.New("unexpected tx process")
)

func (app *TreasuryApp) getState() (st *state.State) {
	st = app.db.NewState()
	app.st = st
	return
}

func (app *TreasuryApp) parseTx(st *state.State, txDat []byte, allowNonceGap bool) (btx *tx.TreasuryTx, err error) {
	btx, err = tx.UnmarshalTreasuryTx(txDat)
	if err != nil {
		return
	}
	err = st.Verify(btx, allowNonceGap)
	return
}

func (app *TreasuryApp) CheckTx(ctx context.Context, check *abcitypes.RequestCheckTx) (res *abcitypes.ResponseCheckTx, err error) {
	res = &abcitypes.ResponseCheckTx{Code: 0}
	st := app.db.State()
	btx, err := app.parseTx(st, check.Tx, true)
	if err != nil {
		app.logger.Info("parse tx fail", "err", err)
		res.Code = state.Code(err)
		res.Codespace = string(state.Category(err))
		res.Log = err.Error()
		err = nil
		return
	}
	app.logger.Debug("check tx", "type", btx.Type, "from", btx.From, "nonce", btx.Nonce)
	h, ok := app.txHdlrs[btx.Type]
	if !ok {
		app.logger.Error("unsupported tx", "type", btx.Type)
		res.Code = state.CodeInternal
		res.Log = tx.ErrUnsupportedTxType.Error()
		return
	}
	res, err = h.Check(ctx, st, btx)
	if err != nil {
		app.logger.Info("check tx fail", "type", btx.Type, "err", err)
		res.Code = state.Code(err)
		res.Codespace = string(state.Category(err))
		res.Log = err.Error()
		err = nil
	}
	return
}

// PrepareProposal drops txs that no longer authenticate against the staged
// nonces. Txs that fail inside the engine are kept; they burn their nonce.
func (app *TreasuryApp) PrepareProposal(ctx context.Context, proposal *abcitypes.RequestPrepareProposal) (res *abcitypes.ResponsePrepareProposal, err error) {
	st := app.db.NewState()
	txs := make([][]byte, 0, len(proposal.Txs))
	var size int64
	for _, stx := range proposal.Txs {
		if proposal.MaxTxBytes > 0 && size+int64(len(stx)) > proposal.MaxTxBytes {
			break
		}
		btx, err := app.parseTx(st, stx, false)
		if err != nil {
			app.logger.Info("drop tx", "err", err)
			continue
		}
		if _, ok := app.txHdlrs[btx.Type]; !ok {
			continue
		}
		if err = st.IncNonce(btx.From); err != nil {
			app.logger.Error("inc nonce fail", "err", err)
			continue
		}
		size += int64(len(stx))
		txs = append(txs, stx)
	}
	return &abcitypes.ResponsePrepareProposal{Txs: txs}, nil
}

func (app *TreasuryApp) ProcessProposal(ctx context.Context, proposal *abcitypes.RequestProcessProposal) (res *abcitypes.ResponseProcessProposal, err error) {
	res = &abcitypes.ResponseProcessProposal{Status: abcitypes.ResponseProcessProposal_REJECT}
	st := app.db.NewState()
	for _, stx := range proposal.Txs {
		btx, err := app.parseTx(st, stx, false)
		if err != nil {
			app.logger.Error("proposal rejected", "height", proposal.Height, "err", err)
			return res, nil
		}
		if _, ok := app.txHdlrs[btx.Type]; !ok {
			app.logger.Error("proposal rejected, unsupported tx", "height", proposal.Height, "type", btx.Type)
			return res, nil
		}
		if err = st.IncNonce(btx.From); err != nil {
			return res, nil
		}
	}
	res.Status = abcitypes.ResponseProcessProposal_ACCEPT
	return res, nil
}

func failedResult(err error) *abcitypes.ExecTxResult {
	return &abcitypes.ExecTxResult{
		Code:      state.Code(err),
		Codespace: string(state.Category(err)),
		Log:       err.Error(),
	}
}

// deliver applies one tx. The nonce is consumed on the block state; the
// operation runs on a copy that is adopted only on success.
func (app *TreasuryApp) deliver(ctx context.Context, st *state.State, stx []byte) (*state.State, *abcitypes.ExecTxResult) {
	btx, err := app.parseTx(st, stx, false)
	if err != nil {
		app.logger.Error("unexpected tx, parse fail", "err", err)
		return st, failedResult(err)
	}
	h, ok := app.txHdlrs[btx.Type]
	if !ok {
		app.logger.Error("unexpected tx, no handler", "type", btx.Type)
		return st, failedResult(fmt.Errorf("%w: %v", ErrUnexpectedTxProcess, btx.Type))
	}
	if err = st.IncNonce(btx.From); err != nil {
		return st, failedResult(err)
	}
	working := st.Clone()
	result, err := h.Process(ctx, working, btx)
	if err != nil {
		app.logger.Info("tx failed", "type", btx.Type, "from", btx.From, "err", err)
		return st, failedResult(err)
	}
	if result == nil {
		result = &abcitypes.ExecTxResult{}
	}
	return working, result
}

func (app *TreasuryApp) FinalizeBlock(ctx context.Context, req *abcitypes.RequestFinalizeBlock) (*abcitypes.ResponseFinalizeBlock, error) {
	app.logger.Info("FinalizeBlock", "height", req.Height, "txs", len(req.Txs))
	app.lastBlk.Set(req)
	st := app.getState()
	if st.Height() != uint64(req.Height) {
		app.logger.Error("state height unmatched", "state", st.Height(), "block", req.Height)
		return nil, fmt.Errorf("%w: %d != %d", state.ErrStateHeightUnmatched, st.Height(), req.Height)
	}
	res := make([]*abcitypes.ExecTxResult, len(req.Txs))
	for i, stx := range req.Txs {
		st, res[i] = app.deliver(ctx, st, stx)
	}
	app.st = st
	h, err := st.Update()
	if err != nil {
		app.logger.Error("state update hash fail", "err", err)
		return nil, err
	}
	return &abcitypes.ResponseFinalizeBlock{
		TxResults: res,
		AppHash:   h.Bytes(),
	}, nil
}

func (app *TreasuryApp) Commit(ctx context.Context, commit *abcitypes.RequestCommit) (*abcitypes.ResponseCommit, error) {
	_, err := app.db.SetState(app.st)
	if err != nil {
		return nil, err
	}
	app.st = nil
	app.logger.Debug("Commit", "height", app.lastBlk.Height)
	return &abcitypes.ResponseCommit{}, nil
}
