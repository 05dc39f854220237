package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/calehh/treasury-app/config"
	"github.com/calehh/treasury-app/state"
	"github.com/calehh/treasury-app/tx"
	"github.com/calehh/treasury-app/tx/handler"
	"github.com/calehh/treasury-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cometbft/cometbft/store"
	"github.com/ethereum/go-ethereum/common"
)

type finalizeBlock struct {
	Height uint64
	Hash   common.Hash
}

func (b *finalizeBlock) Set(blk *abcitypes.RequestFinalizeBlock) {
	b.Height = uint64(blk.Height)
	b.Hash = common.BytesToHash(blk.Hash)
}

var _ abcitypes.Application = &TreasuryApp{}

type TreasuryApp struct {
	cfg    *config.TreasuryAppConfig
	logger cmtlog.Logger

	db       *state.StateDB
	lastBlk  finalizeBlock
	txHdlrs  map[tx.TreasuryTxType]handler.TxHandler
	queriers map[string]Querier

	st *state.State
}

func NewTreasuryApp(cfg *config.TreasuryAppConfig, logger cmtlog.Logger) (app *TreasuryApp, err error) {
	logger = logger.With("module", "app")

	dir := cfg.Home + "/data"
	db, err := state.NewStateDB(dir, logger)
	if err != nil {
		return nil, err
	}
	app = newTreasuryApp(cfg, db, logger)
	return
}

func newTreasuryApp(cfg *config.TreasuryAppConfig, db *state.StateDB, logger cmtlog.Logger) *TreasuryApp {
	app := &TreasuryApp{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		txHdlrs:  handler.Handlers(),
		queriers: make(map[string]Querier),
	}
	app.registerQuerier()
	return app
}

func (app *TreasuryApp) Start(bs *store.BlockStore) {
	height := app.db.Header().Height
	if height > 0 {
		blk := bs.LoadBlock(int64(height))
		if blk == nil {
			app.logger.Info("block not in store yet", "height", height)
			return
		}
		app.lastBlk.Height = height
		app.lastBlk.Hash = common.BytesToHash(blk.Hash())
	}
}

func (app *TreasuryApp) Stop() {
	err := app.db.Close()
	if err != nil {
		app.logger.Error("close db fail", "err", err)
	}
	app.logger.Info("treasury app stopped")
}

func (app *TreasuryApp) registerQuerier() {
	app.queriers[PathBalance] = &balanceQuerier{app.db}
	app.queriers[PathProposal] = &proposalQuerier{app.db}
	app.queriers[PathConfirmed] = &confirmedQuerier{app.db}
	app.queriers[PathManagers] = &managersQuerier{app.db}
	app.queriers[PathRemaining] = &remainingQuerier{app.db}
	app.queriers[PathAccount] = &accountQuerier{app.db}
	app.queriers[PathRoles] = &rolesQuerier{app.db}
	app.queriers[PathConfig] = &configQuerier{app.db}
}

func (app *TreasuryApp) InitChain(_ context.Context, chain *abcitypes.RequestInitChain) (res *abcitypes.ResponseInitChain, err error) {
	st := app.db.NewState()
	st.SetChainId(chain.ChainId)
	if chain.InitialHeight > 1 {
		st.SetHeight(uint64(chain.InitialHeight - 1))
	}
	var gen types.TreasuryGenesis
	if err = json.Unmarshal(chain.AppStateBytes, &gen); err != nil {
		app.logger.Error("InitChain decode app state fail", "err", err)
		return nil, fmt.Errorf("decode app state: %w", err)
	}
	if err = st.InitGenesis(&gen); err != nil {
		app.logger.Error("InitChain apply genesis fail", "err", err)
		return nil, err
	}
	var h common.Hash
	_, err = st.Update()
	if err != nil {
		app.logger.Error("InitChain update state fail", "err", err)
		return nil, err
	}
	h, err = app.db.SetState(st)
	if err != nil {
		app.logger.Error("InitChain apply state fail", "err", err)
		return nil, err
	}
	app.logger.Info("InitChain", "chainId", chain.ChainId, "managers", len(gen.Managers), "required", gen.RequiredConfirmations)
	return &abcitypes.ResponseInitChain{
		AppHash: h.Bytes(),
	}, nil
}

func (app *TreasuryApp) Info(ctx context.Context, info *abcitypes.RequestInfo) (*abcitypes.ResponseInfo, error) {
	header := app.db.Header()
	return &abcitypes.ResponseInfo{
		LastBlockHeight:  int64(header.Height),
		LastBlockAppHash: header.Hash,
	}, nil
}

func (app *TreasuryApp) ExtendVote(_ context.Context, extend *abcitypes.RequestExtendVote) (*abcitypes.ResponseExtendVote, error) {
	return &abcitypes.ResponseExtendVote{}, nil
}

func (app *TreasuryApp) VerifyVoteExtension(_ context.Context, verify *abcitypes.RequestVerifyVoteExtension) (*abcitypes.ResponseVerifyVoteExtension, error) {
	return &abcitypes.ResponseVerifyVoteExtension{Status: abcitypes.ResponseVerifyVoteExtension_ACCEPT}, nil
}

func (app *TreasuryApp) ApplySnapshotChunk(context.Context, *abcitypes.RequestApplySnapshotChunk) (*abcitypes.ResponseApplySnapshotChunk, error) {
	return &abcitypes.ResponseApplySnapshotChunk{}, nil
}

func (app *TreasuryApp) ListSnapshots(context.Context, *abcitypes.RequestListSnapshots) (*abcitypes.ResponseListSnapshots, error) {
	return &abcitypes.ResponseListSnapshots{}, nil
}

func (app *TreasuryApp) LoadSnapshotChunk(context.Context, *abcitypes.RequestLoadSnapshotChunk) (*abcitypes.ResponseLoadSnapshotChunk, error) {
	return &abcitypes.ResponseLoadSnapshotChunk{}, nil
}

func (app *TreasuryApp) OfferSnapshot(context.Context, *abcitypes.RequestOfferSnapshot) (*abcitypes.ResponseOfferSnapshot, error) {
	return &abcitypes.ResponseOfferSnapshot{}, nil
}
