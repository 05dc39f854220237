package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/calehh/treasury-app/types"
	abci "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	comethttp "github.com/cometbft/cometbft/rpc/client/http"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
)

type ChainIndexer struct {
	logger        cmtlog.Logger
	Url           string
	Height        int64
	db            *gorm.DB
	cli           *comethttp.HTTP
	eventHandlers map[string]eventHandler
}

func NewChainIndexer(logger cmtlog.Logger, dbPath string, chainUrl string) (*ChainIndexer, error) {
	logger.Info("NewChainIndexer", "dbPath", dbPath, "url", chainUrl)
	db, err := gorm.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Height{}, &Proposal{}, &Confirmation{}, &Withdrawal{}, &Deposit{}, &AdminAction{}).Error; err != nil {
		return nil, err
	}
	h := Height{Id: 1}
	if err = db.First(&h).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	c := &ChainIndexer{
		logger: logger.With("module", "indexer"),
		Url:    chainUrl,
		Height: int64(h.Height + 1),
		db:     db,
	}
	c.eventHandlers = map[string]eventHandler{
		types.EventDepositType:           c.handleEventDeposit,
		types.EventProposalCreatedType:   c.handleEventProposalCreated,
		types.EventProposalConfirmedType: c.handleEventProposalConfirmed,
		types.EventProposalExecutedType:  c.handleEventProposalExecuted,
		types.EventProposalCancelledType: c.handleEventProposalCancelled,
		types.EventEmergencyWithdrawType: c.handleEventEmergencyWithdraw,
		types.EventManagerAddedType:      c.handleAdminEvent,
		types.EventManagerRemovedType:    c.handleAdminEvent,
		types.EventRoleGrantedType:       c.handleAdminEvent,
		types.EventRoleRevokedType:       c.handleAdminEvent,
		types.EventPausedType:            c.handleAdminEvent,
		types.EventUnpausedType:          c.handleAdminEvent,
		types.EventThresholdUpdatedType:  c.handleAdminEvent,
		types.EventDailyLimitUpdatedType: c.handleAdminEvent,
	}
	return c, nil
}

func (c *ChainIndexer) Close() error {
	return c.db.Close()
}

type eventHandler func(db *gorm.DB, event abci.Event, height int64) error

func (c *ChainIndexer) handleEvent(db *gorm.DB, event abci.Event, height int64) error {
	if h, ok := c.eventHandlers[event.Type]; ok {
		return h(db, event, height)
	}
	return nil
}

var errDecodeEvent = errors.New("decode event fail")

func (c *ChainIndexer) handleEventDeposit(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventDeposit(event)
	if ev == nil {
		return errDecodeEvent
	}
	return db.Create(&Deposit{
		Depositor: ev.From.Hex(),
		Amount:    ev.Amount.Dec(),
		Height:    uint64(height),
	}).Error
}

func (c *ChainIndexer) handleEventProposalCreated(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventProposalCreated(event)
	if ev == nil {
		return errDecodeEvent
	}
	return db.Create(&Proposal{
		ProposalIndex: ev.ProposalIndex,
		Proposer:      ev.Proposer.Hex(),
		Target:        ev.Target.Hex(),
		Value:         ev.Value.Dec(),
		Description:   ev.Description,
		Deadline:      ev.Deadline,
		NewHeight:     uint64(height),
		Status:        types.ProposalStatusOpen.String(),
	}).Error
}

func (c *ChainIndexer) handleEventProposalConfirmed(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventProposalConfirmed(event)
	if ev == nil {
		return errDecodeEvent
	}
	err := db.Create(&Confirmation{
		Proposal: ev.ProposalIndex,
		Voter:    ev.Voter.Hex(),
		Count:    ev.Count,
		Height:   uint64(height),
	}).Error
	if err != nil {
		return err
	}
	return db.Model(&Proposal{}).Where("proposal_index = ?", ev.ProposalIndex).Update("confirmation_count", ev.Count).Error
}

func (c *ChainIndexer) handleEventProposalExecuted(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventProposalExecuted(event)
	if ev == nil {
		return errDecodeEvent
	}
	err := db.Create(&Withdrawal{
		Kind:      WithdrawalKindProposal,
		Proposal:  ev.ProposalIndex,
		Sender:    ev.Executor.Hex(),
		Recipient: ev.Target.Hex(),
		Amount:    ev.Value.Dec(),
		Height:    uint64(height),
	}).Error
	if err != nil {
		return err
	}
	return settleProposal(db, ev.ProposalIndex, types.ProposalStatusExecuted, height)
}

func (c *ChainIndexer) handleEventProposalCancelled(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventProposalCancelled(event)
	if ev == nil {
		return errDecodeEvent
	}
	return settleProposal(db, ev.ProposalIndex, types.ProposalStatusCancelled, height)
}

func settleProposal(db *gorm.DB, idx uint64, status types.ProposalStatus, height int64) error {
	return db.Model(&Proposal{}).Where("proposal_index = ?", idx).Updates(map[string]interface{}{
		"status":        status.String(),
		"settle_height": uint64(height),
	}).Error
}

func (c *ChainIndexer) handleEventEmergencyWithdraw(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventEmergencyWithdraw(event)
	if ev == nil {
		return errDecodeEvent
	}
	return db.Create(&Withdrawal{
		Kind:      WithdrawalKindEmergency,
		Sender:    ev.Admin.Hex(),
		Recipient: ev.To.Hex(),
		Amount:    ev.Amount.Dec(),
		Height:    uint64(height),
	}).Error
}

func (c *ChainIndexer) handleAdminEvent(db *gorm.DB, event abci.Event, height int64) error {
	attrs := make(map[string]string, len(event.Attributes))
	for _, a := range event.Attributes {
		attrs[a.Key] = a.Value
	}
	dat, err := json.Marshal(attrs)
	if err != nil {
		return err
	}
	return db.Create(&AdminAction{
		Kind:       event.Type,
		Attributes: string(dat),
		Height:     uint64(height),
	}).Error
}

// IndexBlock stores the events of the successful txs of one block and moves
// the cursor past it.
func (c *ChainIndexer) IndexBlock(height int64, results []*abci.ExecTxResult) error {
	tx := c.db.Begin()
	for _, res := range results {
		if res == nil || res.Code != abci.CodeTypeOK {
			continue
		}
		for _, event := range res.Events {
			if err := c.handleEvent(tx, event, height); err != nil {
				c.logger.Error("handle event fail", "type", event.Type, "height", height, "err", err)
				tx.Rollback()
				return err
			}
		}
	}
	if err := tx.Save(&Height{Id: 1, Height: uint64(height)}).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return err
	}
	c.Height = height + 1
	return nil
}

// connect builds the rpc client once. Start drops it after a failed call so
// the next tick reconnects.
func (c *ChainIndexer) connect() (err error) {
	if c.cli != nil {
		return nil
	}
	c.cli, err = comethttp.New(c.Url, "/websocket")
	return
}

// Start polls the node and indexes every committed block until ctx is done.
func (c *ChainIndexer) Start(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.connect(); err != nil {
				c.logger.Error("connect fail", "err", err)
				continue
			}
			b, err := c.cli.Status(ctx)
			if err != nil {
				c.logger.Error("get status fail", "err", err)
				c.cli = nil
				continue
			}
			for b.SyncInfo.LatestBlockHeight >= c.Height {
				height := c.Height
				results, err := c.cli.BlockResults(ctx, &height)
				if err != nil {
					c.logger.Error("get block results fail", "height", height, "err", err)
					break
				}
				if err = c.IndexBlock(height, results.TxsResults); err != nil {
					c.logger.Error("index block fail", "height", height, "err", err)
					break
				}
				c.logger.Debug("indexed", "height", height)
			}
		}
	}
}

func (c *ChainIndexer) getProposals(status string, proposer string, page int, pageSize int) ([]Proposal, uint64, error) {
	var proposals []Proposal
	q := c.db.Model(&Proposal{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if proposer != "" {
		q = q.Where("proposer = ?", proposer)
	}
	var total uint64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("proposal_index desc").Offset(page * pageSize).Limit(pageSize).Find(&proposals).Error
	if err != nil {
		return nil, 0, err
	}
	return proposals, total, nil
}

func (c *ChainIndexer) getProposalById(proposalId uint64) (Proposal, error) {
	var proposal Proposal
	err := c.db.Where("proposal_index = ?", proposalId).First(&proposal).Error
	return proposal, err
}

func (c *ChainIndexer) getConfirmationsByProposal(proposalId uint64) ([]Confirmation, error) {
	var confirmations []Confirmation
	err := c.db.Where("proposal = ?", proposalId).Order("id asc").Find(&confirmations).Error
	return confirmations, err
}

func (c *ChainIndexer) getWithdrawals(to string, page int, pageSize int) ([]Withdrawal, uint64, error) {
	var withdrawals []Withdrawal
	q := c.db.Model(&Withdrawal{})
	if to != "" {
		q = q.Where("recipient = ?", to)
	}
	var total uint64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("id desc").Offset(page * pageSize).Limit(pageSize).Find(&withdrawals).Error
	return withdrawals, total, err
}

func (c *ChainIndexer) getDeposits(from string, page int, pageSize int) ([]Deposit, uint64, error) {
	var deposits []Deposit
	q := c.db.Model(&Deposit{})
	if from != "" {
		q = q.Where("depositor = ?", from)
	}
	var total uint64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("id desc").Offset(page * pageSize).Limit(pageSize).Find(&deposits).Error
	return deposits, total, err
}

func (c *ChainIndexer) getAdminActions(page int, pageSize int) ([]AdminAction, uint64, error) {
	var actions []AdminAction
	var total uint64
	if err := c.db.Model(&AdminAction{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := c.db.Order("id desc").Offset(page * pageSize).Limit(pageSize).Find(&actions).Error
	return actions, total, err
}
