package types

import (
	"fmt"
	"strconv"

	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const (
	EventDepositType           = "deposit"
	EventProposalCreatedType   = "proposal_created"
	EventProposalConfirmedType = "proposal_confirmed"
	EventProposalExecutedType  = "proposal_executed"
	EventProposalCancelledType = "proposal_cancelled"
	EventEmergencyWithdrawType = "emergency_withdraw"
	EventManagerAddedType      = "manager_added"
	EventManagerRemovedType    = "manager_removed"
	EventRoleGrantedType       = "role_granted"
	EventRoleRevokedType       = "role_revoked"
	EventPausedType            = "paused"
	EventUnpausedType          = "unpaused"
	EventThresholdUpdatedType  = "threshold_updated"
	EventDailyLimitUpdatedType = "daily_limit_updated"

	OutcomeSuccess = "success"
)

// Event is a notification emitted by a successful engine operation.
type Event interface {
	Encode() abci.Event
}

func newEvent(kind string, attrs ...abci.EventAttribute) abci.Event {
	attrs = append(attrs, abci.EventAttribute{Key: "outcome", Value: OutcomeSuccess, Index: false})
	return abci.Event{Type: kind, Attributes: attrs}
}

func attributes(e abci.Event) map[string]string {
	m := make(map[string]string, len(e.Attributes))
	for _, a := range e.Attributes {
		m[a.Key] = a.Value
	}
	return m
}

func amountString(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

func parseAmount(s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}
	return uint256.FromDecimal(s)
}

type EventDeposit struct {
	From   common.Address `json:"from"`
	Amount *uint256.Int   `json:"amount"`
}

func (e *EventDeposit) Encode() abci.Event {
	return newEvent(EventDepositType,
		abci.EventAttribute{Key: "from", Value: e.From.Hex(), Index: true},
		abci.EventAttribute{Key: "amount", Value: amountString(e.Amount), Index: false},
	)
}

func DecodeEventDeposit(originEvent abci.Event) *EventDeposit {
	if originEvent.Type != EventDepositType {
		return nil
	}
	attrs := attributes(originEvent)
	amount, err := parseAmount(attrs["amount"])
	if err != nil {
		return nil
	}
	return &EventDeposit{From: common.HexToAddress(attrs["from"]), Amount: amount}
}

type EventProposalCreated struct {
	ProposalIndex uint64         `json:"proposalIndex"`
	Proposer      common.Address `json:"proposer"`
	Target        common.Address `json:"target"`
	Value         *uint256.Int   `json:"value"`
	Deadline      uint64         `json:"deadline"`
	Description   string         `json:"description"`
}

func (e *EventProposalCreated) Encode() abci.Event {
	return newEvent(EventProposalCreatedType,
		abci.EventAttribute{Key: "proposal", Value: fmt.Sprintf("%v", e.ProposalIndex), Index: true},
		abci.EventAttribute{Key: "proposer", Value: e.Proposer.Hex(), Index: true},
		abci.EventAttribute{Key: "target", Value: e.Target.Hex(), Index: false},
		abci.EventAttribute{Key: "value", Value: amountString(e.Value), Index: false},
		abci.EventAttribute{Key: "deadline", Value: fmt.Sprintf("%v", e.Deadline), Index: false},
		abci.EventAttribute{Key: "description", Value: e.Description, Index: false},
	)
}

func DecodeEventProposalCreated(originEvent abci.Event) *EventProposalCreated {
	if originEvent.Type != EventProposalCreatedType {
		return nil
	}
	attrs := attributes(originEvent)
	event := &EventProposalCreated{}
	var err error
	if event.ProposalIndex, err = strconv.ParseUint(attrs["proposal"], 10, 64); err != nil {
		return nil
	}
	if event.Deadline, err = strconv.ParseUint(attrs["deadline"], 10, 64); err != nil {
		return nil
	}
	if event.Value, err = parseAmount(attrs["value"]); err != nil {
		return nil
	}
	event.Proposer = common.HexToAddress(attrs["proposer"])
	event.Target = common.HexToAddress(attrs["target"])
	event.Description = attrs["description"]
	return event
}

type EventProposalConfirmed struct {
	ProposalIndex uint64         `json:"proposalIndex"`
	Voter         common.Address `json:"voter"`
	Count         uint64         `json:"count"`
}

func (e *EventProposalConfirmed) Encode() abci.Event {
	return newEvent(EventProposalConfirmedType,
		abci.EventAttribute{Key: "proposal", Value: fmt.Sprintf("%v", e.ProposalIndex), Index: true},
		abci.EventAttribute{Key: "voter", Value: e.Voter.Hex(), Index: true},
		abci.EventAttribute{Key: "count", Value: fmt.Sprintf("%v", e.Count), Index: false},
	)
}

func DecodeEventProposalConfirmed(originEvent abci.Event) *EventProposalConfirmed {
	if originEvent.Type != EventProposalConfirmedType {
		return nil
	}
	attrs := attributes(originEvent)
	event := &EventProposalConfirmed{}
	var err error
	if event.ProposalIndex, err = strconv.ParseUint(attrs["proposal"], 10, 64); err != nil {
		return nil
	}
	if event.Count, err = strconv.ParseUint(attrs["count"], 10, 64); err != nil {
		return nil
	}
	event.Voter = common.HexToAddress(attrs["voter"])
	return event
}

type EventProposalExecuted struct {
	ProposalIndex uint64         `json:"proposalIndex"`
	Executor      common.Address `json:"executor"`
	Target        common.Address `json:"target"`
	Value         *uint256.Int   `json:"value"`
	Success       bool           `json:"success"`
}

func (e *EventProposalExecuted) Encode() abci.Event {
	return newEvent(EventProposalExecutedType,
		abci.EventAttribute{Key: "proposal", Value: fmt.Sprintf("%v", e.ProposalIndex), Index: true},
		abci.EventAttribute{Key: "executor", Value: e.Executor.Hex(), Index: false},
		abci.EventAttribute{Key: "target", Value: e.Target.Hex(), Index: true},
		abci.EventAttribute{Key: "value", Value: amountString(e.Value), Index: false},
		abci.EventAttribute{Key: "success", Value: strconv.FormatBool(e.Success), Index: false},
	)
}

func DecodeEventProposalExecuted(originEvent abci.Event) *EventProposalExecuted {
	if originEvent.Type != EventProposalExecutedType {
		return nil
	}
	attrs := attributes(originEvent)
	event := &EventProposalExecuted{}
	var err error
	if event.ProposalIndex, err = strconv.ParseUint(attrs["proposal"], 10, 64); err != nil {
		return nil
	}
	if event.Value, err = parseAmount(attrs["value"]); err != nil {
		return nil
	}
	if event.Success, err = strconv.ParseBool(attrs["success"]); err != nil {
		return nil
	}
	event.Executor = common.HexToAddress(attrs["executor"])
	event.Target = common.HexToAddress(attrs["target"])
	return event
}

type EventProposalCancelled struct {
	ProposalIndex uint64         `json:"proposalIndex"`
	Admin         common.Address `json:"admin"`
}

func (e *EventProposalCancelled) Encode() abci.Event {
	return newEvent(EventProposalCancelledType,
		abci.EventAttribute{Key: "proposal", Value: fmt.Sprintf("%v", e.ProposalIndex), Index: true},
		abci.EventAttribute{Key: "admin", Value: e.Admin.Hex(), Index: false},
	)
}

func DecodeEventProposalCancelled(originEvent abci.Event) *EventProposalCancelled {
	if originEvent.Type != EventProposalCancelledType {
		return nil
	}
	attrs := attributes(originEvent)
	proposal, err := strconv.ParseUint(attrs["proposal"], 10, 64)
	if err != nil {
		return nil
	}
	return &EventProposalCancelled{
		ProposalIndex: proposal,
		Admin:         common.HexToAddress(attrs["admin"]),
	}
}

type EventEmergencyWithdraw struct {
	Admin  common.Address `json:"admin"`
	To     common.Address `json:"to"`
	Amount *uint256.Int   `json:"amount"`
}

func (e *EventEmergencyWithdraw) Encode() abci.Event {
	return newEvent(EventEmergencyWithdrawType,
		abci.EventAttribute{Key: "admin", Value: e.Admin.Hex(), Index: true},
		abci.EventAttribute{Key: "to", Value: e.To.Hex(), Index: true},
		abci.EventAttribute{Key: "amount", Value: amountString(e.Amount), Index: false},
	)
}

func DecodeEventEmergencyWithdraw(originEvent abci.Event) *EventEmergencyWithdraw {
	if originEvent.Type != EventEmergencyWithdrawType {
		return nil
	}
	attrs := attributes(originEvent)
	amount, err := parseAmount(attrs["amount"])
	if err != nil {
		return nil
	}
	return &EventEmergencyWithdraw{
		Admin:  common.HexToAddress(attrs["admin"]),
		To:     common.HexToAddress(attrs["to"]),
		Amount: amount,
	}
}

type EventManager struct {
	Manager common.Address `json:"manager"`
	Sender  common.Address `json:"sender"`
	Added   bool           `json:"added"`
}

func (e *EventManager) Encode() abci.Event {
	kind := EventManagerRemovedType
	if e.Added {
		kind = EventManagerAddedType
	}
	return newEvent(kind,
		abci.EventAttribute{Key: "manager", Value: e.Manager.Hex(), Index: true},
		abci.EventAttribute{Key: "sender", Value: e.Sender.Hex(), Index: false},
	)
}

type EventRole struct {
	Role    Role           `json:"role"`
	Account common.Address `json:"account"`
	Sender  common.Address `json:"sender"`
	Granted bool           `json:"granted"`
}

func (e *EventRole) Encode() abci.Event {
	kind := EventRoleRevokedType
	if e.Granted {
		kind = EventRoleGrantedType
	}
	return newEvent(kind,
		abci.EventAttribute{Key: "role", Value: e.Role.String(), Index: true},
		abci.EventAttribute{Key: "account", Value: e.Account.Hex(), Index: true},
		abci.EventAttribute{Key: "sender", Value: e.Sender.Hex(), Index: false},
	)
}

type EventPause struct {
	Paused bool           `json:"paused"`
	Sender common.Address `json:"sender"`
}

func (e *EventPause) Encode() abci.Event {
	kind := EventUnpausedType
	if e.Paused {
		kind = EventPausedType
	}
	return newEvent(kind, abci.EventAttribute{Key: "sender", Value: e.Sender.Hex(), Index: true})
}

type EventThresholdUpdated struct {
	Old uint64 `json:"old"`
	New uint64 `json:"new"`
}

func (e *EventThresholdUpdated) Encode() abci.Event {
	return newEvent(EventThresholdUpdatedType,
		abci.EventAttribute{Key: "old", Value: fmt.Sprintf("%v", e.Old), Index: false},
		abci.EventAttribute{Key: "new", Value: fmt.Sprintf("%v", e.New), Index: false},
	)
}

type EventDailyLimitUpdated struct {
	Old *uint256.Int `json:"old"`
	New *uint256.Int `json:"new"`
}

func (e *EventDailyLimitUpdated) Encode() abci.Event {
	return newEvent(EventDailyLimitUpdatedType,
		abci.EventAttribute{Key: "old", Value: amountString(e.Old), Index: false},
		abci.EventAttribute{Key: "new", Value: amountString(e.New), Index: false},
	)
}
