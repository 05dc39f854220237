package types

import (
	"encoding/json"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type Proposal struct {
	Index       uint64
	Proposer    common.Address
	Target      common.Address
	Value       *uint256.Int
	Payload     []byte
	Description string
	Height      uint64
	Deadline    uint64
	Executed    bool
	Cancelled   bool

	// confirmers maps a voter to the order in which it confirmed
	confirmers        map[common.Address]uint64
	ConfirmationCount uint64
}

func NewProposal(index uint64, proposer, target common.Address, value *uint256.Int, payload []byte, description string, height, deadline uint64) *Proposal {
	return &Proposal{
		Index:       index,
		Proposer:    proposer,
		Target:      target,
		Value:       value.Clone(),
		Payload:     common.CopyBytes(payload),
		Description: description,
		Height:      height,
		Deadline:    deadline,
		confirmers:  make(map[common.Address]uint64),
	}
}

func (p *Proposal) HasConfirmed(voter common.Address) bool {
	_, ok := p.confirmers[voter]
	return ok
}

// AddConfirmation records voter and returns the new count. It is a no-op when
// voter already confirmed.
func (p *Proposal) AddConfirmation(voter common.Address) uint64 {
	if p.confirmers == nil {
		p.confirmers = make(map[common.Address]uint64)
	}
	if _, ok := p.confirmers[voter]; ok {
		return p.ConfirmationCount
	}
	p.confirmers[voter] = p.ConfirmationCount
	p.ConfirmationCount += 1
	return p.ConfirmationCount
}

// Confirmers returns the voters in confirmation order.
func (p *Proposal) Confirmers() []common.Address {
	voters := make([]common.Address, 0, len(p.confirmers))
	for v := range p.confirmers {
		voters = append(voters, v)
	}
	sort.Slice(voters, func(i, j int) bool {
		return p.confirmers[voters[i]] < p.confirmers[voters[j]]
	})
	return voters
}

func (p *Proposal) Expired(height uint64) bool {
	return height > p.Deadline
}

func (p *Proposal) Status(height uint64, required uint64) ProposalStatus {
	switch {
	case p.Executed:
		return ProposalStatusExecuted
	case p.Cancelled:
		return ProposalStatusCancelled
	case p.Expired(height):
		return ProposalStatusExpired
	case p.ConfirmationCount >= required:
		return ProposalStatusConfirmed
	default:
		return ProposalStatusOpen
	}
}

func (p *Proposal) Clone() *Proposal {
	n := *p
	n.Value = p.Value.Clone()
	n.Payload = common.CopyBytes(p.Payload)
	n.confirmers = make(map[common.Address]uint64, len(p.confirmers))
	for k, v := range p.confirmers {
		n.confirmers[k] = v
	}
	return &n
}

type proposalSt struct {
	Index             uint64           `json:"index"`
	Proposer          common.Address   `json:"proposer"`
	Target            common.Address   `json:"target"`
	Value             *uint256.Int     `json:"value"`
	Payload           []byte           `json:"payload"`
	Description       string           `json:"description"`
	Height            uint64           `json:"height"`
	Deadline          uint64           `json:"deadline"`
	Executed          bool             `json:"executed"`
	Cancelled         bool             `json:"cancelled"`
	Confirmers        []common.Address `json:"confirmers"`
	ConfirmationCount uint64           `json:"confirmationCount"`
}

func (p *Proposal) MarshalJSON() ([]byte, error) {
	o := proposalSt{
		Index:             p.Index,
		Proposer:          p.Proposer,
		Target:            p.Target,
		Value:             p.Value,
		Payload:           p.Payload,
		Description:       p.Description,
		Height:            p.Height,
		Deadline:          p.Deadline,
		Executed:          p.Executed,
		Cancelled:         p.Cancelled,
		Confirmers:        p.Confirmers(),
		ConfirmationCount: p.ConfirmationCount,
	}
	if o.Value == nil {
		o.Value = new(uint256.Int)
	}
	return json.Marshal(o)
}

func (p *Proposal) UnmarshalJSON(dat []byte) (err error) {
	var o proposalSt
	err = json.Unmarshal(dat, &o)
	if err != nil {
		return
	}
	p.Index = o.Index
	p.Proposer = o.Proposer
	p.Target = o.Target
	p.Value = o.Value
	if p.Value == nil {
		p.Value = new(uint256.Int)
	}
	p.Payload = o.Payload
	p.Description = o.Description
	p.Height = o.Height
	p.Deadline = o.Deadline
	p.Executed = o.Executed
	p.Cancelled = o.Cancelled
	p.confirmers = make(map[common.Address]uint64, len(o.Confirmers))
	for i, v := range o.Confirmers {
		p.confirmers[v] = uint64(i)
	}
	p.ConfirmationCount = uint64(len(p.confirmers))
	return
}

type ProposalStatus uint64

const (
	ProposalStatusOpen      ProposalStatus = 1
	ProposalStatusConfirmed ProposalStatus = 2
	ProposalStatusExecuted  ProposalStatus = 3
	ProposalStatusCancelled ProposalStatus = 4
	ProposalStatusExpired   ProposalStatus = 5
)

func (s ProposalStatus) String() string {
	switch s {
	case ProposalStatusOpen:
		return "open"
	case ProposalStatusConfirmed:
		return "confirmed"
	case ProposalStatusExecuted:
		return "executed"
	case ProposalStatusCancelled:
		return "cancelled"
	case ProposalStatusExpired:
		return "expired"
	}
	return "unknown"
}
