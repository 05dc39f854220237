package indexer

// sqlite models

type Height struct {
	Id     uint64 `gorm:"primary_key" json:"id"`
	Height uint64 `json:"height"`
}

type Proposal struct {
	Id                uint64 `gorm:"primary_key" json:"-"`
	ProposalIndex     uint64 `gorm:"unique_index" json:"proposal"`
	Proposer          string `gorm:"index" json:"proposer"`
	Target            string `json:"target"`
	Value             string `json:"value"`
	Description       string `json:"description"`
	Deadline          uint64 `json:"deadline"`
	NewHeight         uint64 `json:"new_height"`
	ConfirmationCount uint64 `json:"confirmation_count"`
	Status            string `gorm:"index" json:"status"`
	SettleHeight      uint64 `json:"settle_height"`
}

type Confirmation struct {
	Id       uint64 `gorm:"primary_key" json:"id"`
	Proposal uint64 `gorm:"index" json:"proposal"`
	Voter    string `json:"voter"`
	Count    uint64 `json:"count"`
	Height   uint64 `json:"height"`
}

const (
	WithdrawalKindProposal  = "proposal"
	WithdrawalKindEmergency = "emergency"
)

type Withdrawal struct {
	Id        uint64 `gorm:"primary_key" json:"id"`
	Kind      string `json:"kind"`
	Proposal  uint64 `json:"proposal"`
	Sender    string `json:"sender"`
	Recipient string `gorm:"index" json:"recipient"`
	Amount    string `json:"amount"`
	Height    uint64 `json:"height"`
}

type Deposit struct {
	Id        uint64 `gorm:"primary_key" json:"id"`
	Depositor string `gorm:"index" json:"depositor"`
	Amount    string `json:"amount"`
	Height    uint64 `json:"height"`
}

// AdminAction records roster, role, pause, threshold and limit changes.
type AdminAction struct {
	Id         uint64 `gorm:"primary_key" json:"id"`
	Kind       string `gorm:"index" json:"kind"`
	Attributes string `json:"attributes"`
	Height     uint64 `json:"height"`
}
