package tx

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"

	"github.com/calehh/treasury-app/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// TreasuryTx is the signed envelope of every treasury operation. From is the
// claimed sender; it must match the key recovered from Sig.
type TreasuryTx struct {
	Version uint8          `json:"version"`
	Type    TreasuryTxType `json:"type"`
	Nonce   uint64         `json:"nonce"`
	From    common.Address `json:"from"`
	Tx      any            `json:"tx"`
	Sig     []byte         `json:"sig"`
}

type DepositTx struct {
	Amount *uint256.Int `json:"amount"`
}

type ProposeTx struct {
	Target      common.Address `json:"target"`
	Value       *uint256.Int   `json:"value"`
	Payload     []byte         `json:"payload"`
	Description string         `json:"description"`
}

type ConfirmTx struct {
	Proposal uint64 `json:"proposal"`
}

type ExecuteTx struct {
	Proposal uint64 `json:"proposal"`
}

type CancelTx struct {
	Proposal uint64 `json:"proposal"`
}

type EmergencyWithdrawTx struct {
	To     common.Address `json:"to"`
	Amount *uint256.Int   `json:"amount"`
}

type ManagerTx struct {
	Manager common.Address `json:"manager"`
}

type UpdateConfirmationsTx struct {
	Required uint64 `json:"required"`
}

type UpdateDailyLimitTx struct {
	Limit *uint256.Int `json:"limit"`
}

type PauseTx struct{}

type RoleTx struct {
	Role    types.Role     `json:"role"`
	Account common.Address `json:"account"`
}

type treasuryTxTmpl[Tx any] struct {
	Version uint8          `json:"version"`
	Type    TreasuryTxType `json:"type"`
	Nonce   uint64         `json:"nonce"`
	From    common.Address `json:"from"`
	Tx      Tx             `json:"tx"`
	Sig     []byte         `json:"sig"`
}

// SigData is the envelope encoded with ext in place of the signature.
func (tx *TreasuryTx) SigData(ext []byte) (dat []byte, err error) {
	ntx := *tx
	ntx.Sig = ext
	dat, err = json.Marshal(ntx)
	return
}

// SigHash is what the sender signs. Binding the chain id prevents replays on
// other networks.
func (tx *TreasuryTx) SigHash(chainId string) (h common.Hash, err error) {
	dat, err := tx.SigData([]byte(chainId))
	if err != nil {
		return
	}
	h = crypto.Keccak256Hash(dat)
	return
}

func (tx *TreasuryTx) Sign(key *ecdsa.PrivateKey, chainId string) (err error) {
	h, err := tx.SigHash(chainId)
	if err != nil {
		return
	}
	tx.Sig, err = crypto.Sign(h[:], key)
	return
}

// Sender recovers the signing address.
func (tx *TreasuryTx) Sender(chainId string) (addr common.Address, err error) {
	if len(tx.Sig) != crypto.SignatureLength {
		return addr, ErrMissingSig
	}
	h, err := tx.SigHash(chainId)
	if err != nil {
		return
	}
	pub, err := crypto.SigToPub(h[:], tx.Sig)
	if err != nil {
		return
	}
	addr = crypto.PubkeyToAddress(*pub)
	return
}

func parseTxType(dat []byte) TreasuryTxType {
	var tx struct {
		Type TreasuryTxType `json:"type"`
	}
	err := json.Unmarshal(dat, &tx)
	if err != nil {
		return TxTypeUnknown
	}
	return tx.Type
}

func unmarshalTreasuryTx[Tx any](dat []byte) (btx *TreasuryTx, err error) {
	var txt treasuryTxTmpl[Tx]
	err = json.Unmarshal(dat, &txt)
	if err != nil {
		return
	}
	if txt.Version != TxVersion0 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedTxVersion, txt.Version)
	}
	btx = new(TreasuryTx)
	btx.Version = txt.Version
	btx.Type = txt.Type
	btx.Nonce = txt.Nonce
	btx.From = txt.From
	btx.Tx = &txt.Tx
	btx.Sig = txt.Sig
	return
}

func UnmarshalTreasuryTx(dat []byte) (btx *TreasuryTx, err error) {
	tp := parseTxType(dat)
	switch tp {
	case TxTypeDeposit:
		return unmarshalTreasuryTx[DepositTx](dat)
	case TxTypePropose:
		return unmarshalTreasuryTx[ProposeTx](dat)
	case TxTypeConfirm:
		return unmarshalTreasuryTx[ConfirmTx](dat)
	case TxTypeExecute:
		return unmarshalTreasuryTx[ExecuteTx](dat)
	case TxTypeCancel:
		return unmarshalTreasuryTx[CancelTx](dat)
	case TxTypeEmergencyWithdraw:
		return unmarshalTreasuryTx[EmergencyWithdrawTx](dat)
	case TxTypeAddManager, TxTypeRemoveManager:
		return unmarshalTreasuryTx[ManagerTx](dat)
	case TxTypeUpdateConfirmations:
		return unmarshalTreasuryTx[UpdateConfirmationsTx](dat)
	case TxTypeUpdateDailyLimit:
		return unmarshalTreasuryTx[UpdateDailyLimitTx](dat)
	case TxTypePause, TxTypeUnpause:
		return unmarshalTreasuryTx[PauseTx](dat)
	case TxTypeGrantRole, TxTypeRevokeRole:
		return unmarshalTreasuryTx[RoleTx](dat)
	default:
		err = ErrUnsupportedTxType
	}
	return
}

func MarshalTreasuryTx(btx *TreasuryTx) (dat []byte, err error) {
	return json.Marshal(btx)
}

// NewTx builds an unsigned envelope. The payload type must match tp.
func NewTx(tp TreasuryTxType, from common.Address, nonce uint64, payload any) *TreasuryTx {
	return &TreasuryTx{
		Version: TxVersion0,
		Type:    tp,
		Nonce:   nonce,
		From:    from,
		Tx:      payload,
	}
}
