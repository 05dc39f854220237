package tx

import (
	"errors"
)

type TreasuryTxType uint8

const (
	TxTypeUnknown             TreasuryTxType = 0
	TxTypeDeposit             TreasuryTxType = 1
	TxTypePropose             TreasuryTxType = 2
	TxTypeConfirm             TreasuryTxType = 3
	TxTypeExecute             TreasuryTxType = 4
	TxTypeCancel              TreasuryTxType = 5
	TxTypeEmergencyWithdraw   TreasuryTxType = 6
	TxTypeAddManager          TreasuryTxType = 7
	TxTypeRemoveManager       TreasuryTxType = 8
	TxTypeUpdateConfirmations TreasuryTxType = 9
	TxTypeUpdateDailyLimit    TreasuryTxType = 10
	TxTypePause               TreasuryTxType = 11
	TxTypeUnpause             TreasuryTxType = 12
	TxTypeGrantRole           TreasuryTxType = 13
	TxTypeRevokeRole          TreasuryTxType = 14
)

func (t TreasuryTxType) String() string {
	switch t {
	case TxTypeDeposit:
		return "deposit"
	case TxTypePropose:
		return "propose"
	case TxTypeConfirm:
		return "confirm"
	case TxTypeExecute:
		return "execute"
	case TxTypeCancel:
		return "cancel"
	case TxTypeEmergencyWithdraw:
		return "emergency_withdraw"
	case TxTypeAddManager:
		return "add_manager"
	case TxTypeRemoveManager:
		return "remove_manager"
	case TxTypeUpdateConfirmations:
		return "update_confirmations"
	case TxTypeUpdateDailyLimit:
		return "update_daily_limit"
	case TxTypePause:
		return "pause"
	case TxTypeUnpause:
		return "unpause"
	case TxTypeGrantRole:
		return "grant_role"
	case TxTypeRevokeRole:
		return "revoke_role"
	}
	return "unknown"
}

const (
	TxVersion0 uint8 = 0
)

var (
	ErrInvalidTx            = errors.New("invalid tx")
	ErrUnsupportedTxType    = errors.New("unsupported tx type")
	ErrUnmatchedTxType      = errors.New("unmatched tx type")
	ErrUnsupportedTxVersion = errors.New("unsupported tx version")
	ErrMissingSig           = errors.New("missing signature")
)
