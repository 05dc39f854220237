package state

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Account is the spendable balance and tx nonce of a principal outside the
// treasury.
type Account struct {
	Address common.Address
	Balance *uint256.Int
	Nonce   uint64
}

type accountSt struct {
	Address common.Address `json:"address"`
	Balance *uint256.Int   `json:"balance"`
	Nonce   uint64         `json:"nonce"`
}

func NewAccount(addr common.Address) *Account {
	return &Account{
		Address: addr,
		Balance: new(uint256.Int),
	}
}

func (a *Account) MarshalJSON() (dat []byte, err error) {
	o := accountSt{
		Address: a.Address,
		Balance: a.Balance,
		Nonce:   a.Nonce,
	}
	if o.Balance == nil {
		o.Balance = new(uint256.Int)
	}
	return json.Marshal(o)
}

func (a *Account) UnmarshalJSON(dat []byte) (err error) {
	var o accountSt
	err = json.Unmarshal(dat, &o)
	if err != nil {
		return
	}
	a.Address = o.Address
	a.Balance = o.Balance
	if a.Balance == nil {
		a.Balance = new(uint256.Int)
	}
	a.Nonce = o.Nonce
	return
}

func (a *Account) Clone() *Account {
	return &Account{
		Address: a.Address,
		Balance: a.Balance.Clone(),
		Nonce:   a.Nonce,
	}
}

func (a *Account) credit(amount *uint256.Int) error {
	sum, overflow := new(uint256.Int).AddOverflow(a.Balance, amount)
	if overflow {
		return fmt.Errorf("%w: balance overflow", ErrInvalidAmount)
	}
	a.Balance = sum
	return nil
}

func (a *Account) debit(amount *uint256.Int) error {
	if a.Balance.Lt(amount) {
		return fmt.Errorf("%w: %v < %v", ErrInsufficientFunds, a.Balance.Dec(), amount.Dec())
	}
	a.Balance = new(uint256.Int).Sub(a.Balance, amount)
	return nil
}
