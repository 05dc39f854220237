package state

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Executor performs the outbound action of an executed proposal or an
// emergency withdrawal. The treasury holdings are already debited when Call
// runs; a returned error rolls the whole operation back. Call receives the
// in-flight state, so anything it invokes on st observes the guard as busy.
type Executor interface {
	Call(st *State, target common.Address, value *uint256.Int, payload []byte) error
}

// TransferExecutor credits value to the target account and ignores payload.
type TransferExecutor struct{}

func (TransferExecutor) Call(st *State, target common.Address, value *uint256.Int, payload []byte) error {
	if value.IsZero() {
		return nil
	}
	return st.Credit(target, value)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(st *State, target common.Address, value *uint256.Int, payload []byte) error

func (f ExecutorFunc) Call(st *State, target common.Address, value *uint256.Int, payload []byte) error {
	return f(st, target, value, payload)
}
