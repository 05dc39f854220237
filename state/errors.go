package state

import "errors"

// authorization
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrTxNonceInvalid   = errors.New("nonce invalid")
	ErrTxSigInvalid     = errors.New("signature invalid")
	ErrTxSenderMismatch = errors.New("sender mismatch")
)

// validation
var (
	ErrInvalidAddress           = errors.New("invalid address")
	ErrEmptyDescription         = errors.New("empty description")
	ErrInsufficientBalance      = errors.New("insufficient balance")
	ErrInvalidConfirmationCount = errors.New("invalid confirmation count")
	ErrLimitTooHigh             = errors.New("limit too high")
	ErrInvalidAmount            = errors.New("invalid amount")
	ErrInvalidRole              = errors.New("invalid role")
	ErrInsufficientFunds        = errors.New("insufficient funds")
)

// state
var (
	ErrProposalNotFound       = errors.New("proposal noexists")
	ErrAlreadyConfirmed       = errors.New("already confirmed")
	ErrAlreadyCancelled       = errors.New("already cancelled")
	ErrAlreadyExecuted        = errors.New("already executed")
	ErrProposalCancelled      = errors.New("proposal cancelled")
	ErrProposalExpired        = errors.New("proposal expired")
	ErrNotEnoughConfirmations = errors.New("not enough confirmations")
	ErrContractPaused         = errors.New("contract paused")
	ErrAlreadyPaused          = errors.New("already paused")
	ErrNotPaused              = errors.New("not paused")
	ErrStateHeightUnmatched   = errors.New("state height unmatched")
	ErrGenesisApplied         = errors.New("genesis already applied")
)

// resource
var (
	ErrDailyLimitExceeded = errors.New("daily limit exceeded")
	ErrBelowMinimum       = errors.New("below minimum managers")
	ErrAlreadyManager     = errors.New("already manager")
	ErrNotManager         = errors.New("not manager")
	ErrRosterRole         = errors.New("role held through manager roster")
)

// execution
var (
	ErrExecutionFailed = errors.New("execution failed")
	ErrReentrantCall   = errors.New("reentrant call")
)

type ErrorCategory string

const (
	CategoryNone          ErrorCategory = ""
	CategoryAuthorization ErrorCategory = "authorization"
	CategoryValidation    ErrorCategory = "validation"
	CategoryState         ErrorCategory = "state"
	CategoryResource      ErrorCategory = "resource"
	CategoryExecution     ErrorCategory = "execution"
	CategoryInternal      ErrorCategory = "internal"
)

type errorKind struct {
	err      error
	code     uint32
	category ErrorCategory
}

// errorKinds is ordered; the first match wins.
var errorKinds = []errorKind{
	{ErrReentrantCall, 50, CategoryExecution},
	{ErrExecutionFailed, 51, CategoryExecution},

	{ErrUnauthorized, 10, CategoryAuthorization},
	{ErrTxNonceInvalid, 11, CategoryAuthorization},
	{ErrTxSigInvalid, 12, CategoryAuthorization},
	{ErrTxSenderMismatch, 13, CategoryAuthorization},

	{ErrInvalidAddress, 20, CategoryValidation},
	{ErrEmptyDescription, 21, CategoryValidation},
	{ErrInsufficientBalance, 22, CategoryValidation},
	{ErrInvalidConfirmationCount, 23, CategoryValidation},
	{ErrLimitTooHigh, 24, CategoryValidation},
	{ErrInvalidAmount, 25, CategoryValidation},
	{ErrInvalidRole, 26, CategoryValidation},
	{ErrInsufficientFunds, 27, CategoryValidation},

	{ErrProposalNotFound, 30, CategoryState},
	{ErrAlreadyConfirmed, 31, CategoryState},
	{ErrAlreadyCancelled, 32, CategoryState},
	{ErrAlreadyExecuted, 33, CategoryState},
	{ErrProposalCancelled, 34, CategoryState},
	{ErrProposalExpired, 35, CategoryState},
	{ErrNotEnoughConfirmations, 36, CategoryState},
	{ErrContractPaused, 37, CategoryState},
	{ErrAlreadyPaused, 38, CategoryState},
	{ErrNotPaused, 39, CategoryState},

	{ErrDailyLimitExceeded, 40, CategoryResource},
	{ErrBelowMinimum, 41, CategoryResource},
	{ErrAlreadyManager, 42, CategoryResource},
	{ErrNotManager, 43, CategoryResource},
	{ErrRosterRole, 44, CategoryResource},
}

// CodeInternal is reported for errors outside the engine taxonomy.
const CodeInternal uint32 = 1

// Code maps err to a stable ABCI result code. Zero means success.
func Code(err error) uint32 {
	if err == nil {
		return 0
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.code
		}
	}
	return CodeInternal
}

func Category(err error) ErrorCategory {
	if err == nil {
		return CategoryNone
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.category
		}
	}
	return CategoryInternal
}
