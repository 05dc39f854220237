package state

import (
	"fmt"

	"github.com/holiman/uint256"
)

// WithdrawalLimiter caps the value moved per fixed window of blocks. The
// window rolls over lazily on the first use after it elapsed.
type WithdrawalLimiter struct {
	duration    uint64
	limit       *uint256.Int
	windowStart uint64
	withdrawn   *uint256.Int
}

func NewWithdrawalLimiter(duration uint64, limit *uint256.Int) *WithdrawalLimiter {
	return &WithdrawalLimiter{
		duration:  duration,
		limit:     limit.Clone(),
		withdrawn: new(uint256.Int),
	}
}

func (l *WithdrawalLimiter) Limit() *uint256.Int {
	return l.limit.Clone()
}

func (l *WithdrawalLimiter) Duration() uint64 {
	return l.duration
}

func (l *WithdrawalLimiter) WindowStart() uint64 {
	return l.windowStart
}

func (l *WithdrawalLimiter) Withdrawn() *uint256.Int {
	return l.withdrawn.Clone()
}

func (l *WithdrawalLimiter) rolledOver(now uint64) bool {
	return now >= l.windowStart+l.duration
}

// CheckAndConsume rolls the window over if it elapsed, then books amount
// against it.
func (l *WithdrawalLimiter) CheckAndConsume(now uint64, amount *uint256.Int) error {
	if l.rolledOver(now) {
		l.windowStart = now
		l.withdrawn = new(uint256.Int)
	}
	total, overflow := new(uint256.Int).AddOverflow(l.withdrawn, amount)
	if overflow || total.Gt(l.limit) {
		return fmt.Errorf("%w: %v + %v > %v", ErrDailyLimitExceeded, l.withdrawn.Dec(), amount.Dec(), l.limit.Dec())
	}
	l.withdrawn = total
	return nil
}

// Remaining reports what could be withdrawn at now without mutating the window.
func (l *WithdrawalLimiter) Remaining(now uint64) *uint256.Int {
	if l.rolledOver(now) {
		return l.limit.Clone()
	}
	if l.withdrawn.Gt(l.limit) {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(l.limit, l.withdrawn)
}

func (l *WithdrawalLimiter) SetLimit(limit *uint256.Int, ceiling *uint256.Int) error {
	if limit.Gt(ceiling) {
		return fmt.Errorf("%w: %v > %v", ErrLimitTooHigh, limit.Dec(), ceiling.Dec())
	}
	l.limit = limit.Clone()
	return nil
}

func (l *WithdrawalLimiter) Clone() *WithdrawalLimiter {
	return &WithdrawalLimiter{
		duration:    l.duration,
		limit:       l.limit.Clone(),
		windowStart: l.windowStart,
		withdrawn:   l.withdrawn.Clone(),
	}
}
