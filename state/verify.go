package state

import (
	"fmt"

	"github.com/calehh/treasury-app/tx"
)

// Verify authenticates btx against the committed nonce and the chain id.
// allowNonceGap admits future nonces so the mempool can queue them.
func (s *State) Verify(btx *tx.TreasuryTx, allowNonceGap bool) (err error) {
	nonce, err := s.Nonce(btx.From)
	if err != nil {
		return err
	}
	if !(nonce == btx.Nonce || (allowNonceGap && nonce < btx.Nonce)) {
		return fmt.Errorf("%w: have %d, want %d", ErrTxNonceInvalid, btx.Nonce, nonce)
	}
	sender, err := btx.Sender(s.header.ChainId)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTxSigInvalid, err)
	}
	if sender != btx.From {
		return fmt.Errorf("%w: signed by %v", ErrTxSenderMismatch, sender)
	}
	return nil
}
