package state

// PauseSwitch is the circuit breaker gating mutating ledger operations.
type PauseSwitch struct {
	paused bool
}

func (p *PauseSwitch) Paused() bool {
	return p.paused
}

func (p *PauseSwitch) Pause() error {
	if p.paused {
		return ErrAlreadyPaused
	}
	p.paused = true
	return nil
}

func (p *PauseSwitch) Unpause() error {
	if !p.paused {
		return ErrNotPaused
	}
	p.paused = false
	return nil
}

func (p *PauseSwitch) whenActive() error {
	if p.paused {
		return ErrContractPaused
	}
	return nil
}
