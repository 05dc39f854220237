package state

// ReentrancyGuard admits one guarded region at a time.
type ReentrancyGuard struct {
	busy bool
}

// Enter marks the guard busy and returns the release func, which must run on
// every exit path.
func (g *ReentrancyGuard) Enter() (release func(), err error) {
	if g.busy {
		return nil, ErrReentrantCall
	}
	g.busy = true
	return func() { g.busy = false }, nil
}

func (g *ReentrancyGuard) Busy() bool {
	return g.busy
}
