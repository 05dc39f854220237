package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/calehh/treasury-app/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/syndtr/goleveldb/leveldb"
)

const (
	ModifiedFlagNew = 1 << 0
	ModifiedFlagMod = 1 << 1
)

var (
	KeyState        = "s"
	KeyAccountBody  = "a%x"
	KeyProposalBody = "p%v"
	KeyRoster       = "m"
	KeyRoleMembers  = "r%d"
)

type StateHeader struct {
	Height                uint64       `json:"height"`
	ChainId               string       `json:"chainId"`
	Hash                  []byte       `json:"hash"`
	RootHash              []byte       `json:"rootHash"`
	Initialized           bool         `json:"initialized"`
	ProposalCount         uint64       `json:"proposalCount"`
	RequiredConfirmations uint64       `json:"requiredConfirmations"`
	Paused                bool         `json:"paused"`
	Holdings              *uint256.Int `json:"holdings"`
	DailyLimit            *uint256.Int `json:"dailyLimit"`
	WindowStart           uint64       `json:"windowStart"`
	Withdrawn             *uint256.Int `json:"withdrawn"`
}

func (h *StateHeader) GetHash() []byte {
	if h == nil {
		return nil
	}
	return h.Hash
}

func (h *StateHeader) Clone() *StateHeader {
	n := *h
	n.Hash = common.CopyBytes(h.Hash)
	n.RootHash = common.CopyBytes(h.RootHash)
	if h.Holdings != nil {
		n.Holdings = h.Holdings.Clone()
	}
	if h.DailyLimit != nil {
		n.DailyLimit = h.DailyLimit.Clone()
	}
	if h.Withdrawn != nil {
		n.Withdrawn = h.Withdrawn.Clone()
	}
	return &n
}

// State is the treasury aggregate. Every mutating method either applies all of
// its changes or none of them.
type State struct {
	logger   cmtlog.Logger
	db       *iavl.MutableTree
	dbVer    int64
	executor Executor

	header   *StateHeader
	acl      *AccessControl
	roster   *ManagerRoster
	pause    PauseSwitch
	limiter  *WithdrawalLimiter
	guard    ReentrancyGuard
	required uint64
	holdings *uint256.Int

	acnts         map[common.Address]*Account
	modifiedAcnts map[common.Address]uint32
	proposals     map[uint64]*types.Proposal
	modProposals  map[uint64]struct{}
}

func newState(db *iavl.MutableTree, logger cmtlog.Logger, executor Executor) *State {
	return &State{
		logger:        logger,
		db:            db,
		dbVer:         0,
		executor:      executor,
		header:        new(StateHeader),
		acl:           NewAccessControl(),
		roster:        NewManagerRoster(types.MinManagers),
		limiter:       NewWithdrawalLimiter(types.WithdrawalWindowBlocks, new(uint256.Int)),
		holdings:      new(uint256.Int),
		acnts:         make(map[common.Address]*Account),
		modifiedAcnts: make(map[common.Address]uint32),
		proposals:     make(map[uint64]*types.Proposal),
		modProposals:  make(map[uint64]struct{}),
	}
}

// nextState stages the state of the following block. Caches start empty and
// reload from the tree.
func (s *State) nextState() *State {
	n := &State{
		logger:        s.logger,
		db:            s.db,
		dbVer:         s.dbVer,
		executor:      s.executor,
		header:        s.header.Clone(),
		acl:           s.acl.Clone(),
		roster:        s.roster.Clone(),
		pause:         s.pause,
		limiter:       s.limiter.Clone(),
		required:      s.required,
		holdings:      s.holdings.Clone(),
		acnts:         make(map[common.Address]*Account),
		modifiedAcnts: make(map[common.Address]uint32),
		proposals:     make(map[uint64]*types.Proposal),
		modProposals:  make(map[uint64]struct{}),
	}
	if s.header.GetHash() != nil {
		n.header.Height = s.header.Height + 1
	}
	return n
}

func deepCopyMap[K comparable, V any](source map[K]V) map[K]V {
	res := make(map[K]V, len(source))
	for k, v := range source {
		switch x := any(v).(type) {
		case *Account:
			res[k] = any(x.Clone()).(V)
		case *types.Proposal:
			res[k] = any(x.Clone()).(V)
		default:
			res[k] = v
		}
	}
	return res
}

func deepCopySlice[E any](source []E) []E {
	res := make([]E, len(source))
	copy(res, source)
	return res
}

// Clone returns an independent copy sharing only the backing tree and executor.
func (s *State) Clone() *State {
	return &State{
		logger:        s.logger,
		db:            s.db,
		dbVer:         s.dbVer,
		executor:      s.executor,
		header:        s.header.Clone(),
		acl:           s.acl.Clone(),
		roster:        s.roster.Clone(),
		pause:         s.pause,
		limiter:       s.limiter.Clone(),
		guard:         s.guard,
		required:      s.required,
		holdings:      s.holdings.Clone(),
		acnts:         deepCopyMap(s.acnts),
		modifiedAcnts: deepCopyMap(s.modifiedAcnts),
		proposals:     deepCopyMap(s.proposals),
		modProposals:  deepCopyMap(s.modProposals),
	}
}

// atomic runs fn and restores the state as it was before fn if fn fails.
func (s *State) atomic(fn func() error) error {
	snap := s.Clone()
	if err := fn(); err != nil {
		*s = *snap
		return err
	}
	return nil
}

func (s *State) SetExecutor(executor Executor) {
	s.executor = executor
}

func isNotFound(err error) bool {
	return errors.Is(err, leveldb.ErrNotFound)
}

// get reads key as of the committed version the state was staged from. The
// working tree may already hold the writes of a block that is not committed.
func (s *State) get(key []byte) ([]byte, error) {
	if s.dbVer <= 0 {
		return nil, nil
	}
	tree, err := s.db.GetImmutable(s.dbVer)
	if err != nil {
		return nil, err
	}
	return tree.Get(key)
}

func (s *State) load() (err error) {
	val, err := s.get([]byte(KeyState))
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}
	if val == nil {
		return nil
	}
	err = json.Unmarshal(val, s.header)
	if err != nil {
		return
	}
	s.pause.paused = s.header.Paused
	s.required = s.header.RequiredConfirmations
	if s.header.Holdings != nil {
		s.holdings = s.header.Holdings.Clone()
	}
	limit := new(uint256.Int)
	if s.header.DailyLimit != nil {
		limit = s.header.DailyLimit
	}
	s.limiter = NewWithdrawalLimiter(types.WithdrawalWindowBlocks, limit)
	s.limiter.windowStart = s.header.WindowStart
	if s.header.Withdrawn != nil {
		s.limiter.withdrawn = s.header.Withdrawn.Clone()
	}

	val, err = s.get([]byte(KeyRoster))
	if err != nil && !isNotFound(err) {
		return err
	}
	if val != nil {
		var managers []common.Address
		if err = rlp.DecodeBytes(val, &managers); err != nil {
			return err
		}
		s.roster.setList(managers)
	}
	for _, role := range types.AllRoles {
		val, err = s.get([]byte(fmt.Sprintf(KeyRoleMembers, role)))
		if err != nil && !isNotFound(err) {
			return err
		}
		if val == nil {
			continue
		}
		var members []common.Address
		if err = rlp.DecodeBytes(val, &members); err != nil {
			return err
		}
		for _, m := range members {
			s.acl.grant(role, m)
		}
	}
	s.acl.dirty = false
	err = nil
	h := s.db.Hash()
	if h != nil {
		s.calcHash(h, true)
	}
	return
}

func (s *State) calcHash(rootHash []byte, update bool) (h common.Hash) {
	h = crypto.Keccak256Hash(rootHash)
	if update {
		s.header.RootHash = common.CopyBytes(rootHash)
		s.header.Hash = common.CopyBytes(h[:])
	}
	return
}

func (s *State) syncHeader() {
	s.header.RequiredConfirmations = s.required
	s.header.Paused = s.pause.paused
	s.header.Holdings = s.holdings.Clone()
	s.header.DailyLimit = s.limiter.limit.Clone()
	s.header.WindowStart = s.limiter.windowStart
	s.header.Withdrawn = s.limiter.withdrawn.Clone()
}

// Update writes every staged change into the working tree and returns the
// resulting app hash.
func (s *State) Update() (h common.Hash, err error) {
	var hash []byte
	defer func() {
		if hash == nil {
			s.db.Rollback()
		}
	}()
	s.syncHeader()
	var val []byte
	val, err = json.Marshal(s.header)
	if err != nil {
		return
	}
	_, err = s.db.Set([]byte(KeyState), val)
	if err != nil {
		return
	}

	if s.roster.dirty {
		val, err = rlp.EncodeToBytes(s.roster.managers)
		if err != nil {
			return
		}
		if _, err = s.db.Set([]byte(KeyRoster), val); err != nil {
			return
		}
	}
	if s.acl.dirty {
		for _, role := range types.AllRoles {
			val, err = rlp.EncodeToBytes(s.acl.Members(role))
			if err != nil {
				return
			}
			if _, err = s.db.Set([]byte(fmt.Sprintf(KeyRoleMembers, role)), val); err != nil {
				return
			}
		}
	}

	if len(s.modProposals) > 0 {
		idxs := make([]uint64, 0, len(s.modProposals))
		for idx := range s.modProposals {
			idxs = append(idxs, idx)
		}
		sort.Slice(idxs, func(i, j int) bool {
			return idxs[i] < idxs[j]
		})
		for _, idx := range idxs {
			val, err = json.Marshal(s.proposals[idx])
			if err != nil {
				return
			}
			if _, err = s.db.Set([]byte(fmt.Sprintf(KeyProposalBody, idx)), val); err != nil {
				return
			}
		}
	}

	if len(s.modifiedAcnts) > 0 {
		addrs := make([]common.Address, 0, len(s.modifiedAcnts))
		for addr := range s.modifiedAcnts {
			addrs = append(addrs, addr)
		}
		sort.Slice(addrs, func(i, j int) bool {
			return addrs[i].Cmp(addrs[j]) < 0
		})
		for _, addr := range addrs {
			val, err = json.Marshal(s.acnts[addr])
			if err != nil {
				return
			}
			if _, err = s.db.Set([]byte(fmt.Sprintf(KeyAccountBody, addr.Bytes())), val); err != nil {
				return
			}
		}
	}
	hash = s.db.WorkingHash()
	h = s.calcHash(hash, false)
	s.roster.dirty = false
	s.acl.dirty = false
	s.modProposals = make(map[uint64]struct{})
	s.modifiedAcnts = make(map[common.Address]uint32)
	return
}

func (s *State) save() (h common.Hash, err error) {
	hash, ver, err := s.db.SaveVersion()
	if err != nil {
		return h, err
	}

	s.dbVer = ver
	h = s.calcHash(hash, true)

	return
}

func (s *State) Header() *StateHeader {
	return s.header
}

func (s *State) Height() uint64 {
	return s.header.Height
}

func (s *State) Hash() (h common.Hash) {
	if s.header.Hash != nil {
		copy(h[:], s.header.Hash)
	}
	return
}

func (s *State) SetChainId(chainId string) {
	s.header.ChainId = chainId
}

func (s *State) ChainId() string {
	return s.header.ChainId
}

// SetHeight aligns the logical clock with the block being executed.
func (s *State) SetHeight(height uint64) {
	s.header.Height = height
}

func (s *State) readProposal(idx uint64) (*types.Proposal, error) {
	if p, ok := s.proposals[idx]; ok {
		return p, nil
	}
	if idx >= s.header.ProposalCount {
		return nil, fmt.Errorf("%w: %d", ErrProposalNotFound, idx)
	}
	val, err := s.get([]byte(fmt.Sprintf(KeyProposalBody, idx)))
	if err != nil && !isNotFound(err) {
		return nil, err
	}
	if val == nil {
		return nil, fmt.Errorf("%w: %d", ErrProposalNotFound, idx)
	}
	proposal := new(types.Proposal)
	if err = json.Unmarshal(val, proposal); err != nil {
		return nil, err
	}
	return proposal, nil
}

// getProposal loads a proposal for mutation and caches it.
func (s *State) getProposal(idx uint64) (*types.Proposal, error) {
	p, err := s.readProposal(idx)
	if err != nil {
		return nil, err
	}
	s.proposals[idx] = p
	return p, nil
}

func (s *State) markProposal(p *types.Proposal) {
	s.proposals[p.Index] = p
	s.modProposals[p.Index] = struct{}{}
}

func (s *State) readAccount(addr common.Address) (*Account, error) {
	if a, ok := s.acnts[addr]; ok {
		return a, nil
	}
	val, err := s.get([]byte(fmt.Sprintf(KeyAccountBody, addr.Bytes())))
	if err != nil && !isNotFound(err) {
		return nil, err
	}
	if val == nil {
		return nil, nil
	}
	acnt := new(Account)
	if err = json.Unmarshal(val, acnt); err != nil {
		return nil, err
	}
	return acnt, nil
}

// GetAccount returns the account of addr, creating an empty one in the cache
// when it does not exist yet.
func (s *State) GetAccount(addr common.Address) (*Account, error) {
	a, err := s.readAccount(addr)
	if err != nil {
		return nil, err
	}
	if a == nil {
		a = NewAccount(addr)
		s.modifiedAcnts[addr] |= ModifiedFlagNew
	}
	s.acnts[addr] = a
	return a, nil
}

func (s *State) markAccount(a *Account) {
	s.acnts[a.Address] = a
	s.modifiedAcnts[a.Address] |= ModifiedFlagMod
}

// Credit adds amount to the account of addr.
func (s *State) Credit(addr common.Address, amount *uint256.Int) error {
	a, err := s.GetAccount(addr)
	if err != nil {
		return err
	}
	if err = a.credit(amount); err != nil {
		return err
	}
	s.markAccount(a)
	return nil
}

// Nonce returns the next expected tx nonce of addr.
func (s *State) Nonce(addr common.Address) (uint64, error) {
	a, err := s.readAccount(addr)
	if err != nil || a == nil {
		return 0, err
	}
	return a.Nonce, nil
}

// IncNonce consumes one nonce of addr. It is applied outside of the operation
// so that a failed tx still burns its nonce.
func (s *State) IncNonce(addr common.Address) error {
	a, err := s.GetAccount(addr)
	if err != nil {
		return err
	}
	a.Nonce += 1
	s.markAccount(a)
	return nil
}
