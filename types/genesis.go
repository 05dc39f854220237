package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/cometbft/cometbft/crypto"
	cmtjson "github.com/cometbft/cometbft/libs/json"
	cmttypes "github.com/cometbft/cometbft/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const (
	TreasuryModuleName = "treasury"
	DefaultPower       = 1000

	// MinManagers is the roster floor and the lowest admissible threshold.
	MinManagers = 2
	// ProposalExpiryBlocks is ~7 days of 6s blocks.
	ProposalExpiryBlocks = 100800
	// WithdrawalWindowBlocks is ~1 day of 6s blocks.
	WithdrawalWindowBlocks = 14400
)

// MaxDailyLimit is the hard ceiling for the daily withdrawal limit (1,000,000 units of 10^18).
var MaxDailyLimit = uint256.MustFromBig(new(big.Int).Mul(big.NewInt(1_000_000), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)))

var (
	ErrGenesisNoAdmin     = errors.New("genesis admin is empty")
	ErrGenesisFewManagers = errors.New("genesis managers below minimum")
	ErrGenesisDupManager  = errors.New("genesis manager listed twice")
)

type GenesisValidator struct {
	Address crypto.Address `json:"address"`
	PubKey  crypto.PubKey  `json:"pub_key"`
	Power   int64          `json:"power"`
	Name    string         `json:"name"`
}

// GenesisDoc defines the initial conditions for a CometBFT blockchain, in particular its validator set.
type GenesisDoc struct {
	GenesisTime     time.Time                 `json:"genesis_time"`
	ChainID         string                    `json:"chain_id"`
	InitialHeight   int64                     `json:"initial_height"`
	ConsensusParams *cmttypes.ConsensusParams `json:"consensus_params,omitempty"`
	Validators      []GenesisValidator        `json:"validators"`
	AppHash         []byte                    `json:"app_hash"`
	AppState        json.RawMessage           `json:"app_state"`
}

// SaveAs is a utility method for saving GenensisDoc as a JSON file.
func (genDoc *GenesisDoc) SaveAs(file string) error {
	genDocBytes, err := cmtjson.MarshalIndent(genDoc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(file, genDocBytes, 0o600)
}

func (ag *GenesisDoc) ValidateAndComplete() error {
	if ag.ChainID == "" {
		return errors.New("genesis doc must include non-empty chain_id")
	}

	if ag.InitialHeight < 0 {
		return fmt.Errorf("initial_height cannot be negative (got %v)", ag.InitialHeight)
	}

	if ag.InitialHeight == 0 {
		ag.InitialHeight = 1
	}

	if ag.GenesisTime.IsZero() {
		ag.GenesisTime = time.Now().Round(0).UTC()
	}

	return nil
}

func ExportGenesisFile(genesis *GenesisDoc, genFile string) error {
	if err := genesis.ValidateAndComplete(); err != nil {
		return err
	}
	return genesis.SaveAs(genFile)
}

type GenesisAccount struct {
	Address common.Address `json:"address"`
	Balance *uint256.Int   `json:"balance"`
}

// TreasuryGenesis is the app_state of the genesis document.
type TreasuryGenesis struct {
	Admin                 common.Address   `json:"admin"`
	Managers              []common.Address `json:"managers"`
	RequiredConfirmations uint64           `json:"required_confirmations"`
	DailyLimit            *uint256.Int     `json:"daily_limit"`
	Holdings              *uint256.Int     `json:"holdings"`
	Accounts              []GenesisAccount `json:"accounts"`
}

func DefaultTreasuryGenesis(admin common.Address, managers []common.Address) *TreasuryGenesis {
	return &TreasuryGenesis{
		Admin:                 admin,
		Managers:              managers,
		RequiredConfirmations: MinManagers,
		DailyLimit:            uint256.NewInt(0).Mul(uint256.NewInt(10), uint256.NewInt(1e18)),
		Holdings:              new(uint256.Int),
	}
}

// ValidateBasic checks the parts of the genesis that do not depend on engine state.
func (g *TreasuryGenesis) ValidateBasic() error {
	if g.Admin == (common.Address{}) {
		return ErrGenesisNoAdmin
	}
	if len(g.Managers) < MinManagers {
		return fmt.Errorf("%w: %d < %d", ErrGenesisFewManagers, len(g.Managers), MinManagers)
	}
	seen := make(map[common.Address]struct{}, len(g.Managers))
	for _, m := range g.Managers {
		if _, ok := seen[m]; ok {
			return fmt.Errorf("%w: %s", ErrGenesisDupManager, m.Hex())
		}
		seen[m] = struct{}{}
	}
	return nil
}
