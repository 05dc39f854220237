package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	app_config "github.com/calehh/treasury-app/config"
	"github.com/calehh/treasury-app/crypto"
	"github.com/calehh/treasury-app/types"
	cmtos "github.com/cometbft/cometbft/libs/os"
	cmttypes "github.com/cometbft/cometbft/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
)

type printInfo struct {
	ChainID    string          `json:"chain_id"`
	NodeID     string          `json:"node_id"`
	Admin      string          `json:"admin"`
	AppMessage json.RawMessage `json:"app_message"`
}

func displayInfo(info printInfo) error {
	out, err := json.MarshalIndent(info, "", " ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(os.Stderr, "%s\n", out)
	return err
}

type initArguments struct {
	Home        string
	ChainID     string
	Overwrite   bool
	Managers    []string
	GenManagers int
	Required    uint64
	DailyLimit  string
	Holdings    string
}

var initArgs initArguments

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize validator, p2p, genesis and treasury configuration files",
	Args:  cobra.ExactArgs(0),
	RunE:  initRun,
}

func init() {
	initCmd.Flags().StringVar(&initArgs.Home, FlagHome, "", "home directory")
	initCmd.Flags().StringVar(&initArgs.ChainID, FlagChainID, "", "genesis file chain-id, if left blank will be randomly created")
	initCmd.Flags().BoolVarP(&initArgs.Overwrite, FlagOverwrite, "o", false, "overwrite the genesis.json file")
	initCmd.Flags().StringSliceVar(&initArgs.Managers, "managers", nil, "initial manager addresses")
	initCmd.Flags().IntVar(&initArgs.GenManagers, "gen-managers", 3, "number of manager keys to generate when --managers is empty")
	initCmd.Flags().Uint64Var(&initArgs.Required, "required", types.MinManagers, "required confirmations")
	initCmd.Flags().StringVar(&initArgs.DailyLimit, "daily-limit", "10000000000000000000", "daily withdrawal limit")
	initCmd.Flags().StringVar(&initArgs.Holdings, "holdings", "0", "initial treasury holdings")
}

func parseAddresses(list []string) ([]common.Address, error) {
	res := make([]common.Address, 0, len(list))
	for _, s := range list {
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("invalid address %q", s)
		}
		res = append(res, common.HexToAddress(s))
	}
	return res, nil
}

func initRun(cmd *cobra.Command, args []string) error {
	chainID := initArgs.ChainID
	if chainID == "" {
		chainID = fmt.Sprintf("treasury-%v", rand.Uint64())
	}
	appConfig := app_config.DefaultConfig(initArgs.Home)

	genFile := appConfig.GenesisFile()
	if !initArgs.Overwrite && cmtos.FileExists(genFile) {
		return fmt.Errorf("genesis file already exists: %v", genFile)
	}

	nodeID, pk, err := app_config.InitializeNodeValidatorFiles(appConfig, nil)
	if err != nil {
		return err
	}
	admin, err := crypto.LoadOrGenKey(appConfig.App.KeyFilePath())
	if err != nil {
		return err
	}

	managers, err := parseAddresses(initArgs.Managers)
	if err != nil {
		return err
	}
	if len(managers) == 0 {
		for i := 0; i < initArgs.GenManagers; i++ {
			k, err := crypto.LoadOrGenKey(filepath.Join(appConfig.RootDir, "config", fmt.Sprintf("manager_%d_key", i)))
			if err != nil {
				return err
			}
			managers = append(managers, k.Address())
		}
	}

	gen := types.DefaultTreasuryGenesis(admin.Address(), managers)
	gen.RequiredConfirmations = initArgs.Required
	if gen.DailyLimit, err = uint256.FromDecimal(initArgs.DailyLimit); err != nil {
		return fmt.Errorf("invalid daily limit: %w", err)
	}
	if gen.Holdings, err = uint256.FromDecimal(initArgs.Holdings); err != nil {
		return fmt.Errorf("invalid holdings: %w", err)
	}
	if err = gen.ValidateBasic(); err != nil {
		return err
	}
	appState, err := json.MarshalIndent(gen, "", "  ")
	if err != nil {
		return err
	}

	appGenesis := &types.GenesisDoc{
		GenesisTime:     time.Now(),
		ChainID:         chainID,
		ConsensusParams: cmttypes.DefaultConsensusParams(),
		InitialHeight:   1,
		Validators: []types.GenesisValidator{
			{Address: pk.Address(), PubKey: pk, Power: types.DefaultPower},
		},
		AppState: appState,
	}
	if err = types.ExportGenesisFile(appGenesis, genFile); err != nil {
		return fmt.Errorf("failed to export genesis file %v", err)
	}
	if err = app_config.WriteConfigFile(filepath.Join(appConfig.RootDir, "config", "config.toml"), appConfig); err != nil {
		return err
	}
	return displayInfo(printInfo{
		ChainID:    chainID,
		NodeID:     nodeID,
		Admin:      admin.Address().Hex(),
		AppMessage: appGenesis.AppState,
	})
}
