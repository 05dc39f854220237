package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cometbft/cometbft/config"
	"github.com/cometbft/cometbft/crypto"
	"github.com/cometbft/cometbft/p2p"
	"github.com/cometbft/cometbft/privval"
)

const (
	DefaultIndexerListen = "127.0.0.1:8089"
	DefaultIndexerDB     = "indexer.db"
	DefaultKeyFile       = "config/treasury_key"
	DefaultIndexerRPS    = 20
	DefaultIndexerBurst  = 40
)

// TreasuryAppConfig is the [treasury] section of config.toml.
type TreasuryAppConfig struct {
	Home           string  `mapstructure:"-"`
	TimeoutCommit  uint64  `mapstructure:"-"`
	IndexerEnabled bool    `mapstructure:"indexer_enabled"`
	IndexerListen  string  `mapstructure:"indexer_listen"`
	IndexerDB      string  `mapstructure:"indexer_db"`
	IndexerRPS     float64 `mapstructure:"indexer_rps"`
	IndexerBurst   int     `mapstructure:"indexer_burst"`
	KeyFile        string  `mapstructure:"key_file"`
}

func DefaultTreasuryAppConfig(home string) *TreasuryAppConfig {
	return &TreasuryAppConfig{
		Home:           home,
		IndexerEnabled: true,
		IndexerListen:  DefaultIndexerListen,
		IndexerDB:      DefaultIndexerDB,
		IndexerRPS:     DefaultIndexerRPS,
		IndexerBurst:   DefaultIndexerBurst,
		KeyFile:        DefaultKeyFile,
	}
}

// IndexerDBPath resolves IndexerDB against the home directory.
func (c *TreasuryAppConfig) IndexerDBPath() string {
	if filepath.IsAbs(c.IndexerDB) {
		return c.IndexerDB
	}
	return filepath.Join(c.Home, c.IndexerDB)
}

func (c *TreasuryAppConfig) KeyFilePath() string {
	if filepath.IsAbs(c.KeyFile) {
		return c.KeyFile
	}
	return filepath.Join(c.Home, c.KeyFile)
}

func (c *TreasuryAppConfig) ValidateBasic() error {
	if c.IndexerEnabled && c.IndexerListen == "" {
		return fmt.Errorf("indexer_listen is required when the indexer is enabled")
	}
	return nil
}

type Config struct {
	*config.Config `mapstructure:",squash"`

	App *TreasuryAppConfig `mapstructure:"treasury"`
}

func DefaultHome() string {
	return os.ExpandEnv("$HOME/.treasury")
}

func DefaultConfig(home string) *Config {
	if len(home) == 0 {
		home = DefaultHome()
	}
	config := &Config{
		DefaultCometConfig(),
		DefaultTreasuryAppConfig(home),
	}
	config.SetRoot(home)
	_ = os.MkdirAll(home+"/config", 0755)
	return config
}

func (c *Config) ValidateBasic() error {
	if err := c.Config.ValidateBasic(); err != nil {
		return err
	}
	return c.App.ValidateBasic()
}

func InitializeNodeValidatorFiles(config *Config, privKey crypto.PrivKey) (nodeID string, pk crypto.PubKey, err error) {
	nodeKey, err := p2p.LoadOrGenNodeKey(config.NodeKeyFile())
	if err != nil {
		return "", nil, err
	}
	nodeID = string(nodeKey.ID())

	pvKeyFile := config.PrivValidatorKeyFile()
	if err := os.MkdirAll(filepath.Dir(pvKeyFile), 0o777); err != nil {
		return "", nil, fmt.Errorf("could not create directory %q: %w", filepath.Dir(pvKeyFile), err)
	}

	pvStateFile := config.PrivValidatorStateFile()
	if err := os.MkdirAll(filepath.Dir(pvStateFile), 0o777); err != nil {
		return "", nil, fmt.Errorf("could not create directory %q: %w", filepath.Dir(pvStateFile), err)
	}

	var filePV *privval.FilePV
	if privKey == nil {
		filePV = privval.LoadOrGenFilePV(pvKeyFile, pvStateFile)
	} else {
		filePV = privval.NewFilePV(privKey, pvKeyFile, pvStateFile)
		filePV.Save()
	}
	pukey, err := filePV.GetPubKey()
	if err != nil {
		return "", nil, err
	}

	return nodeID, pukey, nil
}

func DefaultCometConfig() *config.Config {
	cometConfig := config.DefaultConfig()
	cometConfig.Consensus.TimeoutPropose = time.Second * 3
	cometConfig.Consensus.TimeoutPrevote = time.Second * 1
	cometConfig.Consensus.TimeoutPrecommit = time.Second * 1
	cometConfig.Consensus.TimeoutCommit = time.Second * 5
	return cometConfig
}
