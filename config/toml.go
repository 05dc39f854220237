package config

import (
	"bytes"
	_ "embed"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/spf13/viper"
)

// DefaultDirPerm is the default permissions used when creating directories.
const DefaultDirPerm = 0o700

var configTemplate *template.Template

func init() {
	var err error
	tmpl := template.New("configFileTemplate").Funcs(template.FuncMap{
		"StringsJoin": strings.Join,
	})
	if configTemplate, err = tmpl.Parse(defaultConfigTemplate); err != nil {
		panic(err)
	}
}

// WriteConfigFile renders config using the template and writes it to configFilePath.
func WriteConfigFile(configFilePath string, config *Config) error {
	var buffer bytes.Buffer

	if err := configTemplate.Execute(&buffer, config); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(configFilePath), DefaultDirPerm); err != nil {
		return err
	}
	return os.WriteFile(configFilePath, buffer.Bytes(), 0o644)
}

// LoadConfig reads home/config/config.toml over the defaults.
func LoadConfig(home string) (*Config, error) {
	if home == "" {
		home = DefaultHome()
	}
	cfg := &Config{
		Config: DefaultCometConfig(),
		App:    DefaultTreasuryAppConfig(home),
	}
	cfg.SetRoot(home)

	v := viper.New()
	v.SetConfigFile(filepath.Join(home, "config", "config.toml"))
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	cfg.SetRoot(home)
	cfg.App.Home = home
	cfg.App.TimeoutCommit = uint64(cfg.Consensus.TimeoutCommit.Seconds())
	if err := cfg.ValidateBasic(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Note: any changes to the comments/variables/mapstructure
// must be reflected in the appropriate struct in config/config.go.
//
//go:embed config.toml.tpl
var defaultConfigTemplate string
