package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/crates/internal/doi"
	"github.com/mesh-intelligence/crates/internal/guid"
	"github.com/mesh-intelligence/crates/internal/logging"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	// envPrefix maps keys to environment variables: doi.timeout is
	// read from CRATE_DOI_TIMEOUT.
	envPrefix = "CRATE"

	cfgKeyCrate        = "crate"
	cfgKeyNAAN         = "naan"
	cfgKeyGUIDStrategy = "guid_strategy"
	cfgKeyLogLevel     = "log_level"
	cfgKeyCrossRefURL  = "doi.crossref_url"
	cfgKeyDataCiteURL  = "doi.datacite_url"
	cfgKeyDOITimeout   = "doi.timeout"
	cfgKeyTraceEnabled = "trace.enabled"
)

// defaultConfigYAML is the content written to config.yaml on first run.
const defaultConfigYAML = `# crate CLI configuration

# Crate directory used when --crate is not given (optional)
# crate:

# ARK naming authority number for minted ids
naan: "59852"

# Id suffix strategy: timestamp or uuid
guid_strategy: timestamp

# Log level: debug, info, warn, error
log_level: warn

doi:
  crossref_url: https://api.crossref.org/works
  datacite_url: https://api.datacite.org/works
  timeout: 15s

trace:
  enabled: false
`

// loadConfig reads config.yaml from configDir using Viper. It creates the
// config directory and a default config.yaml on first run.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyNAAN, guid.DefaultNAAN)
	v.SetDefault(cfgKeyGUIDStrategy, guid.StrategyTimestamp)
	v.SetDefault(cfgKeyLogLevel, logging.DefaultLevel)
	v.SetDefault(cfgKeyCrossRefURL, doi.DefaultCrossRefURL)
	v.SetDefault(cfgKeyDataCiteURL, doi.DefaultDataCiteURL)
	v.SetDefault(cfgKeyDOITimeout, doi.DefaultTimeout)
	v.SetDefault(cfgKeyTraceEnabled, false)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// ensureDefaultConfigFile creates a default config.yaml if the file does
// not exist in the config directory.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
