// Config loading for the stocklink CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/dukaforge/stocklink/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	// Connection config keys.
	cfgKeyBaseURL     = "connection.base_url"
	cfgKeyEnvironment = "connection.environment"
	cfgKeyDomain      = "connection.domain"
	cfgKeyUser        = "connection.user"
	cfgKeyPassword    = "connection.password"
	cfgKeyUseWSDL     = "connection.use_wsdl"
	cfgKeyProxy       = "connection.proxy"
	cfgKeyTimeout     = "connection.timeout"
	cfgKeySchemaTTL   = "connection.schema_cache_ttl"

	// Job config keys.
	cfgKeyDataDir        = "data_dir"
	cfgKeySimpleConn     = "jobs.simple.connector"
	cfgKeyComboConn      = "jobs.combination.connector"
	cfgKeyComboSecondary = "jobs.combination.secondary"
	cfgKeyComboSource    = "jobs.combination.part_source"
)

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# Stocklink configuration

connection:
  # base_url: https://erp.example.com/service
  # environment: PROD
  # domain: CORP
  # user:
  # password:
  use_wsdl: false
  timeout: 10m
  schema_cache_ttl: 1h

jobs:
  simple:
    connector: Articles
  combination:
    connector: ArticleSets
    part_source: primary

# Data directory (optional; overridable by --data-dir flag)
# data_dir:
`

// loadConfig reads config.yaml from the resolved config directory using
// Viper. It creates the config directory and a default config.yaml on first
// run. Credentials can also come from STOCKLINK_* environment variables,
// e.g. STOCKLINK_CONNECTION_PASSWORD.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix("STOCKLINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// A missing config.yaml is not an error; env vars may suffice.
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// ensureDefaultConfigFile creates a default config.yaml if the file does not
// exist in the config directory.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o600)
}

// connectionConfig builds the remote connection configuration from the
// loaded config.
func connectionConfig() types.ConnectionConfig {
	return types.ConnectionConfig{
		BaseURL:        cfg.GetString(cfgKeyBaseURL),
		Environment:    cfg.GetString(cfgKeyEnvironment),
		Domain:         cfg.GetString(cfgKeyDomain),
		User:           cfg.GetString(cfgKeyUser),
		Password:       cfg.GetString(cfgKeyPassword),
		UseWSDL:        cfg.GetBool(cfgKeyUseWSDL),
		Proxy:          cfg.GetString(cfgKeyProxy),
		Timeout:        cfg.GetDuration(cfgKeyTimeout),
		SchemaCacheTTL: cfg.GetDuration(cfgKeySchemaTTL),
	}
}
