// Package config loads the service configuration from an optional YAML
// file with STACKPAY_-prefixed environment overrides. The loaded Config
// is an immutable snapshot injected into the store, the orchestrator and
// the progression driver at construction.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/stackpay/stackpay/types"
)

type ServerConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	LogLevel   string `mapstructure:"log_level"`
	Metrics    bool   `mapstructure:"metrics"`
}

type DatabaseConfig struct {
	// Driver is sqlite or mysql. Empty selects the in-memory store.
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type EthereumConfig struct {
	// RPCURL is empty when the service runs store-only, without a
	// chain connection.
	RPCURL string `mapstructure:"rpc_url"`

	USDCAddress     string `mapstructure:"usdc_address"`
	XReserveAddress string `mapstructure:"xreserve_address"`

	TokenDecimals int    `mapstructure:"token_decimals"`
	RemoteDomain  uint32 `mapstructure:"remote_domain"`

	// PayerKey is the hex private key of the payer account, when the
	// service itself submits payments.
	PayerKey string `mapstructure:"payer_key"`
}

type StacksConfig struct {
	APIBaseURL string `mapstructure:"api_base_url"`
}

type LinksConfig struct {
	MinDeposit    string `mapstructure:"min_deposit"`
	MemoMaxLength int    `mapstructure:"memo_max_length"`
}

type ProgressConfig struct {
	PollInterval          time.Duration `mapstructure:"poll_interval"`
	RequiredConfirmations uint64        `mapstructure:"required_confirmations"`
	ConfirmDelay          time.Duration `mapstructure:"confirm_delay"`
	BridgeDelay           time.Duration `mapstructure:"bridge_delay"`
	StuckTimeout          time.Duration `mapstructure:"stuck_timeout"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Ethereum EthereumConfig `mapstructure:"ethereum"`
	Stacks   StacksConfig   `mapstructure:"stacks"`
	Links    LinksConfig    `mapstructure:"links"`
	Progress ProgressConfig `mapstructure:"progress"`
}

// Load reads configuration from path (optional) and the environment.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("STACKPAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen_addr", ":8080")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.metrics", true)

	v.SetDefault("database.driver", "")
	v.SetDefault("database.dsn", "")

	v.SetDefault("ethereum.rpc_url", "")
	v.SetDefault("ethereum.usdc_address", types.USDCSepolia)
	v.SetDefault("ethereum.xreserve_address", types.XReserveSepolia)
	v.SetDefault("ethereum.token_decimals", types.USDCDecimals)
	v.SetDefault("ethereum.remote_domain", types.StacksRemoteDomain)
	v.SetDefault("ethereum.payer_key", "")

	v.SetDefault("stacks.api_base_url", types.StacksTestnetAPI)

	v.SetDefault("links.min_deposit", "1")
	v.SetDefault("links.memo_max_length", types.MemoMaxLength)

	v.SetDefault("progress.poll_interval", 15*time.Second)
	v.SetDefault("progress.required_confirmations", 3)
	v.SetDefault("progress.confirm_delay", 30*time.Second)
	v.SetDefault("progress.bridge_delay", time.Duration(types.EstimatedPegInMinutes)*time.Minute)
	v.SetDefault("progress.stuck_timeout", 2*time.Hour)
}
