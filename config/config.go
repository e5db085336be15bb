package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sisu-network/lib/log"
)

const (
	ChainTypeEvm    = "evm"
	ChainTypeStacks = "stacks"

	DefaultReconcileInterval  = 10      // seconds
	DefaultSuppressionWindow  = 60 * 60 // seconds
	DefaultPrecisionShift     = 2
	DefaultOracleTimeout      = 30  // seconds
	DefaultWriteTimeout       = 180 // seconds
	DefaultEventSourceVersion = "v1"
	DefaultConfirmationPoll   = 5 // seconds
	DefaultSuppressionCache   = 10_000
	DefaultServerPort         = 8801
)

type Chain struct {
	Chain   string `toml:"chain" json:"chain"`
	Type    string `toml:"type" json:"type"`
	Enabled bool   `toml:"enabled" json:"enabled"`

	// Manager contract. For evm this is a hex address, for stacks "<deployer>.<contract-name>".
	ContractAddress string `toml:"contract_address" json:"contract_address"`

	// evm
	Rpcs       []string `toml:"rpcs" json:"rpcs"`
	PrivateKey string   `toml:"private_key" json:"-" env:"PRIVATE_KEY"`

	// stacks
	ApiUrl          string `toml:"api_url" json:"api_url"`
	SocketUrl       string `toml:"socket_url" json:"socket_url"`
	SignerUrl       string `toml:"signer_url" json:"signer_url" env:"SIGNER_URL"`
	SenderAddress   string `toml:"sender_address" json:"sender_address" env:"SENDER_ADDRESS"`
	RegistrationNft string `toml:"registration_nft" json:"registration_nft"`

	EventSourceVersion string `toml:"event_source_version" json:"event_source_version"`
	ConfirmationPoll   int    `toml:"confirmation_poll" json:"confirmation_poll"`
}

type Observer struct {
	DbHost     string `toml:"db_host"`
	DbPort     int    `toml:"db_port"`
	DbUsername string `toml:"db_username"`
	DbPassword string `toml:"db_password" env:"DB_PASSWORD"`
	DbSchema   string `toml:"db_schema"`
	InMemory   bool   `toml:"in_memory"`

	ServerPort int `toml:"server_port"`

	OracleUrl           string `toml:"oracle_url" env:"ORACLE_URL"`
	TxHandlingEnabled   bool   `toml:"tx_handling_enabled" env:"TX_HANDLING_ENABLED"`
	DevEndpointsEnabled bool   `toml:"dev_endpoints_enabled" env:"DEV_ENDPOINTS_ENABLED"`

	// Subtracted from the emergency refund time when building an announcement maturation. Only
	// non zero in test environments.
	MaturationShift int64 `toml:"maturation_shift" env:"MATURATION_SHIFT"`
	PrecisionShift  int   `toml:"precision_shift"`

	ReconcileInterval int `toml:"reconcile_interval"`
	SuppressionWindow int `toml:"suppression_window"`
	SuppressionCache  int `toml:"suppression_cache"`
	OracleTimeout     int `toml:"oracle_timeout"`
	WriteTimeout      int `toml:"write_timeout"`

	Chains map[string]Chain `toml:"chains"`
}

// Load reads the toml file at path, then overlays values from the environment (and .env when it
// exists).
func Load(path string) (*Observer, error) {
	cfg := &Observer{PrecisionShift: DefaultPrecisionShift}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("cannot decode config file %s: %w", path, err)
	}

	if err := godotenv.Load(); err != nil {
		log.Verbose("No .env file loaded, err = ", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	return cfg, nil
}

func (c *Observer) applyEnv() error {
	if err := env.Parse(c); err != nil {
		return err
	}

	for name, chain := range c.Chains {
		err := env.ParseWithOptions(&chain, env.Options{Prefix: EnvPrefix(name)})
		if err != nil {
			return fmt.Errorf("cannot parse env for chain %s: %w", name, err)
		}
		c.Chains[name] = chain
	}

	return nil
}

// EnvPrefix returns the environment prefix of a chain's secrets, e.g. "ETH_SEPOLIA_".
func EnvPrefix(chain string) string {
	return strings.ToUpper(strings.ReplaceAll(chain, "-", "_")) + "_"
}

func (c *Observer) applyDefaults() {
	if c.ServerPort <= 0 {
		c.ServerPort = DefaultServerPort
	}
	if c.ReconcileInterval <= 0 {
		c.ReconcileInterval = DefaultReconcileInterval
	}
	if c.SuppressionWindow <= 0 {
		c.SuppressionWindow = DefaultSuppressionWindow
	}
	if c.SuppressionCache <= 0 {
		c.SuppressionCache = DefaultSuppressionCache
	}
	if c.OracleTimeout <= 0 {
		c.OracleTimeout = DefaultOracleTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}

	for name, chain := range c.Chains {
		chain.Chain = name
		chain.Type = strings.ToLower(chain.Type)
		if chain.EventSourceVersion == "" {
			chain.EventSourceVersion = DefaultEventSourceVersion
		}
		if chain.ConfirmationPoll <= 0 {
			chain.ConfirmationPoll = DefaultConfirmationPoll
		}
		c.Chains[name] = chain
	}
}

// Validate checks the static configuration. An invalid configuration is the only condition the
// observer refuses to start with.
func (c *Observer) Validate() error {
	if c.OracleUrl == "" {
		return fmt.Errorf("oracle_url is required")
	}

	enabled := 0
	for name, chain := range c.Chains {
		if !chain.Enabled {
			continue
		}
		enabled++

		if chain.ContractAddress == "" {
			return fmt.Errorf("chain %s: contract_address is required", name)
		}

		switch chain.Type {
		case ChainTypeEvm:
			if len(chain.Rpcs) == 0 {
				return fmt.Errorf("chain %s: at least one rpc is required", name)
			}
			if chain.PrivateKey == "" {
				return fmt.Errorf("chain %s: private key is missing, set %sPRIVATE_KEY", name,
					EnvPrefix(name))
			}

		case ChainTypeStacks:
			if chain.ApiUrl == "" || chain.SocketUrl == "" {
				return fmt.Errorf("chain %s: api_url and socket_url are required", name)
			}
			if chain.SignerUrl == "" || chain.SenderAddress == "" {
				return fmt.Errorf("chain %s: signer_url and sender_address are required", name)
			}
			if !strings.Contains(chain.ContractAddress, ".") {
				return fmt.Errorf("chain %s: contract_address must be <deployer>.<name>", name)
			}

		default:
			return fmt.Errorf("chain %s: unknown chain type %q", name, chain.Type)
		}
	}

	if enabled == 0 {
		return fmt.Errorf("no chain is enabled")
	}

	return nil
}

func seconds(v, def int) time.Duration {
	if v <= 0 {
		v = def
	}

	return time.Duration(v) * time.Second
}

func (c *Observer) ReconcileIntervalDuration() time.Duration {
	return seconds(c.ReconcileInterval, DefaultReconcileInterval)
}

func (c *Observer) SuppressionWindowDuration() time.Duration {
	return seconds(c.SuppressionWindow, DefaultSuppressionWindow)
}

func (c *Observer) OracleTimeoutDuration() time.Duration {
	return seconds(c.OracleTimeout, DefaultOracleTimeout)
}

func (c *Observer) WriteTimeoutDuration() time.Duration {
	return seconds(c.WriteTimeout, DefaultWriteTimeout)
}
