package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"text/template"

	"github.com/dlc-link/dlc-observer/config"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, cfg config.Observer) string {
	tmpl, err := template.New("observer").Parse(config.ObserverConfigTemplate)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "observer.toml")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, tmpl.Execute(f, cfg))
	return path
}

func testConfig() config.Observer {
	return config.Observer{
		InMemory:          true,
		ServerPort:        8811,
		OracleUrl:         "http://localhost:8801",
		TxHandlingEnabled: true,
		PrecisionShift:    2,
		Chains: map[string]config.Chain{
			"eth-sepolia": {
				Type:            "EVM",
				Enabled:         true,
				ContractAddress: "0x5FbDB2315678afecb367f032d93F642f64180aa3",
				Rpcs:            []string{"ws://localhost:8545"},
			},
			"stx-testnet": {
				Type:            "stacks",
				Enabled:         true,
				ContractAddress: "ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM.dlc-manager-v1",
				ApiUrl:          "http://localhost:3999",
				SocketUrl:       "ws://localhost:3999/extended/v1/ws",
				SignerUrl:       "http://localhost:8802",
				SenderAddress:   "ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM",
			},
		},
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("ETH_SEPOLIA_PRIVATE_KEY", "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80")
	t.Setenv("ORACLE_URL", "http://oracle:8801")

	cfg, err := config.Load(writeConfig(t, testConfig()))
	require.NoError(t, err)

	require.Equal(t, "http://oracle:8801", cfg.OracleUrl)
	require.Equal(t, config.DefaultReconcileInterval, cfg.ReconcileInterval)
	require.Equal(t, config.DefaultSuppressionWindow, cfg.SuppressionWindow)
	require.Equal(t, 2, cfg.PrecisionShift)

	eth := cfg.Chains["eth-sepolia"]
	require.Equal(t, "eth-sepolia", eth.Chain)
	require.Equal(t, config.ChainTypeEvm, eth.Type)
	require.Equal(t, []string{"ws://localhost:8545"}, eth.Rpcs)
	require.NotEmpty(t, eth.PrivateKey)
	require.Equal(t, config.DefaultEventSourceVersion, eth.EventSourceVersion)

	require.NoError(t, cfg.Validate())
}

func TestValidate_MissingCredentials(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, testConfig()))
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "ETH_SEPOLIA_PRIVATE_KEY")
}

func TestValidate_DisabledChainIsIgnored(t *testing.T) {
	c := testConfig()
	eth := c.Chains["eth-sepolia"]
	eth.Enabled = false
	c.Chains["eth-sepolia"] = eth

	cfg, err := config.Load(writeConfig(t, c))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
}

func TestEnvPrefix(t *testing.T) {
	require.Equal(t, "STX_TESTNET_", config.EnvPrefix("stx-testnet"))
}
