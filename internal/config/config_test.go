package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trigg3rX/triggerx-chainio/pkg/crypto/curve"
	"github.com/trigg3rX/triggerx-chainio/pkg/store"
)

const testKey = "0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"

func setBaseEnv(t *testing.T) {
	t.Setenv("DEV_MODE", "true")
	t.Setenv("ETH_RPC_URL", "http://localhost:8545")
	t.Setenv("SIGNER_PRIVATE_KEY", testKey)
	t.Setenv("STATIC_REGISTRY_PATH", "operators.yaml")
}

func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestInit_Defaults(t *testing.T) {
	setBaseEnv(t)
	require.NoError(t, InitWithEnvFile(missingEnvFile(t)))

	assert.True(t, IsDevMode())
	assert.Equal(t, "9010", GetAPIPort())
	assert.Equal(t, "http://localhost:8545", GetEthRPCURL())
	assert.Nil(t, GetChainID())
	assert.Equal(t, testKey, GetSignerConfig().PrivateKeyHex)
	assert.Equal(t, common.Address{}, GetStakeRegistryAddress())
	assert.Equal(t, "operators.yaml", GetStaticRegistryPath())

	num, den := GetThresholdFraction()
	assert.Equal(t, uint64(2), num)
	assert.Equal(t, uint64(3), den)
	assert.Equal(t, curve.HashRFC9380, GetHashMode())

	_, submit := GetAggregateTarget()
	assert.False(t, submit)

	tx := GetTxConfig()
	assert.Equal(t, uint64(15), tx.FeeBumpPercent)
	assert.Equal(t, uint64(3), tx.ConfirmationDepth)
	assert.Equal(t, 30*time.Second, GetQuorumConfig().DefaultRoundTimeout)

	sc := GetStoreConfig()
	assert.Equal(t, store.BackendFile, sc.Backend)
	assert.Equal(t, "data/txmgr.json", sc.Path)
}

func TestInit_Overrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("CHAIN_ID", "17000")
	t.Setenv("TX_FEE_BUMP_PERCENT", "25")
	t.Setenv("TX_CONFIRMATION_DEPTH", "6")
	t.Setenv("QUORUM_ROUND_TIMEOUT", "45s")
	t.Setenv("BLS_HASH_MODE", "keccak")
	t.Setenv("AGGREGATE_TARGET_ADDRESS", "0x00000000000000000000000000000000000000aa")
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("REDIS_URL", "redis://cache:6379/2")
	require.NoError(t, InitWithEnvFile(missingEnvFile(t)))

	assert.Equal(t, int64(17000), GetChainID().Int64())
	assert.Equal(t, uint64(25), GetTxConfig().FeeBumpPercent)
	assert.Equal(t, uint64(6), GetTxConfig().ConfirmationDepth)
	assert.Equal(t, 45*time.Second, GetQuorumConfig().DefaultRoundTimeout)
	assert.Equal(t, curve.HashKeccak, GetHashMode())

	target, submit := GetAggregateTarget()
	assert.True(t, submit)
	assert.Equal(t, common.HexToAddress("0xaa"), target)

	sc := GetStoreConfig()
	assert.Equal(t, store.BackendRedis, sc.Backend)
	assert.Equal(t, "redis://cache:6379/2", sc.Redis.URL)
}

func TestInit_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "ETH_RPC_URL=http://node:8545\nSIGNER_PRIVATE_KEY=" + testKey + "\nSTAKE_REGISTRY_ADDRESS=0x00000000000000000000000000000000000000bb\nDEV_MODE=true\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	for _, k := range []string{"ETH_RPC_URL", "SIGNER_PRIVATE_KEY", "STAKE_REGISTRY_ADDRESS", "DEV_MODE", "STATIC_REGISTRY_PATH"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	// godotenv leaves these in the process environment.
	t.Cleanup(func() {
		for _, k := range []string{"ETH_RPC_URL", "SIGNER_PRIVATE_KEY", "STAKE_REGISTRY_ADDRESS", "DEV_MODE"} {
			_ = os.Unsetenv(k)
		}
	})

	require.NoError(t, InitWithEnvFile(path))
	assert.Equal(t, "http://node:8545", GetEthRPCURL())
	assert.Equal(t, common.HexToAddress("0xbb"), GetStakeRegistryAddress())
}

func TestInit_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad port", map[string]string{"API_PORT": "80"}},
		{"bad rpc url", map[string]string{"ETH_RPC_URL": "localhost:8545"}},
		{"bad ws url", map[string]string{"ETH_WS_URL": "http://localhost:8546"}},
		{"two signers", map[string]string{"SIGNER_KEYSTORE_PATH": "key.json"}},
		{"bad key", map[string]string{"SIGNER_PRIVATE_KEY": "0x1234"}},
		{"two registries", map[string]string{"STAKE_REGISTRY_ADDRESS": "0x00000000000000000000000000000000000000bb"}},
		{"threshold above one", map[string]string{"QUORUM_THRESHOLD_NUMERATOR": "4"}},
		{"zero denominator", map[string]string{"QUORUM_THRESHOLD_DENOMINATOR": "0"}},
		{"unknown hash mode", map[string]string{"BLS_HASH_MODE": "sha3"}},
		{"low fee bump", map[string]string{"TX_FEE_BUMP_PERCENT": "5"}},
		{"zero confirmation depth", map[string]string{"TX_CONFIRMATION_DEPTH": "0"}},
		{"unknown store", map[string]string{"STORE_BACKEND": "postgres"}},
		{"bad redis url", map[string]string{"STORE_BACKEND": "redis", "REDIS_URL": "http://cache"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			assert.Error(t, InitWithEnvFile(missingEnvFile(t)))
		})
	}
}
