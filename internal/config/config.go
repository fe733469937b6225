// Package config loads the avsnode settings from the environment, with an
// optional .env file layered underneath.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/trigg3rX/triggerx-chainio/pkg/chainio"
	"github.com/trigg3rX/triggerx-chainio/pkg/crypto/curve"
	"github.com/trigg3rX/triggerx-chainio/pkg/env"
	"github.com/trigg3rX/triggerx-chainio/pkg/quorum"
	"github.com/trigg3rX/triggerx-chainio/pkg/store"
	"github.com/trigg3rX/triggerx-chainio/pkg/txmgr"
)

type Config struct {
	devMode bool

	// Port at which the node API will be running
	apiPort string

	// Ethereum RPC endpoints; the websocket one is optional and only used
	// for head subscriptions
	ethRPCURL string
	ethWSURL  string
	chainID   *big.Int

	// Transaction signer, exactly one of key, keystore or remote
	signerPrivateKey   string
	signerKeystorePath string
	signerPassword     string
	signerRemoteURL    string
	signerAddress      string

	// Stake source: on-chain registry or a static YAML file
	stakeRegistryAddress string
	staticRegistryPath   string
	quorumNumber         uint64
	thresholdNumerator   uint64
	thresholdDenominator uint64

	// Contract receiving aggregate submissions
	aggregateTargetAddress string

	hashMode string

	tx     txmgr.Config
	quorum quorum.Config

	storeBackend  string
	storePath     string
	redisURL      string
	redisPassword string
	redisPrefix   string
}

var cfg Config

// Init reads .env when present and then the process environment.
func Init() error {
	return InitWithEnvFile(".env")
}

func InitWithEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error loading %s: %w", path, err)
	}

	txDefaults := txmgr.DefaultConfig()
	quorumDefaults := quorum.DefaultConfig()
	redisDefaults := store.DefaultRedisConfig()

	next := Config{
		devMode:                env.GetEnvBool("DEV_MODE", false),
		apiPort:                env.GetEnvString("API_PORT", "9010"),
		ethRPCURL:              env.GetEnvString("ETH_RPC_URL", ""),
		ethWSURL:               env.GetEnvString("ETH_WS_URL", ""),
		chainID:                env.GetEnvBigInt("CHAIN_ID", nil),
		signerPrivateKey:       env.GetEnvString("SIGNER_PRIVATE_KEY", ""),
		signerKeystorePath:     env.GetEnvString("SIGNER_KEYSTORE_PATH", ""),
		signerPassword:         env.GetEnvString("SIGNER_KEYSTORE_PASSWORD", ""),
		signerRemoteURL:        env.GetEnvString("SIGNER_REMOTE_URL", ""),
		signerAddress:          env.GetEnvString("SIGNER_ADDRESS", ""),
		stakeRegistryAddress:   env.GetEnvString("STAKE_REGISTRY_ADDRESS", ""),
		staticRegistryPath:     env.GetEnvString("STATIC_REGISTRY_PATH", ""),
		quorumNumber:           env.GetEnvUint64("QUORUM_NUMBER", 0),
		thresholdNumerator:     env.GetEnvUint64("QUORUM_THRESHOLD_NUMERATOR", 2),
		thresholdDenominator:   env.GetEnvUint64("QUORUM_THRESHOLD_DENOMINATOR", 3),
		aggregateTargetAddress: env.GetEnvString("AGGREGATE_TARGET_ADDRESS", ""),
		hashMode:               env.GetEnvString("BLS_HASH_MODE", curve.HashRFC9380.String()),
		tx: txmgr.Config{
			ReplacementTimeout:  env.GetEnvDuration("TX_REPLACEMENT_TIMEOUT", txDefaults.ReplacementTimeout),
			MaxReplacements:     env.GetEnvInt("TX_MAX_REPLACEMENTS", txDefaults.MaxReplacements),
			FeeBumpPercent:      env.GetEnvUint64("TX_FEE_BUMP_PERCENT", txDefaults.FeeBumpPercent),
			ConfirmationDepth:   env.GetEnvUint64("TX_CONFIRMATION_DEPTH", txDefaults.ConfirmationDepth),
			FinalityDepth:       env.GetEnvUint64("TX_FINALITY_DEPTH", txDefaults.FinalityDepth),
			PollInterval:        env.GetEnvDuration("TX_POLL_INTERVAL", txDefaults.PollInterval),
			FeeRefreshInterval:  env.GetEnvDuration("TX_FEE_REFRESH_INTERVAL", txDefaults.FeeRefreshInterval),
			MaxBroadcastRetries: env.GetEnvInt("TX_MAX_BROADCAST_RETRIES", txDefaults.MaxBroadcastRetries),
			BroadcastRetryDelay: env.GetEnvDuration("TX_BROADCAST_RETRY_DELAY", txDefaults.BroadcastRetryDelay),
			GasLimitMultiplier:  txDefaults.GasLimitMultiplier,
			MaxConcurrentChecks: env.GetEnvInt("TX_MAX_CONCURRENT_CHECKS", txDefaults.MaxConcurrentChecks),
			FinishedCacheSize:   txDefaults.FinishedCacheSize,
		},
		quorum: quorum.Config{
			DefaultRoundTimeout: env.GetEnvDuration("QUORUM_ROUND_TIMEOUT", quorumDefaults.DefaultRoundTimeout),
			SubmitTimeout:       env.GetEnvDuration("QUORUM_SUBMIT_TIMEOUT", quorumDefaults.SubmitTimeout),
			FinishedRounds:      quorumDefaults.FinishedRounds,
		},
		storeBackend:  env.GetEnvString("STORE_BACKEND", store.BackendFile),
		storePath:     env.GetEnvString("STORE_PATH", "data/txmgr.json"),
		redisURL:      env.GetEnvString("REDIS_URL", redisDefaults.URL),
		redisPassword: env.GetEnvString("REDIS_PASSWORD", ""),
		redisPrefix:   env.GetEnvString("REDIS_KEY_PREFIX", redisDefaults.KeyPrefix),
	}
	if err := validateConfig(next); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cfg = next
	if !cfg.devMode {
		gin.SetMode(gin.ReleaseMode)
	}
	return nil
}

func validateConfig(c Config) error {
	if !env.IsValidPort(c.apiPort) {
		return fmt.Errorf("invalid API port: %s", c.apiPort)
	}
	if !env.IsValidURL(c.ethRPCURL) {
		return fmt.Errorf("invalid Ethereum RPC URL: %s", c.ethRPCURL)
	}
	if !env.IsEmpty(c.ethWSURL) && !env.IsValidWSURL(c.ethWSURL) {
		return fmt.Errorf("invalid Ethereum WS URL: %s", c.ethWSURL)
	}
	if c.chainID != nil && c.chainID.Sign() <= 0 {
		return fmt.Errorf("invalid chain id: %s", c.chainID)
	}

	signers := 0
	for _, s := range []string{c.signerPrivateKey, c.signerKeystorePath, c.signerRemoteURL} {
		if !env.IsEmpty(s) {
			signers++
		}
	}
	if signers != 1 {
		return errors.New("exactly one of SIGNER_PRIVATE_KEY, SIGNER_KEYSTORE_PATH or SIGNER_REMOTE_URL must be set")
	}
	if !env.IsEmpty(c.signerPrivateKey) && !env.IsValidPrivateKey(c.signerPrivateKey) {
		return errors.New("invalid signer private key")
	}
	if !env.IsEmpty(c.signerRemoteURL) {
		if !env.IsValidURL(c.signerRemoteURL) {
			return fmt.Errorf("invalid remote signer URL: %s", c.signerRemoteURL)
		}
		if !env.IsValidEthAddress(c.signerAddress) {
			return fmt.Errorf("invalid signer address: %s", c.signerAddress)
		}
	}

	if env.IsEmpty(c.stakeRegistryAddress) == env.IsEmpty(c.staticRegistryPath) {
		return errors.New("exactly one of STAKE_REGISTRY_ADDRESS or STATIC_REGISTRY_PATH must be set")
	}
	if !env.IsEmpty(c.stakeRegistryAddress) && !env.IsValidEthAddress(c.stakeRegistryAddress) {
		return fmt.Errorf("invalid stake registry address: %s", c.stakeRegistryAddress)
	}
	if c.quorumNumber > 255 {
		return fmt.Errorf("invalid quorum number: %d", c.quorumNumber)
	}
	if c.thresholdDenominator == 0 || c.thresholdNumerator == 0 || c.thresholdNumerator > c.thresholdDenominator {
		return fmt.Errorf("invalid quorum threshold %d/%d", c.thresholdNumerator, c.thresholdDenominator)
	}
	if !env.IsEmpty(c.aggregateTargetAddress) && !env.IsValidEthAddress(c.aggregateTargetAddress) {
		return fmt.Errorf("invalid aggregate target address: %s", c.aggregateTargetAddress)
	}
	if _, err := curve.ParseHashMode(c.hashMode); err != nil {
		return err
	}

	if err := c.tx.Validate(); err != nil {
		return err
	}
	if c.quorum.DefaultRoundTimeout <= 0 || c.quorum.SubmitTimeout <= 0 {
		return errors.New("quorum timeouts must be positive")
	}

	switch c.storeBackend {
	case store.BackendMemory:
	case store.BackendFile:
		if env.IsEmpty(c.storePath) {
			return errors.New("STORE_PATH is required for the file backend")
		}
	case store.BackendRedis:
		if !env.IsValidRedisURL(c.redisURL) {
			return fmt.Errorf("invalid Redis URL: %s", c.redisURL)
		}
	default:
		return fmt.Errorf("invalid store backend: %s", c.storeBackend)
	}
	return nil
}

func IsDevMode() bool {
	return cfg.devMode
}

func GetAPIPort() string {
	return cfg.apiPort
}

func GetEthRPCURL() string {
	return cfg.ethRPCURL
}

func GetEthWSURL() string {
	return cfg.ethWSURL
}

// GetChainID returns nil when the chain id should be read from the node.
func GetChainID() *big.Int {
	if cfg.chainID == nil {
		return nil
	}
	return new(big.Int).Set(cfg.chainID)
}

func GetSignerConfig() chainio.SignerConfig {
	sc := chainio.SignerConfig{
		PrivateKeyHex: cfg.signerPrivateKey,
		KeystorePath:  cfg.signerKeystorePath,
		Password:      cfg.signerPassword,
		RemoteURL:     cfg.signerRemoteURL,
	}
	if cfg.signerAddress != "" {
		sc.Address = common.HexToAddress(cfg.signerAddress)
	}
	return sc
}

// GetStakeRegistryAddress returns the zero address when a static registry
// is configured.
func GetStakeRegistryAddress() common.Address {
	if cfg.stakeRegistryAddress == "" {
		return common.Address{}
	}
	return common.HexToAddress(cfg.stakeRegistryAddress)
}

func GetStaticRegistryPath() string {
	return cfg.staticRegistryPath
}

func GetQuorumNumber() uint8 {
	return uint8(cfg.quorumNumber)
}

func GetThresholdFraction() (uint64, uint64) {
	return cfg.thresholdNumerator, cfg.thresholdDenominator
}

// GetAggregateTarget reports whether aggregates should be submitted on
// chain, and to which contract.
func GetAggregateTarget() (common.Address, bool) {
	if cfg.aggregateTargetAddress == "" {
		return common.Address{}, false
	}
	return common.HexToAddress(cfg.aggregateTargetAddress), true
}

func GetHashMode() curve.HashMode {
	mode, _ := curve.ParseHashMode(cfg.hashMode)
	return mode
}

func GetTxConfig() txmgr.Config {
	return cfg.tx
}

func GetQuorumConfig() quorum.Config {
	return cfg.quorum
}

func GetStoreConfig() store.Config {
	redisCfg := store.DefaultRedisConfig()
	redisCfg.URL = cfg.redisURL
	redisCfg.Password = cfg.redisPassword
	redisCfg.KeyPrefix = cfg.redisPrefix
	return store.Config{
		Backend: cfg.storeBackend,
		Path:    cfg.storePath,
		Redis:   redisCfg,
	}
}
