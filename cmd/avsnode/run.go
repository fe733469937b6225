package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/trigg3rX/triggerx-chainio/internal/api"
	"github.com/trigg3rX/triggerx-chainio/internal/config"
	"github.com/trigg3rX/triggerx-chainio/pkg/chainio"
	"github.com/trigg3rX/triggerx-chainio/pkg/crypto/bls"
	"github.com/trigg3rX/triggerx-chainio/pkg/logging"
	"github.com/trigg3rX/triggerx-chainio/pkg/metrics"
	"github.com/trigg3rX/triggerx-chainio/pkg/quorum"
	"github.com/trigg3rX/triggerx-chainio/pkg/store"
	"github.com/trigg3rX/triggerx-chainio/pkg/txmgr"
)

const shutdownTimeout = 30 * time.Second

func RunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Start the node: quorum coordinator, transaction manager and API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env-file", Usage: "dotenv file layered under the environment", Value: ".env"},
		},
		Action: runNode,
	}
}

type node struct {
	logger    logging.Logger
	collector *metrics.Collector
	client    *chainio.EthClient
	store     store.Store
	txs       *txmgr.Manager
	quorum    *quorum.Coordinator
	server    *api.Server
}

func runNode(c *cli.Context) error {
	if err := config.InitWithEnvFile(c.String("env-file")); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	logConfig := logging.NewDefaultConfig(logging.NodeProcess)
	logConfig.IsDevelopment = config.IsDevMode()
	logger, err := logging.InitServiceLogger(logConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logging.Shutdown()

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	n, err := buildNode(ctx, logger)
	if err != nil {
		logger.Error("Failed to start node", "error", err)
		return err
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- n.server.Start()
	}()
	logger.Info("avsnode ready",
		"port", config.GetAPIPort(),
		"rpc", config.GetEthRPCURL(),
		"hash_mode", config.GetHashMode().String(),
		"fee_bump_percent", config.GetTxConfig().FeeBumpPercent,
		"confirmation_depth", config.GetTxConfig().ConfirmationDepth,
	)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(shutdown)

	select {
	case sig := <-shutdown:
		logger.Info("Received shutdown signal", "signal", sig.String())
	case err = <-serverErr:
		if err != nil {
			logger.Error("API server error", "error", err)
		}
	}

	n.shutdown()
	return err
}

func buildNode(ctx context.Context, logger logging.Logger) (_ *node, err error) {
	n := &node{logger: logger}
	defer func() {
		if err != nil {
			n.shutdown()
		}
	}()

	n.collector = metrics.NewCollector("avsnode")
	n.collector.Start()

	n.client, err = chainio.Dial(ctx, config.GetEthRPCURL(), config.GetEthWSURL(), logger)
	if err != nil {
		return nil, err
	}
	chainID := config.GetChainID()
	if chainID == nil {
		if chainID, err = n.client.ChainID(ctx); err != nil {
			return nil, fmt.Errorf("failed to read chain id: %w", err)
		}
	}

	signer, err := chainio.NewSigner(config.GetSignerConfig(), chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to build signer: %w", err)
	}

	n.store, err = store.New(ctx, config.GetStoreConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	n.txs, err = txmgr.New(config.GetTxConfig(), n.client, signer, n.store, logger, txmgr.WithMetrics(n.collector.Tx()))
	if err != nil {
		return nil, err
	}
	if err := n.txs.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start transaction manager: %w", err)
	}

	registry, preload, err := buildRegistry(n.client)
	if err != nil {
		return nil, err
	}

	var (
		submitter quorum.Submitter
		builder   quorum.TxBuilder
	)
	if target, ok := config.GetAggregateTarget(); ok {
		submitter = n.txs
		builder = quorum.NewCalldataBuilder(target)
	}
	n.quorum, err = quorum.New(config.GetQuorumConfig(), registry, bls.NewScheme(config.GetHashMode()),
		submitter, builder, logger, quorum.WithMetrics(n.collector.Quorum()))
	if err != nil {
		return nil, err
	}
	for _, op := range preload {
		if err := n.quorum.RegisterOperator(ctx, op.ID, op.PublicKey, op.PoP); err != nil {
			return nil, fmt.Errorf("failed to register operator %s: %w", op.ID, err)
		}
	}

	n.server = api.NewServer(api.Config{Port: config.GetAPIPort()}, api.Dependencies{
		Logger:      logger,
		Metrics:     n.collector,
		Coordinator: n.quorum,
		TxManager:   n.txs,
	})
	return n, nil
}

// buildRegistry returns the stake source and, for a static registry, the
// operators whose keys it already lists.
func buildRegistry(client *chainio.EthClient) (quorum.Registry, []chainio.RegisteredOperator, error) {
	if path := config.GetStaticRegistryPath(); path != "" {
		reg, err := chainio.LoadStaticRegistry(path)
		if err != nil {
			return nil, nil, err
		}
		var preload []chainio.RegisteredOperator
		for _, op := range reg.Operators() {
			if op.PublicKey != nil && op.PoP != nil {
				preload = append(preload, op)
			}
		}
		return reg, preload, nil
	}
	num, den := config.GetThresholdFraction()
	reg, err := chainio.NewStakeRegistryReader(client, config.GetStakeRegistryAddress(), config.GetQuorumNumber(), num, den)
	if err != nil {
		return nil, nil, err
	}
	return reg, nil, nil
}

// shutdown stops components in reverse start order. It tolerates a
// partially built node.
func (n *node) shutdown() {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if n.server != nil {
		if err := n.server.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			n.logger.Error("Server forced to shutdown", "error", err)
		}
	}
	if n.quorum != nil {
		n.quorum.Close()
	}
	if n.txs != nil {
		n.txs.Stop()
	}
	if n.store != nil {
		if err := n.store.Close(); err != nil {
			n.logger.Warn("Failed to close store", "error", err)
		}
	}
	if n.client != nil {
		n.client.Close()
	}
	if n.collector != nil {
		n.collector.Stop()
	}
	n.logger.Info("avsnode shutdown complete", "duration", time.Since(start))
}
